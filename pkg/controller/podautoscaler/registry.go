package podautoscaler

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"k8s.io/utils/clock"
	"minihpa/object"
	concurrentmap "minihpa/util/map"
)

/*
targetEntry is the per-target state of the loop.

busy is the per-target lock: whoever flips it from false to true owns the
stabilizer and may mutate the status, until it stores false again. An entry
registered again while its removed predecessor is still running shares the
predecessor's flag, so the two never scale the same workload at once.
*/
type targetEntry struct {
	id      string
	busy    *atomic.Bool
	removed atomic.Bool
	skipped atomic.Int64

	specMtx sync.RWMutex
	spec    *object.Autoscaler

	// owned by the busy holder
	stabilizer *Stabilizer

	statusMtx sync.RWMutex
	status    object.AutoscalerStatus
}

func newTargetEntry(spec *object.Autoscaler) *targetEntry {
	return &targetEntry{
		id:   spec.ID(),
		busy: atomic.NewBool(false),
		spec: spec,
		status: object.AutoscalerStatus{
			Status: object.StatusHealthy,
			Phase:  object.PhaseIdle,
		},
	}
}

func (e *targetEntry) tryLock() bool {
	return e.busy.CAS(false, true)
}

func (e *targetEntry) unlock() {
	e.busy.Store(false)
}

func (e *targetEntry) getSpec() *object.Autoscaler {
	e.specMtx.RLock()
	defer e.specMtx.RUnlock()
	return e.spec
}

func (e *targetEntry) setSpec(spec *object.Autoscaler) {
	e.specMtx.Lock()
	defer e.specMtx.Unlock()
	e.spec = spec
}

// stabilizerFor returns the target's stabilizer, created or resized to match spec. Caller holds busy.
func (e *targetEntry) stabilizerFor(spec *object.Autoscaler, syncPeriod time.Duration, clk clock.PassiveClock) *Stabilizer {
	up, down := spec.ScaleUpWindow(), spec.ScaleDownWindow()
	if e.stabilizer == nil {
		e.stabilizer = NewStabilizer(up, down, syncPeriod, clk)
		return e.stabilizer
	}
	if curUp, curDown := e.stabilizer.Windows(); curUp != up || curDown != down {
		e.stabilizer.Resize(up, down, syncPeriod)
	}
	return e.stabilizer
}

func (e *targetEntry) getStatus() object.AutoscalerStatus {
	e.statusMtx.RLock()
	defer e.statusMtx.RUnlock()
	st := e.status
	st.SkippedCycles = e.skipped.Load()
	return st
}

func (e *targetEntry) updateStatus(update func(st *object.AutoscalerStatus)) {
	e.statusMtx.Lock()
	defer e.statusMtx.Unlock()
	update(&e.status)
}

// due tells whether the target's own scale interval has elapsed since its last evaluation.
func (e *targetEntry) due(now time.Time) bool {
	interval := time.Duration(e.getSpec().Spec.ScaleInterval) * time.Second
	if interval <= 0 {
		return true
	}
	e.statusMtx.RLock()
	last := e.status.LastEvaluated
	e.statusMtx.RUnlock()
	return last == nil || !now.Before(last.Add(interval))
}

// Registry holds every registered target, sharded by ID.
type Registry struct {
	entries *concurrentmap.ShardedMap[*targetEntry]

	// lifecycle orders put and remove against retire
	lifecycle sync.Mutex

	// retiring keeps removed entries whose cycle is still running
	retiring map[string]*targetEntry
}

func NewRegistry(shardCount int) *Registry {
	return &Registry{
		entries:  concurrentmap.NewShardedMap[*targetEntry](shardCount),
		retiring: map[string]*targetEntry{},
	}
}

// put adds spec, or swaps the config of an already registered target. Reports whether it was new.
func (r *Registry) put(spec *object.Autoscaler) (*targetEntry, bool) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	fresh := newTargetEntry(spec)
	if old, ok := r.retiring[spec.ID()]; ok {
		fresh.busy = old.busy
	}
	entry, created := r.entries.PutIfAbsent(spec.ID(), fresh)
	if !created {
		entry.setSpec(spec)
	}
	return entry, created
}

func (r *Registry) remove(id string) (*targetEntry, bool) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	entry, ok := r.entries.Del(id)
	if !ok {
		return nil, false
	}
	entry.removed.Store(true)
	entry.updateStatus(func(st *object.AutoscalerStatus) { st.Phase = object.PhaseUnregistered })
	if entry.busy.Load() {
		r.retiring[id] = entry
	}
	return entry, true
}

// retire forgets a removed entry once its cycle is over. Caller still holds busy.
func (r *Registry) retire(entry *targetEntry) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.retiring[entry.id] == entry {
		delete(r.retiring, entry.id)
	}
}

func (r *Registry) get(id string) (*targetEntry, bool) {
	return r.entries.Get(id)
}

func (r *Registry) list() []*targetEntry {
	return r.entries.Values()
}

func (r *Registry) Len() int {
	return r.entries.Len()
}
