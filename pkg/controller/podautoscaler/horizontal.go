package podautoscaler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"k8s.io/utils/clock"
	"minihpa/object"
	"minihpa/pkg/klog"
)

const (
	DefaultSyncPeriod = 15 * time.Second
	DefaultWorkers    = 4
)

type Config struct {
	// SyncPeriod is the tick interval and the time budget of one evaluation
	SyncPeriod   time.Duration
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// DefaultTolerance applies to targets that leave spec.tolerance unset
	DefaultTolerance float64
	ShardCount       int
	RecentEvents     int
	Clock            clock.WithTicker
}

func DefaultConfig() Config {
	return Config{
		SyncPeriod:       DefaultSyncPeriod,
		Workers:          DefaultWorkers,
		MaxRetries:       DefaultMaxRetries,
		RetryBackoff:     DefaultRetryBackoff,
		DefaultTolerance: object.DefaultTolerance,
		RecentEvents:     DefaultRecentEvents,
		Clock:            clock.RealClock{},
	}
}

func (c *Config) complete() {
	if c.SyncPeriod <= 0 {
		c.SyncPeriod = DefaultSyncPeriod
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DefaultTolerance < 0 || c.DefaultTolerance >= 1 {
		c.DefaultTolerance = object.DefaultTolerance
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
}

/*
HorizontalController is the reconciliation loop.

Every tick each due target is try-locked and handed to a fixed pool of
workers. A target whose previous cycle is still running is skipped for that
tick, never queued. The evaluation itself is

	current -> metrics -> per-metric recommendation -> max -> stabilize -> clamp -> scale
*/
type HorizontalController struct {
	cfg        Config
	clock      clock.WithTicker
	registry   *Registry
	calculator *ReplicaCalculator
	executor   *ScaleExecutor
	workload   WorkloadManager
	events     *EventRecorder

	running  atomic.Bool
	inflight atomic.Int64
	mtx      sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHorizontalController(cfg Config, metrics MetricsClient, workload WorkloadManager, sinks ...EventSink) *HorizontalController {
	cfg.complete()
	return &HorizontalController{
		cfg:        cfg,
		clock:      cfg.Clock,
		registry:   NewRegistry(cfg.ShardCount),
		calculator: NewReplicaCalculator(metrics),
		executor:   NewScaleExecutor(workload, cfg.MaxRetries, cfg.RetryBackoff, cfg.Clock),
		workload:   workload,
		events:     NewEventRecorder(cfg.RecentEvents, sinks...),
		done:       make(chan struct{}),
	}
}

// Register adds a target, or replaces the configuration of a registered one while keeping its history.
func (hc *HorizontalController) Register(target *object.Autoscaler) error {
	if target == nil {
		return errors.Wrap(ErrInvalidConfig, "nil autoscaler")
	}
	spec := target.DeepCopy()
	spec.Complete()
	if spec.Spec.Tolerance == nil {
		tol := hc.cfg.DefaultTolerance
		spec.Spec.Tolerance = &tol
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, created := hc.registry.put(spec); created {
		klog.WithTarget(spec.ID()).Infof("registered, %s/%s in [%d,%d]\n",
			spec.Spec.ScaleTargetRef.Kind, spec.Spec.ScaleTargetRef.Name, spec.Spec.MinReplicas, spec.Spec.MaxReplicas)
	} else {
		klog.WithTarget(spec.ID()).Infof("configuration reloaded\n")
	}
	return nil
}

// Unregister drops a target and its history. A cycle already running finishes.
func (hc *HorizontalController) Unregister(id string) bool {
	if _, ok := hc.registry.remove(id); !ok {
		return false
	}
	forgetTarget(id)
	klog.WithTarget(id).Infof("unregistered\n")
	return true
}

func (hc *HorizontalController) Get(id string) (object.AutoscalerView, error) {
	entry, ok := hc.registry.get(id)
	if !ok {
		return object.AutoscalerView{}, errors.Wrap(ErrTargetNotFound, id)
	}
	return viewOf(entry), nil
}

// List returns every registered target sorted by ID.
func (hc *HorizontalController) List() []object.AutoscalerView {
	entries := hc.registry.list()
	views := make([]object.AutoscalerView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, viewOf(entry))
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Autoscaler.ID() < views[j].Autoscaler.ID()
	})
	return views
}

func viewOf(entry *targetEntry) object.AutoscalerView {
	return object.AutoscalerView{Autoscaler: *entry.getSpec().DeepCopy(), Status: entry.getStatus()}
}

func (hc *HorizontalController) Events() []object.ScalingEvent {
	return hc.events.Recent()
}

func (hc *HorizontalController) AddSink(sink EventSink) {
	hc.events.AddSink(sink)
}

// SyncTarget runs one cycle of a target right now, outside the ticker.
func (hc *HorizontalController) SyncTarget(ctx context.Context, id string) (object.Phase, error) {
	entry, ok := hc.registry.get(id)
	if !ok {
		return object.PhaseUnregistered, errors.Wrap(ErrTargetNotFound, id)
	}
	if !entry.tryLock() {
		return object.PhaseEvaluating, errors.Wrap(ErrTargetBusy, id)
	}
	return hc.evaluate(ctx, entry)
}

// Run drives the loop until ctx is cancelled or Shutdown is called.
func (hc *HorizontalController) Run(ctx context.Context) error {
	if !hc.running.CAS(false, true) {
		return errors.New("horizontal controller already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	hc.mtx.Lock()
	hc.cancel = cancel
	hc.mtx.Unlock()
	defer cancel()

	work := make(chan *targetEntry)
	wg := sync.WaitGroup{}
	for i := 0; i < hc.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range work {
				_, _ = hc.evaluate(ctx, entry)
			}
		}()
	}

	ticker := hc.clock.NewTicker(hc.cfg.SyncPeriod)
	defer ticker.Stop()
	klog.Infof("horizontal controller started, sync period %s, %d workers\n", hc.cfg.SyncPeriod, hc.cfg.Workers)

	hc.dispatch(ctx, work)
	for {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			close(hc.done)
			klog.Infof("horizontal controller stopped\n")
			return nil
		case <-ticker.C():
			hc.dispatch(ctx, work)
		}
	}
}

/*
Shutdown stops the ticks, cancels every in-flight call and waits up to
timeout for running evaluations. Evaluations still running after that are
abandoned and reported in the error.
*/
func (hc *HorizontalController) Shutdown(timeout time.Duration) error {
	if !hc.running.Load() {
		return nil
	}
	hc.mtx.Lock()
	cancel := hc.cancel
	hc.mtx.Unlock()
	if cancel != nil {
		cancel()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-hc.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown deadline %s exceeded, %d evaluation(s) abandoned", timeout, hc.inflight.Load())
	}
}

func (hc *HorizontalController) dispatch(ctx context.Context, work chan<- *targetEntry) {
	now := hc.clock.Now()
	for _, entry := range hc.registry.list() {
		if !entry.due(now) {
			continue
		}
		if !entry.tryLock() {
			n := entry.skipped.Inc()
			skippedCyclesTotal.WithLabelValues(entry.id).Inc()
			klog.WithTarget(entry.id).Warnf("previous cycle still running, tick skipped (%d so far)\n", n)
			continue
		}
		select {
		case work <- entry:
		case <-ctx.Done():
			entry.unlock()
			return
		}
	}
}

// evaluate runs one cycle. The caller must hold the entry's lock, it is released here.
func (hc *HorizontalController) evaluate(ctx context.Context, entry *targetEntry) (object.Phase, error) {
	defer entry.unlock()
	defer func() {
		if entry.removed.Load() {
			hc.registry.retire(entry)
		}
	}()
	if entry.removed.Load() {
		return object.PhaseUnregistered, errors.Wrap(ErrTargetNotFound, entry.id)
	}
	hc.inflight.Inc()
	defer hc.inflight.Dec()

	start := hc.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, hc.cfg.SyncPeriod)
	defer cancel()

	entry.updateStatus(func(st *object.AutoscalerStatus) { st.Phase = object.PhaseEvaluating })
	outcome, err := hc.reconcile(ctx, entry, entry.getSpec())

	status := object.StatusHealthy
	switch outcome {
	case object.PhaseMetricsUnknown:
		status = object.StatusMetricsUnknown
	case object.PhaseDegraded:
		status = object.StatusDegraded
	}
	now := hc.clock.Now()
	removed := entry.removed.Load()
	entry.updateStatus(func(st *object.AutoscalerStatus) {
		st.Status = status
		st.LastOutcome = outcome
		st.LastEvaluated = &now
		st.LastError = ""
		if err != nil {
			st.LastError = err.Error()
		}
		st.Phase = object.PhaseIdle
		if removed {
			st.Phase = object.PhaseUnregistered
		}
	})

	log := klog.WithTarget(entry.id)
	if err != nil {
		log.Errorf("cycle ended %s: %v\n", outcome, err)
	} else {
		log.Debugf("cycle ended %s\n", outcome)
	}
	if removed {
		// the cycle may have recreated series dropped by Unregister
		forgetTarget(entry.id)
	} else {
		recordStatus(entry.id, status)
		evaluationDuration.WithLabelValues(entry.id).Observe(now.Sub(start).Seconds())
	}
	return outcome, err
}

func (hc *HorizontalController) reconcile(ctx context.Context, entry *targetEntry, spec *object.Autoscaler) (object.Phase, error) {
	ref := spec.Spec.ScaleTargetRef
	current, err := hc.workload.GetCurrentReplicas(ctx, ref)
	if err != nil {
		return object.PhaseDegraded, errors.WithMessagef(err, "read replicas of %s/%s", ref.Kind, ref.Name)
	}
	entry.updateStatus(func(st *object.AutoscalerStatus) { st.CurrentReplicas = current })
	currentReplicasGauge.WithLabelValues(entry.id).Set(float64(current))

	rec, err := hc.calculator.Recommend(ctx, spec, current)
	if err != nil {
		return object.PhaseMetricsUnknown, err
	}
	if rec.skipped {
		entry.updateStatus(func(st *object.AutoscalerStatus) { st.DesiredReplicas = current })
		return object.PhaseNoChange, nil
	}

	stabilizer := entry.stabilizerFor(spec, hc.cfg.SyncPeriod, hc.clock)
	stabilized, _ := stabilizer.Stabilize(current, rec.replicas)
	desired := clamp(stabilized, spec.Spec.MinReplicas, spec.Spec.MaxReplicas)
	entry.updateStatus(func(st *object.AutoscalerStatus) { st.DesiredReplicas = desired })
	desiredReplicasGauge.WithLabelValues(entry.id).Set(float64(desired))
	if desired == current {
		return object.PhaseNoChange, nil
	}

	dir := object.DirectionOf(current, desired)
	phase := object.PhaseScalingUp
	if dir == object.DirectionDown {
		phase = object.PhaseScalingDown
	}
	entry.updateStatus(func(st *object.AutoscalerStatus) { st.Phase = phase })

	attempts, err := hc.executor.Scale(ctx, ref, desired)
	if err != nil {
		scaleFailuresTotal.WithLabelValues(entry.id).Inc()
		return object.PhaseDegraded, err
	}

	now := hc.clock.Now()
	entry.updateStatus(func(st *object.AutoscalerStatus) {
		st.CurrentReplicas = desired
		st.LastScaleTime = &now
	})
	currentReplicasGauge.WithLabelValues(entry.id).Set(float64(desired))
	scalingEventsTotal.WithLabelValues(entry.id, dir.String()).Inc()
	hc.events.Emit(object.ScalingEvent{
		ID:           uuid.NewString(),
		Target:       entry.id,
		From:         current,
		To:           desired,
		Direction:    dir,
		ReasonMetric: rec.reasonMetric,
		Timestamp:    now,
	})
	klog.WithTarget(entry.id).Infof("scaled %s/%s from %d to %d, reason %s, %d attempt(s)\n",
		ref.Kind, ref.Name, current, desired, rec.reasonMetric, attempts)
	return phase, nil
}
