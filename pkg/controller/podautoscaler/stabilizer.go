package podautoscaler

import (
	"time"

	"k8s.io/utils/clock"
	"minihpa/object"
	"minihpa/util/queue"
)

const maxHistoryCapacity = 1024

// history is the bounded window of recommendations for one direction.
type history struct {
	window time.Duration
	recs   *queue.RingQueue[object.Recommendation]
	// lastChallenge is the newest observation that disagreed with this direction
	lastChallenge time.Time
}

func historyCapacity(window, syncPeriod time.Duration) int {
	if syncPeriod <= 0 {
		syncPeriod = time.Second
	}
	c := int(window/syncPeriod)*2 + 4
	if c > maxHistoryCapacity {
		c = maxHistoryCapacity
	}
	return c
}

/*
Stabilizer dampens flapping with one history per direction.

A recommendation is classified against the current replica count. A Down
candidate only turns into a decrease once no equal or higher recommendation
was seen for the whole scale-down window, and the decrease is then the
highest Down recommendation of that window. Up works the same way with the
scale-up window, which defaults to zero, i.e. scale up at once.

Not safe for concurrent use: it belongs to whoever holds the target's lock.
*/
type Stabilizer struct {
	histories map[object.Direction]*history
	clock     clock.PassiveClock
}

func NewStabilizer(upWindow, downWindow, syncPeriod time.Duration, clk clock.PassiveClock) *Stabilizer {
	now := clk.Now()
	return &Stabilizer{
		histories: map[object.Direction]*history{
			object.DirectionUp: {
				window:        upWindow,
				recs:          queue.NewRingQueue[object.Recommendation](historyCapacity(upWindow, syncPeriod)),
				lastChallenge: now,
			},
			object.DirectionDown: {
				window:        downWindow,
				recs:          queue.NewRingQueue[object.Recommendation](historyCapacity(downWindow, syncPeriod)),
				lastChallenge: now,
			},
		},
		clock: clk,
	}
}

// Resize applies new windows after a configuration reload, keeping the recorded history.
func (s *Stabilizer) Resize(upWindow, downWindow, syncPeriod time.Duration) {
	s.histories[object.DirectionUp].resize(upWindow, syncPeriod)
	s.histories[object.DirectionDown].resize(downWindow, syncPeriod)
}

func (h *history) resize(window, syncPeriod time.Duration) {
	elems := h.recs.GetElements()
	h.window = window
	h.recs.Resize(historyCapacity(window, syncPeriod))
	h.refill(elems)
}

func (s *Stabilizer) Windows() (up, down time.Duration) {
	return s.histories[object.DirectionUp].window, s.histories[object.DirectionDown].window
}

// Stabilize records desired and returns the count to act on, with its direction relative to current.
func (s *Stabilizer) Stabilize(current, desired int32) (int32, object.Direction) {
	now := s.clock.Now()
	dir := object.DirectionOf(current, desired)
	if dir == object.DirectionNone {
		// agrees with neither pending direction
		s.histories[object.DirectionUp].lastChallenge = now
		s.histories[object.DirectionDown].lastChallenge = now
		return current, object.DirectionNone
	}

	h := s.histories[dir]
	h.record(object.Recommendation{Replicas: desired, Timestamp: now, Direction: dir}, now)
	s.histories[opposite(dir)].lastChallenge = now

	stabilized := h.stabilized(now, current, dir)
	return stabilized, object.DirectionOf(current, stabilized)
}

/*
record appends rec, keeping only what can still be the maximum of some
future window: entries past the window are dropped, and so is every entry
not higher than a newer one. When that still overflows the buffer the two
oldest entries merge into the higher value with the newer timestamp, which
can only hold a movement back, never let it go further than the window allows.
*/
func (h *history) record(rec object.Recommendation, now time.Time) {
	cutoff := now.Add(-h.window)
	elems := h.recs.GetElements()
	kept := elems[:0]
	for _, e := range elems {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		for len(kept) > 0 && kept[len(kept)-1].Replicas <= e.Replicas {
			kept = kept[:len(kept)-1]
		}
		kept = append(kept, e)
	}
	for len(kept) > 0 && kept[len(kept)-1].Replicas <= rec.Replicas {
		kept = kept[:len(kept)-1]
	}
	kept = append(kept, rec)
	h.refill(kept)
}

// refill replaces the buffer content, merging the oldest entries while it does not fit.
func (h *history) refill(elems []object.Recommendation) {
	for len(elems) > h.recs.Cap() {
		merged := elems[1]
		if elems[0].Replicas > merged.Replicas {
			merged.Replicas = elems[0].Replicas
		}
		elems = append([]object.Recommendation{merged}, elems[2:]...)
	}
	h.recs.Clear()
	for _, e := range elems {
		h.recs.Push(e)
	}
}

func (h *history) stabilized(now time.Time, current int32, dir object.Direction) int32 {
	if h.window > 0 && now.Sub(h.lastChallenge) < h.window {
		return current
	}
	cutoff := now.Add(-h.window)
	best := int32(-1)
	for _, rec := range h.recs.GetElements() {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		if rec.Replicas > best {
			best = rec.Replicas
		}
	}
	// never move against dir, the history may predate an external change of current
	if best < 0 || object.DirectionOf(current, best) != dir {
		return current
	}
	return best
}

func opposite(dir object.Direction) object.Direction {
	if dir == object.DirectionUp {
		return object.DirectionDown
	}
	return object.DirectionUp
}
