package podautoscaler

import (
	"sync"

	"go.uber.org/atomic"
	"minihpa/object"
	"minihpa/util/queue"
)

const DefaultRecentEvents = 256

// EventSink receives every ScalingEvent. Emit must not block for long, it runs inside an evaluation.
type EventSink interface {
	Emit(event object.ScalingEvent)
}

// EventRecorder keeps the latest events for the status API and fans them out to sinks.
type EventRecorder struct {
	mtx    sync.Mutex
	recent *queue.RingQueue[object.ScalingEvent]
	sinks  []EventSink
}

func NewEventRecorder(capacity int, sinks ...EventSink) *EventRecorder {
	if capacity <= 0 {
		capacity = DefaultRecentEvents
	}
	return &EventRecorder{
		recent: queue.NewRingQueue[object.ScalingEvent](capacity),
		sinks:  sinks,
	}
}

func (r *EventRecorder) AddSink(sink EventSink) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.sinks = append(r.sinks, sink)
}

func (r *EventRecorder) Emit(event object.ScalingEvent) {
	r.mtx.Lock()
	r.recent.Push(event)
	sinks := make([]EventSink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mtx.Unlock()

	for _, sink := range sinks {
		sink.Emit(event)
	}
}

// Recent returns the retained events, oldest first.
func (r *EventRecorder) Recent() []object.ScalingEvent {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.recent.GetElements()
}

// ChanSink exposes events as a channel. Events are dropped, and counted, when the reader falls behind.
type ChanSink struct {
	ch      chan object.ScalingEvent
	dropped atomic.Int64
}

func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan object.ScalingEvent, buffer)}
}

func (c *ChanSink) Emit(event object.ScalingEvent) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Inc()
	}
}

func (c *ChanSink) Events() <-chan object.ScalingEvent {
	return c.ch
}

func (c *ChanSink) Dropped() int64 {
	return c.dropped.Load()
}
