package messaging

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"
	"minihpa/object"
	"minihpa/pkg/klog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultEventExchange = "minihpa.scaling"
	DefaultEventBuffer   = 128
)

// Broker is what EventPublisher needs from a Publisher.
type Broker interface {
	Publish(exchangeName string, body []byte, contentType string) error
}

/*
EventPublisher forwards scaling events to a fanout exchange.

Emit only enqueues, a single goroutine publishes. When the broker is slower
than the controller the newest events are dropped and counted.
*/
type EventPublisher struct {
	broker   Broker
	exchange string
	queue    chan object.ScalingEvent
	stopCh   chan struct{}
	done     chan struct{}
	once     sync.Once
	dropped  atomic.Int64
	failed   atomic.Int64
}

func NewEventPublisher(broker Broker, exchange string, buffer int) *EventPublisher {
	if exchange == "" {
		exchange = DefaultEventExchange
	}
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ep := &EventPublisher{
		broker:   broker,
		exchange: exchange,
		queue:    make(chan object.ScalingEvent, buffer),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go ep.run()
	return ep
}

func (ep *EventPublisher) Emit(event object.ScalingEvent) {
	select {
	case <-ep.stopCh:
		ep.dropped.Inc()
		return
	default:
	}
	select {
	case ep.queue <- event:
	default:
		n := ep.dropped.Inc()
		klog.Warnf("event queue full, dropped event %s of %s (%d dropped)\n", event.ID, event.Target, n)
	}
}

// Close publishes what is already queued and stops.
func (ep *EventPublisher) Close() {
	ep.once.Do(func() { close(ep.stopCh) })
	<-ep.done
}

func (ep *EventPublisher) Dropped() int64 {
	return ep.dropped.Load()
}

func (ep *EventPublisher) Failed() int64 {
	return ep.failed.Load()
}

func (ep *EventPublisher) run() {
	defer close(ep.done)
	for {
		select {
		case event := <-ep.queue:
			ep.publish(event)
		case <-ep.stopCh:
			for {
				select {
				case event := <-ep.queue:
					ep.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (ep *EventPublisher) publish(event object.ScalingEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		ep.failed.Inc()
		klog.Errorf("Error marshalling event %s : %s\n", event.ID, err.Error())
		return
	}
	if err := ep.broker.Publish(ep.exchange, body, "application/json"); err != nil {
		ep.failed.Inc()
		klog.Errorf("Error publishing event %s to %s : %s\n", event.ID, ep.exchange, err.Error())
	}
}
