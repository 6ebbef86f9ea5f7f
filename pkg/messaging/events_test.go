package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"minihpa/object"
)

type fakeBroker struct {
	mtx      sync.Mutex
	bodies   [][]byte
	exchange string
	err      error
	block    chan struct{}
}

func (f *fakeBroker) Publish(exchangeName string, body []byte, contentType string) error {
	if f.block != nil {
		<-f.block
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exchange = exchangeName
	f.bodies = append(f.bodies, body)
	return nil
}

func testEvent(id string) object.ScalingEvent {
	return object.ScalingEvent{
		ID:           id,
		Target:       "web",
		From:         3,
		To:           6,
		Direction:    object.DirectionUp,
		ReasonMetric: "Resource/cpu",
		Timestamp:    time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventPublisherPublishes(t *testing.T) {
	broker := &fakeBroker{}
	ep := NewEventPublisher(broker, "", 4)
	ep.Emit(testEvent("e1"))
	ep.Emit(testEvent("e2"))
	ep.Close()

	require.Len(t, broker.bodies, 2)
	assert.Equal(t, DefaultEventExchange, broker.exchange)
	got := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(broker.bodies[0], &got))
	assert.Equal(t, "e1", got["id"])
	assert.Equal(t, "Up", got["direction"])
	assert.Equal(t, float64(6), got["to"])
	assert.Equal(t, int64(0), ep.Dropped())
}

func TestEventPublisherDropsWhenFull(t *testing.T) {
	broker := &fakeBroker{block: make(chan struct{})}
	ep := NewEventPublisher(broker, "scaling", 1)
	// the first event is held inside Publish, the second fills the queue
	ep.Emit(testEvent("e1"))
	require.Eventually(t, func() bool { return len(ep.queue) == 0 }, time.Second, time.Millisecond)
	ep.Emit(testEvent("e2"))
	ep.Emit(testEvent("e3"))
	assert.Equal(t, int64(1), ep.Dropped())

	close(broker.block)
	ep.Close()
	assert.Len(t, broker.bodies, 2)

	ep.Emit(testEvent("e4"))
	assert.Equal(t, int64(2), ep.Dropped())
}

func TestEventPublisherCountsFailures(t *testing.T) {
	broker := &fakeBroker{err: errors.New("channel closed")}
	ep := NewEventPublisher(broker, "scaling", 4)
	ep.Emit(testEvent("e1"))
	ep.Close()
	assert.Equal(t, int64(1), ep.Failed())
}
