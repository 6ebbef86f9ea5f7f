package queue

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestRingQueue(t *testing.T) {
	ringQ := NewRingQueue[float64](5)
	ringQ.Push(22.8)
	ringQ.Push(66.1)
	assert.DeepEqual(t, []float64{22.8, 66.1}, ringQ.GetElements())

	ringQ.Push(90.7)
	ringQ.Push(11.1)
	ringQ.Push(49.2)
	ringQ.Push(62.1)
	assert.Equal(t, 5, ringQ.Len())
	assert.DeepEqual(t, []float64{66.1, 90.7, 11.1, 49.2, 62.1}, ringQ.GetElements())
}

func TestRingQueueResize(t *testing.T) {
	ringQ := NewRingQueue[int](4)
	for i := 1; i <= 6; i++ {
		ringQ.Push(i)
	}
	ringQ.Resize(2)
	assert.DeepEqual(t, []int{5, 6}, ringQ.GetElements())

	ringQ.Resize(3)
	ringQ.Push(7)
	ringQ.Push(8)
	assert.DeepEqual(t, []int{6, 7, 8}, ringQ.GetElements())

	ringQ.Clear()
	assert.Equal(t, 0, ringQ.Len())
}
