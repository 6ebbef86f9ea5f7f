package queue

// RingQueue keeps the latest capacity elements, overwriting the oldest one when full.
// It is not safe for concurrent use.
type RingQueue[TYPE any] struct {
	list     []TYPE
	capacity int
	tail     int
	size     int
}

func NewRingQueue[TYPE any](capacity int) *RingQueue[TYPE] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingQueue[TYPE]{
		capacity: capacity,
		list:     make([]TYPE, capacity),
		tail:     0,
		size:     0,
	}
}

func (rq *RingQueue[TYPE]) Push(value TYPE) {
	rq.list[rq.tail] = value
	rq.tail = (rq.tail + 1) % rq.capacity
	rq.size++
	if rq.size >= rq.capacity {
		rq.size = rq.capacity
	}
}

func (rq *RingQueue[TYPE]) Len() int {
	return rq.size
}

func (rq *RingQueue[TYPE]) Cap() int {
	return rq.capacity
}

// GetElements returns a copy of the stored elements, oldest first.
func (rq *RingQueue[TYPE]) GetElements() []TYPE {
	elems := make([]TYPE, 0, rq.size)
	head := (rq.tail - rq.size + rq.capacity) % rq.capacity
	for i := 0; i < rq.size; i++ {
		elems = append(elems, rq.list[(head+i)%rq.capacity])
	}
	return elems
}

// Resize changes the capacity, keeping the newest elements that still fit.
func (rq *RingQueue[TYPE]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == rq.capacity {
		return
	}
	elems := rq.GetElements()
	if len(elems) > capacity {
		elems = elems[len(elems)-capacity:]
	}
	rq.list = make([]TYPE, capacity)
	rq.capacity = capacity
	rq.tail = 0
	rq.size = 0
	for _, e := range elems {
		rq.Push(e)
	}
}

func (rq *RingQueue[TYPE]) Clear() {
	var zero TYPE
	for i := range rq.list {
		rq.list[i] = zero
	}
	rq.tail = 0
	rq.size = 0
}
