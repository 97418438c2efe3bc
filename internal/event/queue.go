package event

import (
	"runtime"
	"sync/atomic"
)

// DefaultCapacity is the number of slots used when NewQueue is given a non-positive capacity.
const DefaultCapacity = 256

// spinLock guards the queue indices. Critical sections are a few index updates,
// so contenders spin instead of parking.
type spinLock struct {
	state atomic.Uint32
}

func (l *spinLock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *spinLock) Unlock() {
	l.state.Store(0)
}

// Queue is a fixed-capacity ring buffer carrying events from any number of
// producers to a single consumer. When full, new events are dropped.
type Queue struct {
	lock    spinLock
	slots   []Event
	head    int
	count   int
	scratch []Event // consumer-owned copy of the drained range
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		slots:   make([]Event, capacity),
		scratch: make([]Event, capacity),
	}
}

// Enqueue stores ev and reports whether there was room for it. It never blocks
// for longer than another caller's index update.
func (q *Queue) Enqueue(ev Event) bool {
	q.lock.Lock()
	if q.count >= len(q.slots) {
		q.lock.Unlock()
		return false
	}
	q.slots[(q.head+q.count)%len(q.slots)] = ev
	q.count++
	q.lock.Unlock()
	return true
}

// Drain hands every event pending at call time to handler in FIFO order and
// returns how many there were. The handler runs outside the lock, so it may
// enqueue; those events are delivered by the next Drain.
// Drain must only be called from one goroutine at a time.
func (q *Queue) Drain(handler func(Event)) int {
	q.lock.Lock()
	n := q.count
	head := q.head
	size := len(q.slots)
	first := n
	if head+n > size {
		first = size - head
	}
	copy(q.scratch[:first], q.slots[head:head+first])
	copy(q.scratch[first:n], q.slots[:n-first])
	q.head = (head + n) % size
	q.count = 0
	q.lock.Unlock()

	for i := 0; i < n; i++ {
		handler(q.scratch[i])
	}
	return n
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.lock.Lock()
	n := q.count
	q.lock.Unlock()
	return n
}

func (q *Queue) Cap() int { return len(q.slots) }
