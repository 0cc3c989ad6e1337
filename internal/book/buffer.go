package book

import "sync"

// IncrementBuffer is a concurrency-safe FIFO of depth increments. While a book
// is Bootstrapping or Rebuilding the dispatcher appends incoming increments
// here instead of applying them, and the bootstrap task drains and replays
// them. This handoff is the one place in the pipeline that needs a
// thread-safe queue instead of single-writer access.
type IncrementBuffer struct {
	mu    sync.Mutex
	items []Increment
}

// NewIncrementBuffer creates an empty buffer.
func NewIncrementBuffer() *IncrementBuffer {
	return &IncrementBuffer{}
}

// Push appends an increment.
func (q *IncrementBuffer) Push(inc Increment) {
	q.mu.Lock()
	q.items = append(q.items, inc)
	q.mu.Unlock()
}

// First returns the oldest buffered increment without removing it.
func (q *IncrementBuffer) First() (Increment, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Increment{}, false
	}
	return q.items[0], true
}

// Drain removes and returns every buffered increment in arrival order.
// Callers replay the result exactly once; anything arriving after the call
// lands in a fresh backing slice.
func (q *IncrementBuffer) Drain() []Increment {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len returns the number of buffered increments.
func (q *IncrementBuffer) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
