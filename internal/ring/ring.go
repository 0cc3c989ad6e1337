package ring

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"main/internal/schema"
)

var (
	ErrRingFull   = errors.New("event ring full")
	ErrRingClosed = errors.New("event ring closed")
)

const idleSpin = 64

// Ring is a bounded multi-producer, single-consumer ring of reusable event
// records. Each slot owns one record allocated at startup; producers claim a
// slot, fill the record in place and commit, the consumer observes commits in
// claim order. Records are recycled (Reset) before a slot is handed back to
// producers, so a consumer never sees another event's leftovers.
type Ring struct {
	slots []slot
	mask  uint64

	// align hot counters to separate cache lines
	enq    uint64
	_pad1  [56]byte
	deq    uint64
	_pad2  [56]byte
	closed uint32
}

type slot struct {
	seq  uint64
	_pad [56]byte
	rec  schema.EventRecord
}

// New allocates a ring with the given capacity, rounded up to a power of two.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	r := &Ring{slots: make([]slot, size), mask: size - 1}
	for i := range r.slots {
		r.slots[i].seq = uint64(i)
	}
	return r
}

// Publish claims a slot, runs fill against its record and commits. It never
// blocks: a full ring returns ErrRingFull and the event is the caller's to
// drop. Safe for concurrent producers.
func (r *Ring) Publish(fill func(*schema.EventRecord)) error {
	if atomic.LoadUint32(&r.closed) != 0 {
		return ErrRingClosed
	}
	for {
		pos := atomic.LoadUint64(&r.enq)
		s := &r.slots[pos&r.mask]
		seq := atomic.LoadUint64(&s.seq)
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.enq, pos, pos+1) {
				fill(&s.rec)
				atomic.StoreUint64(&s.seq, pos+1)
				return nil
			}
		case diff < 0:
			return ErrRingFull
		default:
			// another producer claimed pos; reload and retry
		}
	}
}

// Close stops the ring from accepting new events. Run drains what was already
// committed, then returns.
func (r *Ring) Close() {
	atomic.CompareAndSwapUint32(&r.closed, 0, 1)
}

// Run consumes committed records in publish order on the calling goroutine
// until the context is done or the ring is closed and drained. The record
// passed to handler is valid only for the duration of the call; it is reset
// and recycled immediately after handler returns.
func (r *Ring) Run(ctx context.Context, handler func(*schema.EventRecord)) {
	idle := 0
	for {
		pos := atomic.LoadUint64(&r.deq)
		s := &r.slots[pos&r.mask]
		seq := atomic.LoadUint64(&s.seq)
		if int64(seq)-int64(pos+1) == 0 {
			handler(&s.rec)
			s.rec.Reset()
			atomic.StoreUint64(&s.seq, pos+uint64(len(r.slots)))
			atomic.StoreUint64(&r.deq, pos+1)
			idle = 0
			continue
		}

		if ctx.Err() != nil {
			return
		}
		if atomic.LoadUint32(&r.closed) != 0 && r.Len() == 0 {
			return
		}
		idle++
		if idle < idleSpin {
			runtime.Gosched()
		} else {
			time.Sleep(50 * time.Microsecond)
		}
	}
}

// Len returns the number of committed, unconsumed records.
func (r *Ring) Len() int {
	h := atomic.LoadUint64(&r.enq)
	t := atomic.LoadUint64(&r.deq)
	return int(h - t)
}

// Cap returns the slot capacity of the ring.
func (r *Ring) Cap() int {
	return len(r.slots)
}
