package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const maxEventKind = int(schema.EventTimer)

// Metrics collects lightweight counters and latency stats for the event
// pipeline. All methods are safe from any goroutine and never allocate on the
// hot path.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64

	sequenceGaps   uint64
	bookRebuilds   uint64
	ringDrops      uint64
	recorderDrops  uint64
	handlerFaults  uint64
	ordersDropped  uint64
	killEngages    uint64

	eventLatency   LatencyStats
	handlerLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts    map[schema.EventKind]uint64
	SequenceGaps   uint64
	BookRebuilds   uint64
	RingDrops      uint64
	RecorderDrops  uint64
	HandlerFaults  uint64
	OrdersDropped  uint64
	KillEngages    uint64
	EventLatency   LatencySnapshot
	HandlerLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts one consumed event and tracks feed-to-engine latency
// when both timestamps are present.
func (m *Metrics) ObserveEvent(meta schema.EventMeta) {
	if m == nil {
		return
	}
	idx := int(meta.Kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if meta.TsEvent > 0 && meta.TsRecv > 0 {
		delta := meta.TsRecv - meta.TsEvent
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

// ObserveHandler measures one dispatcher handler invocation.
func (m *Metrics) ObserveHandler(d time.Duration) {
	if m == nil {
		return
	}
	m.handlerLatency.Observe(d)
}

// IncSequenceGap records a detected feed discontinuity.
func (m *Metrics) IncSequenceGap() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sequenceGaps, 1)
}

// IncBookRebuild records a book entering rebuild.
func (m *Metrics) IncBookRebuild() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.bookRebuilds, 1)
}

// IncRingDrop records a failed ring publish.
func (m *Metrics) IncRingDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ringDrops, 1)
}

// IncRecorderDrop records an event the recorder could not keep up with.
func (m *Metrics) IncRecorderDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.recorderDrops, 1)
}

// IncHandlerFault records a recovered handler panic or per-event error.
func (m *Metrics) IncHandlerFault() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.handlerFaults, 1)
}

// IncOrderDropped records an order command dropped at the gateway.
func (m *Metrics) IncOrderDropped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersDropped, 1)
}

// IncKillEngage records a kill switch activation.
func (m *Metrics) IncKillEngage() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.killEngages, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventKind(i)] = v
		}
	}
	return Snapshot{
		EventCounts:    eventCounts,
		SequenceGaps:   atomic.LoadUint64(&m.sequenceGaps),
		BookRebuilds:   atomic.LoadUint64(&m.bookRebuilds),
		RingDrops:      atomic.LoadUint64(&m.ringDrops),
		RecorderDrops:  atomic.LoadUint64(&m.recorderDrops),
		HandlerFaults:  atomic.LoadUint64(&m.handlerFaults),
		OrdersDropped:  atomic.LoadUint64(&m.ordersDropped),
		KillEngages:    atomic.LoadUint64(&m.killEngages),
		EventLatency:   m.eventLatency.Snapshot(),
		HandlerLatency: m.handlerLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
