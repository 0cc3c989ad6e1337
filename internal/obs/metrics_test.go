package obs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"main/internal/schema"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvent(schema.EventMeta{Kind: schema.EventDepth, TsEvent: 100, TsRecv: 250})
	m.ObserveEvent(schema.EventMeta{Kind: schema.EventDepth})
	m.ObserveEvent(schema.EventMeta{Kind: schema.EventExecution})
	m.IncSequenceGap()
	m.IncBookRebuild()
	m.IncRingDrop()
	m.IncHandlerFault()
	m.IncKillEngage()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.EventCounts[schema.EventDepth])
	assert.Equal(t, uint64(1), snap.EventCounts[schema.EventExecution])
	assert.Equal(t, uint64(1), snap.SequenceGaps)
	assert.Equal(t, uint64(1), snap.BookRebuilds)
	assert.Equal(t, uint64(1), snap.RingDrops)
	assert.Equal(t, uint64(1), snap.HandlerFaults)
	assert.Equal(t, uint64(1), snap.KillEngages)
	assert.Equal(t, uint64(1), snap.EventLatency.Count)
	assert.Equal(t, 150*time.Nanosecond, snap.EventLatency.Avg)
}

func TestLatencyStatsConcurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.ObserveHandler(d)
			}
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	snap := m.Snapshot().HandlerLatency
	assert.Equal(t, uint64(800), snap.Count)
	assert.Equal(t, time.Microsecond, snap.Min)
	assert.Equal(t, 8*time.Microsecond, snap.Max)
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEvent(schema.EventMeta{})
	m.IncSequenceGap()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
