package ring

import (
	"context"
	"sync"
	"testing"

	"main/internal/schema"
)

func TestRingPublishOrder(t *testing.T) {
	r := New(8)
	for i := 1; i <= 5; i++ {
		seq := int64(i)
		if err := r.Publish(func(rec *schema.EventRecord) {
			rec.Meta.Kind = schema.EventMarketTick
			rec.Meta.Seq = seq
		}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	r.Close()

	var got []int64
	r.Run(context.Background(), func(rec *schema.EventRecord) {
		got = append(got, rec.Meta.Seq)
	})
	if len(got) != 5 {
		t.Fatalf("consumed %d records, want 5", len(got))
	}
	for i, seq := range got {
		if seq != int64(i+1) {
			t.Fatalf("out of order at %d: got seq %d", i, seq)
		}
	}
}

func TestRingFull(t *testing.T) {
	r := New(2)
	fill := func(rec *schema.EventRecord) { rec.Meta.Kind = schema.EventTimer }
	if err := r.Publish(fill); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := r.Publish(fill); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := r.Publish(fill); err != ErrRingFull {
		t.Fatalf("expected ErrRingFull, got %v", err)
	}
}

func TestRingClosed(t *testing.T) {
	r := New(4)
	r.Close()
	if err := r.Publish(func(*schema.EventRecord) {}); err != ErrRingClosed {
		t.Fatalf("expected ErrRingClosed, got %v", err)
	}
}

func TestRingRecycleZeroesRecords(t *testing.T) {
	r := New(2)
	if err := r.Publish(func(rec *schema.EventRecord) {
		rec.Meta.Kind = schema.EventDepth
		rec.Depth.BidCount = 2
		rec.Depth.BidPrice[0] = 100
		rec.Depth.BidPrice[1] = 99
		rec.Depth.BidQty[0] = 1
		rec.Depth.BidQty[1] = 2
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	r.Close()
	r.Run(context.Background(), func(*schema.EventRecord) {})

	// the consumed slot must be zero before producers may reuse it
	var zero schema.EventRecord
	for i := range r.slots {
		if r.slots[i].rec != zero {
			t.Fatalf("slot %d not recycled: %+v", i, r.slots[i].rec.Depth)
		}
	}
}

func TestRingConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 200

	r := New(4096)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				venue := schema.VenueID(p + 1)
				for {
					err := r.Publish(func(rec *schema.EventRecord) {
						rec.Meta.Kind = schema.EventMarketTick
						rec.Meta.Venue = venue
					})
					if err == nil {
						break
					}
				}
			}
		}(p)
	}
	wg.Wait()
	r.Close()

	counts := make(map[schema.VenueID]int)
	r.Run(context.Background(), func(rec *schema.EventRecord) {
		counts[rec.Meta.Venue]++
	})
	for p := 1; p <= producers; p++ {
		if counts[schema.VenueID(p)] != perProducer {
			t.Fatalf("producer %d: got %d records, want %d", p, counts[schema.VenueID(p)], perProducer)
		}
	}
}
