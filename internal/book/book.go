package book

import (
	"sync/atomic"

	"main/internal/schema"
	"main/pkg/exception"
)

// SyncState tracks the reconciliation state of a book.
type SyncState uint32

const (
	StateUninit SyncState = iota
	StateBootstrapping
	StateSynced
	StateRebuilding
)

func (s SyncState) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateBootstrapping:
		return "bootstrapping"
	case StateSynced:
		return "synced"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// Level is one price level.
type Level struct {
	Price schema.Price
	Qty   schema.Quantity
}

// Increment is a depth delta. On sequenced venues First/Final bound the update
// id range it covers; on sentinel venues both are zero and the delta applies
// unconditionally.
type Increment struct {
	First int64
	Final int64
	Bids  []Level
	Asks  []Level
}

// Snapshot is a point-in-time full book image carrying a monotonic version.
type Snapshot struct {
	Version int64
	Bids    []Level
	Asks    []Level
}

// Book is the local reconstruction of one venue instrument's resting levels.
// Bid and ask sides are ordered price trees; a quantity of zero means the
// level is absent and is never stored.
//
// Ownership: exactly one goroutine mutates a book at a time — the dispatcher
// thread while Synced, or the bootstrap task while
// Bootstrapping/Rebuilding. Only the state word is shared, so it is atomic;
// everything else relies on that handoff.
type Book struct {
	venue  schema.VenueID
	symbol schema.SymbolID

	bids *priceTree // best = max
	asks *priceTree // best = min

	version int64
	state   atomic.Uint32

	buffer *IncrementBuffer
}

// NewBook creates an empty, unsynced book.
func NewBook(venue schema.VenueID, symbol schema.SymbolID) *Book {
	return &Book{
		venue:  venue,
		symbol: symbol,
		bids:   newPriceTree(),
		asks:   newPriceTree(),
		buffer: NewIncrementBuffer(),
	}
}

// Venue returns the owning venue id.
func (b *Book) Venue() schema.VenueID { return b.venue }

// Symbol returns the instrument id.
func (b *Book) Symbol() schema.SymbolID { return b.symbol }

// Version returns the update id of the last applied snapshot or increment.
func (b *Book) Version() int64 { return b.version }

// State returns the current reconciliation state.
func (b *Book) State() SyncState { return SyncState(b.state.Load()) }

// SetState publishes a reconciliation state transition.
func (b *Book) SetState(s SyncState) { b.state.Store(uint32(s)) }

// CompareAndSetState atomically transitions from an expected state.
func (b *Book) CompareAndSetState(from, to SyncState) bool {
	return b.state.CompareAndSwap(uint32(from), uint32(to))
}

// Buffer returns the bootstrap increment FIFO for this book.
func (b *Book) Buffer() *IncrementBuffer { return b.buffer }

// Clear drops every level and resets the version. State is the caller's to
// manage.
func (b *Book) Clear() {
	b.bids.Clear()
	b.asks.Clear()
	b.version = 0
}

// ApplySnapshot replaces the book contents wholesale.
func (b *Book) ApplySnapshot(snap Snapshot) {
	b.bids.Clear()
	b.asks.Clear()
	for _, lvl := range snap.Bids {
		if lvl.Qty > 0 {
			b.bids.Set(lvl.Price, lvl.Qty)
		}
	}
	for _, lvl := range snap.Asks {
		if lvl.Qty > 0 {
			b.asks.Set(lvl.Price, lvl.Qty)
		}
	}
	b.version = snap.Version
}

// ApplyIncrement applies a sequenced delta.
//
//   - final <= version: stale, accepted as a no-op
//   - first > version+1: sequence gap, book untouched, caller must rebuild
//   - otherwise: apply deltas (qty 0 removes the level), version = final
func (b *Book) ApplyIncrement(inc Increment) error {
	if inc.Final <= b.version {
		return nil
	}
	if inc.First > b.version+1 {
		return exception.ErrSequenceGap
	}
	b.applyLevels(inc.Bids, inc.Asks)
	b.version = inc.Final
	return nil
}

// ApplyDelta applies an unsequenced delta from a sentinel-style venue. The
// observed protocol exposes no gap-detectable sequence number, so no
// validation is possible here; periodic full snapshots are the recovery
// mechanism.
func (b *Book) ApplyDelta(bids, asks []Level) {
	b.applyLevels(bids, asks)
}

func (b *Book) applyLevels(bids, asks []Level) {
	for _, lvl := range bids {
		if lvl.Qty == 0 {
			b.bids.Delete(lvl.Price)
		} else {
			b.bids.Set(lvl.Price, lvl.Qty)
		}
	}
	for _, lvl := range asks {
		if lvl.Qty == 0 {
			b.asks.Delete(lvl.Price)
		} else {
			b.asks.Set(lvl.Price, lvl.Qty)
		}
	}
}

// BestBid returns the highest resting bid.
func (b *Book) BestBid() (Level, bool) {
	price, qty, ok := b.bids.Max()
	return Level{Price: price, Qty: qty}, ok
}

// BestAsk returns the lowest resting ask.
func (b *Book) BestAsk() (Level, bool) {
	price, qty, ok := b.asks.Min()
	return Level{Price: price, Qty: qty}, ok
}

// BidRangeQty returns the cumulative bid quantity with lo <= price <= hi,
// used to size sweep orders.
func (b *Book) BidRangeQty(lo, hi schema.Price) schema.Quantity {
	return rangeQty(b.bids, lo, hi)
}

// AskRangeQty returns the cumulative ask quantity with lo <= price <= hi.
func (b *Book) AskRangeQty(lo, hi schema.Price) schema.Quantity {
	return rangeQty(b.asks, lo, hi)
}

func rangeQty(t *priceTree, lo, hi schema.Price) schema.Quantity {
	var total schema.Quantity
	t.AscendRange(lo, hi, func(_ schema.Price, qty schema.Quantity) bool {
		total += qty
		return true
	})
	return total
}

// BidDepth returns the number of resting bid levels.
func (b *Book) BidDepth() int { return b.bids.Size() }

// AskDepth returns the number of resting ask levels.
func (b *Book) AskDepth() int { return b.asks.Size() }

// SnapshotLevels copies the top n levels of each side, bids descending and
// asks ascending. n <= 0 copies everything.
func (b *Book) SnapshotLevels(n int) (bids, asks []Level) {
	b.bids.ForEachDescending(func(price schema.Price, qty schema.Quantity) bool {
		bids = append(bids, Level{Price: price, Qty: qty})
		return n <= 0 || len(bids) < n
	})
	b.asks.ForEachAscending(func(price schema.Price, qty schema.Quantity) bool {
		asks = append(asks, Level{Price: price, Qty: qty})
		return n <= 0 || len(asks) < n
	})
	return bids, asks
}
