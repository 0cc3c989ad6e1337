// Package mdg generates a synthetic depth stream. The feed acts as a local
// venue with full-refresh depth semantics: every publish is a whole book
// built around a random walk mid, plus an occasional trade tick at the mid.
// Paired with the paper gateway it runs the whole pipeline without network.
package mdg

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/ingest"
	"main/internal/schema"
)

const (
	_defaultBasePrice = schema.Price(100 * schema.E8)
	_defaultStep      = schema.E8 / 100
	_defaultSpread    = schema.Price(schema.E8 / 10)
	_defaultLevels    = 10
	_defaultLevelQty  = schema.Quantity(schema.E8)
	_defaultInterval  = 100 * time.Millisecond
	_tradeEvery       = 5
)

// Config tunes the synthetic stream. Zero fields fall back to defaults.
type Config struct {
	BasePrice schema.Price    // starting mid
	Step      int64           // max mid move per tick
	Spread    schema.Price    // distance from mid to best bid/ask
	Levels    int             // levels per side
	LevelQty  schema.Quantity // quantity at every level
	Interval  time.Duration
	Seed      int64 // 0 seeds from the clock
}

// Feed publishes synthetic depth for every symbol of one venue.
type Feed struct {
	venue   schema.VenueID
	symbols []schema.SymbolID
	pub     *ingest.Publisher
	cfg     Config
	rng     *rand.Rand

	mid     map[schema.SymbolID]schema.Price
	version int64
	ticks   int64

	stop chan struct{}
	once sync.Once
}

// NewFeed builds a feed over the venue's registered symbols.
func NewFeed(venue schema.VenueID, reg *schema.Registry, pub *ingest.Publisher, cfg Config) (*Feed, error) {
	symbols := ingest.SymbolsByVenue(reg, venue)
	if len(symbols) == 0 {
		return nil, errors.Errorf("venue %d has no symbols", venue)
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = _defaultBasePrice
	}
	if cfg.Step <= 0 {
		cfg.Step = _defaultStep
	}
	if cfg.Spread <= 0 {
		cfg.Spread = _defaultSpread
	}
	if cfg.Levels <= 0 || cfg.Levels > schema.DepthCapacity {
		cfg.Levels = _defaultLevels
	}
	if cfg.LevelQty <= 0 {
		cfg.LevelQty = _defaultLevelQty
	}
	if cfg.Interval <= 0 {
		cfg.Interval = _defaultInterval
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}

	f := &Feed{
		venue: venue,
		pub:   pub,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		mid:   make(map[schema.SymbolID]schema.Price, len(symbols)),
		stop:  make(chan struct{}),
	}
	for _, id := range symbols {
		f.symbols = append(f.symbols, id)
		f.mid[id] = cfg.BasePrice
	}
	return f, nil
}

func (f *Feed) Venue() schema.VenueID { return f.venue }

func (f *Feed) Close() {
	f.once.Do(func() { close(f.stop) })
}

// Start runs the tick loop until the context or Close stops it.
func (f *Feed) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(f.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			case <-ticker.C:
				f.Tick(time.Now())
			}
		}
	}()
	return nil
}

// Tick advances every symbol one step and publishes the results.
func (f *Feed) Tick(now time.Time) {
	f.ticks++
	for _, symbol := range f.symbols {
		mid := f.walk(f.mid[symbol])
		f.mid[symbol] = mid
		f.version++
		version := f.version
		f.pub.Publish(func(rec *schema.EventRecord) {
			f.fillDepthRecord(rec, symbol, mid, version, now)
		})
		if f.ticks%_tradeEvery == 0 {
			f.pub.Publish(func(rec *schema.EventRecord) {
				f.fillTickRecord(rec, symbol, mid, version, now)
			})
		}
	}
}

// walk moves the mid by a uniform step in [-Step, Step], floored one spread
// above zero so both sides of the book stay positive.
func (f *Feed) walk(mid schema.Price) schema.Price {
	delta := f.rng.Int63n(2*f.cfg.Step+1) - f.cfg.Step
	next := mid + schema.Price(delta)
	if floor := f.cfg.Spread + schema.Price(int64(f.cfg.Levels)); next < floor {
		next = floor
	}
	return next
}

func (f *Feed) fillDepthRecord(rec *schema.EventRecord, symbol schema.SymbolID, mid schema.Price, version int64, now time.Time) {
	rec.Meta = schema.EventMeta{
		Kind:    schema.EventDepth,
		Venue:   f.venue,
		Symbol:  symbol,
		Seq:     version,
		FirstID: schema.SnapshotFirstID,
		TsEvent: now.UnixNano(),
		TsRecv:  now.UnixNano(),
	}
	for i := 0; i < f.cfg.Levels; i++ {
		step := schema.Price(int64(i))
		rec.Depth.BidPrice[i] = mid - f.cfg.Spread - step
		rec.Depth.BidQty[i] = f.cfg.LevelQty
		rec.Depth.AskPrice[i] = mid + f.cfg.Spread + step
		rec.Depth.AskQty[i] = f.cfg.LevelQty
	}
	rec.Depth.BidCount = f.cfg.Levels
	rec.Depth.AskCount = f.cfg.Levels
}

func (f *Feed) fillTickRecord(rec *schema.EventRecord, symbol schema.SymbolID, mid schema.Price, version int64, now time.Time) {
	rec.Meta = schema.EventMeta{
		Kind:    schema.EventMarketTick,
		Venue:   f.venue,
		Symbol:  symbol,
		Seq:     version,
		TsEvent: now.UnixNano(),
		TsRecv:  now.UnixNano(),
	}
	rec.Market.Price = mid
	rec.Market.Qty = f.cfg.LevelQty
}
