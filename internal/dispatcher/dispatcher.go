package dispatcher

import (
	"context"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/codec"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/position"
	"main/internal/recorder"
	"main/internal/ring"
	"main/internal/risk"
	"main/internal/schema"
)

// Strategy consumes events after the books and ledgers have absorbed them. It
// runs on the dispatcher thread; anything slow belongs on its own goroutine.
type Strategy interface {
	OnEvent(rec *schema.EventRecord)
}

// Dispatcher is the single consumer of the event ring. It routes each record
// by kind into the book, order and balance state, forwards it to the recorder
// and finally hands it to the strategy. Per-event failures are contained: a
// bad record is logged, the kill switch engages and the loop moves on with
// book and ledger upkeep intact.
type Dispatcher struct {
	registry *schema.Registry
	books    *book.Registry
	boots    *book.Supervisor
	orders   *oms.Ledger
	balances *position.Ledger
	risk     *risk.Engine

	writer   *recorder.Writer
	metrics  *obs.Metrics
	strategy Strategy

	scratch []byte
}

// New wires a dispatcher. writer, metrics and strategy may be nil.
func New(
	registry *schema.Registry,
	books *book.Registry,
	boots *book.Supervisor,
	orders *oms.Ledger,
	balances *position.Ledger,
	riskEngine *risk.Engine,
	writer *recorder.Writer,
	metrics *obs.Metrics,
	strategy Strategy,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		books:    books,
		boots:    boots,
		orders:   orders,
		balances: balances,
		risk:     riskEngine,
		writer:   writer,
		metrics:  metrics,
		strategy: strategy,
		scratch:  make([]byte, 0, codec.MaxPayloadSize),
	}
}

// Run consumes the ring until ctx is done or the ring closes.
func (d *Dispatcher) Run(ctx context.Context, r *ring.Ring) {
	r.Run(ctx, func(rec *schema.EventRecord) {
		d.Handle(ctx, rec)
	})
}

// Handle processes one record. The record is only valid for the duration of
// the call; nothing here may retain a reference to it.
func (d *Dispatcher) Handle(ctx context.Context, rec *schema.EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			d.fault()
			logs.Errorf("dispatcher panic on kind=%d venue=%d symbol=%d: %+v",
				rec.Meta.Kind, rec.Meta.Venue, rec.Meta.Symbol, r)
		}
	}()

	d.metrics.ObserveEvent(rec.Meta)
	d.record(rec)

	switch rec.Meta.Kind {
	case schema.EventDepth:
		d.handleDepth(ctx, rec)
	case schema.EventExecution:
		d.handleExecution(rec)
	case schema.EventAccountOrders:
		d.handleAccountOrders(rec)
	case schema.EventAccountBalances:
		d.balances.ApplyBalanceSnapshot(rec.Meta.Account, &rec.Balances)
	case schema.EventTransfer:
		d.handleTransfer(rec)
	case schema.EventCommand:
		d.handleCommand(rec)
	case schema.EventMarketTick, schema.EventConfig, schema.EventTimer:
		// state free, strategy only
	case schema.EventUnknown:
		// a producer claimed the slot then failed to fill it
		return
	default:
		d.fault()
		logs.Errorf("unknown event kind %d dropped", rec.Meta.Kind)
		return
	}

	if d.strategy != nil && !d.risk.Engaged() {
		d.strategy.OnEvent(rec)
	}
}

// fault counts a handler failure and engages the kill switch. Order
// origination stops until an operator resumes; book and ledger upkeep keep
// running so state stays coherent for the post-mortem.
func (d *Dispatcher) fault() {
	d.metrics.IncHandlerFault()
	if !d.risk.Engaged() {
		d.risk.Engage()
		d.metrics.IncKillEngage()
		logs.Error("kill switch engaged on handler fault, order origination halted")
	}
}

// record forwards the event to the write-ahead recorder. Recording never
// blocks the pipeline; a full recorder queue just counts a drop.
func (d *Dispatcher) record(rec *schema.EventRecord) {
	if d.writer == nil {
		return
	}
	payload, ok := codec.EncodePayload(d.scratch, rec)
	if !ok {
		return
	}
	d.scratch = payload
	if err := d.writer.TryAppend(rec.Meta, payload); err != nil {
		d.metrics.IncRecorderDrop()
	}
}

func (d *Dispatcher) handleDepth(ctx context.Context, rec *schema.EventRecord) {
	venue, ok := d.registry.Venue(rec.Meta.Venue)
	if !ok {
		d.fault()
		logs.Errorf("depth event for unknown venue %d dropped", rec.Meta.Venue)
		return
	}
	if _, ok := d.registry.Symbol(rec.Meta.Symbol); !ok {
		d.fault()
		logs.Errorf("depth event for unknown symbol %d dropped", rec.Meta.Symbol)
		return
	}

	b := d.books.GetOrCreate(rec.Meta.Venue, rec.Meta.Symbol)
	switch venue.Style {
	case schema.SyncStyleSequenced:
		d.applySequencedDepth(ctx, b, rec)
	case schema.SyncStyleSentinel:
		d.applySentinelDepth(b, rec)
	default:
		d.fault()
		logs.Errorf("venue %d has unsupported sync style %d", rec.Meta.Venue, venue.Style)
	}
}

func (d *Dispatcher) applySequencedDepth(ctx context.Context, b *book.Book, rec *schema.EventRecord) {
	inc := depthIncrement(rec)

	switch b.State() {
	case book.StateSynced:
		// increments published while the bootstrap task was flipping the
		// state may still sit in the buffer; replay them exactly once
		if b.Buffer().Len() > 0 {
			for _, residual := range b.Buffer().Drain() {
				if err := b.ApplyIncrement(residual); err != nil {
					d.rebuild(ctx, b, inc)
					return
				}
			}
		}
		if err := b.ApplyIncrement(inc); err != nil {
			d.rebuild(ctx, b, inc)
		}
	case book.StateUninit:
		b.SetState(book.StateBootstrapping)
		b.Buffer().Push(inc)
		d.boots.Ensure(ctx, b)
	default:
		// bootstrap or rebuild in flight, keep feeding the buffer
		b.Buffer().Push(inc)
		d.boots.Ensure(ctx, b)
	}
}

// rebuild resets a desynced book and restarts the snapshot protocol. The
// increment that exposed the gap is rebuffered so the bootstrap floor stays
// correct.
func (d *Dispatcher) rebuild(ctx context.Context, b *book.Book, inc book.Increment) {
	d.metrics.IncSequenceGap()
	d.metrics.IncBookRebuild()
	logs.Infof("depth gap venue=%d symbol=%d version=%d first=%d, rebuilding",
		b.Venue(), b.Symbol(), b.Version(), inc.First)

	b.Clear()
	b.SetState(book.StateRebuilding)
	b.Buffer().Push(inc)
	d.boots.Ensure(ctx, b)
}

func (d *Dispatcher) applySentinelDepth(b *book.Book, rec *schema.EventRecord) {
	if rec.Meta.FirstID == schema.SnapshotFirstID {
		b.ApplySnapshot(book.Snapshot{
			Version: rec.Meta.Seq,
			Bids:    depthLevels(rec.Depth.BidPrice[:], rec.Depth.BidQty[:], rec.Depth.BidCount),
			Asks:    depthLevels(rec.Depth.AskPrice[:], rec.Depth.AskQty[:], rec.Depth.AskCount),
		})
		b.SetState(book.StateSynced)
		return
	}
	inc := depthIncrement(rec)
	b.ApplyDelta(inc.Bids, inc.Asks)
}

func (d *Dispatcher) handleExecution(rec *schema.EventRecord) {
	tr, err := d.orders.ApplyUpdate(oms.OrderUpdate{
		ClientHash: rec.Exec.ClientHash,
		ExchangeID: rec.Exec.ExchangeID,
		Status:     rec.Exec.Status,
		FilledQty:  rec.Exec.FilledQty,
		FillPrice:  rec.Exec.FillPrice,
	})
	if err != nil {
		d.fault()
		return
	}
	if tr.FillDelta > 0 {
		d.settleFill(tr)
	}
}

func (d *Dispatcher) handleAccountOrders(rec *schema.EventRecord) {
	for i := 0; i < rec.Orders.Count && i < schema.OrderBatchCapacity; i++ {
		tr, err := d.orders.ApplyUpdate(oms.OrderUpdate{
			ClientHash: rec.Orders.ClientHash[i],
			Status:     rec.Orders.Status[i],
			FilledQty:  rec.Orders.FilledQty[i],
			FillPrice:  rec.Orders.Price[i],
			Cancel:     rec.Orders.Cancel[i],
		})
		if err != nil {
			d.fault()
			continue
		}
		if tr.FillDelta > 0 {
			d.settleFill(tr)
		}
	}
}

// settleFill moves the traded value through the balance ledger: a buy spends
// the reserved quote and receives base, a sell the reverse. The quote leg is
// price times quantity collapsed back to one e8 scale.
func (d *Dispatcher) settleFill(tr oms.Transition) {
	o := tr.Order
	sym, ok := d.registry.Symbol(o.Symbol)
	if !ok {
		d.fault()
		logs.Errorf("fill for unknown symbol %d, balances not settled", o.Symbol)
		return
	}

	price := tr.FillPrice
	if price == 0 {
		price = o.Price
	}
	notional, overflow := risk.Notional(price, tr.FillDelta)
	if overflow {
		d.fault()
		logs.Errorf("fill notional overflow order=%d price=%d qty=%d, balances not settled",
			o.LocalID, price, tr.FillDelta)
		return
	}
	base := schema.Amount(tr.FillDelta)

	var err error
	switch o.Side {
	case schema.OrderSideBuy:
		if err = d.balances.SettleFill(o.Account, sym.Quote, notional, schema.TransferDebit); err == nil {
			err = d.balances.SettleFill(o.Account, sym.Base, base, schema.TransferCredit)
		}
	case schema.OrderSideSell:
		if err = d.balances.SettleFill(o.Account, sym.Base, base, schema.TransferDebit); err == nil {
			err = d.balances.SettleFill(o.Account, sym.Quote, notional, schema.TransferCredit)
		}
	}
	if err != nil {
		d.fault()
		logs.Errorf("settle fill order=%d account=%d, err: %+v", o.LocalID, o.Account, err)
	}
}

func (d *Dispatcher) handleTransfer(rec *schema.EventRecord) {
	err := d.balances.ApplyTransfer(rec.Meta.Account, rec.Transfer.Asset, rec.Transfer.Amount, rec.Transfer.Direction)
	if err != nil {
		d.fault()
		logs.Errorf("apply transfer account=%d asset=%d, err: %+v", rec.Meta.Account, rec.Transfer.Asset, err)
	}
}

func (d *Dispatcher) handleCommand(rec *schema.EventRecord) {
	switch rec.Command.Op {
	case schema.CommandHalt:
		if !d.risk.Engaged() {
			d.risk.Engage()
			d.metrics.IncKillEngage()
			logs.Info("kill switch engaged, order origination halted")
		}
	case schema.CommandResume:
		if d.risk.Engaged() {
			d.risk.Disengage()
			logs.Info("kill switch disengaged, order origination resumed")
		}
	}
}

func depthIncrement(rec *schema.EventRecord) book.Increment {
	return book.Increment{
		First: rec.Meta.FirstID,
		Final: rec.Meta.Seq,
		Bids:  depthLevels(rec.Depth.BidPrice[:], rec.Depth.BidQty[:], rec.Depth.BidCount),
		Asks:  depthLevels(rec.Depth.AskPrice[:], rec.Depth.AskQty[:], rec.Depth.AskCount),
	}
}

// depthLevels copies the valid prefix of a payload section. The copy is
// required: increments may outlive the record in the bootstrap buffer.
func depthLevels(prices []schema.Price, qtys []schema.Quantity, count int) []book.Level {
	if count <= 0 {
		return nil
	}
	if count > len(prices) {
		count = len(prices)
	}
	levels := make([]book.Level, count)
	for i := 0; i < count; i++ {
		levels[i] = book.Level{Price: prices[i], Qty: qtys[i]}
	}
	return levels
}
