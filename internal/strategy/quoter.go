// Package strategy holds the event consumers that turn market state into
// order flow. Strategies run on the dispatcher thread: OnEvent must never
// block, and everything a strategy reads (books, ledgers) is single-writer
// state owned by the same thread.
package strategy

import (
	"fmt"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/oms"
	"main/internal/position"
	"main/internal/risk"
	"main/internal/schema"
)

// QuoterConfig sizes a two-sided quote on one symbol.
type QuoterConfig struct {
	Venue   schema.VenueID
	Symbol  schema.SymbolID
	Account []schema.AccountID // candidate accounts in preference order

	QuoteQty   schema.Quantity
	SpreadBps  int64 // half spread, applied each side of mid
	RequoteBps int64 // re-quote once mid drifts this far from the quoted mid
}

// quote tracks one live side so its reservation can be unwound when the
// order terminates. consumed accumulates what fills actually debited from
// the lock; fills below the quoted limit consume less than leaves-at-limit
// would suggest, so the terminal release works off reserved minus consumed.
type quote struct {
	localID  uint64
	hash     uint64
	account  schema.AccountID
	asset    schema.AssetID
	reserved schema.Amount
	consumed schema.Amount
	filled   schema.Quantity
}

// Quoter keeps a bid and an ask around the top-of-book mid. On every depth
// tick for its symbol it cancels drifted quotes; replacements go out only
// after the cancel's terminal report has released the old reservation, so at
// most one order per side is ever live.
type Quoter struct {
	cfg QuoterConfig

	registry *schema.Registry
	books    *book.Registry
	orders   *oms.Ledger
	balances *position.Ledger
	risk     *risk.Engine

	base  schema.AssetID
	quote schema.AssetID

	bid  quote
	ask  quote
	mid  schema.Price
	next uint64 // client id sequence
}

// NewQuoter wires a quoter. It fails when the symbol is unknown or the
// config cannot produce a valid quote.
func NewQuoter(
	cfg QuoterConfig,
	registry *schema.Registry,
	books *book.Registry,
	orders *oms.Ledger,
	balances *position.Ledger,
	riskEngine *risk.Engine,
) (*Quoter, error) {
	sym, ok := registry.Symbol(cfg.Symbol)
	if !ok {
		return nil, fmt.Errorf("quoter: unknown symbol %d", cfg.Symbol)
	}
	if cfg.QuoteQty <= 0 || len(cfg.Account) == 0 {
		return nil, fmt.Errorf("quoter: symbol %d needs a positive quote qty and at least one account", cfg.Symbol)
	}
	return &Quoter{
		cfg:      cfg,
		registry: registry,
		books:    books,
		orders:   orders,
		balances: balances,
		risk:     riskEngine,
		base:     sym.Base,
		quote:    sym.Quote,
	}, nil
}

// OnEvent implements the dispatcher strategy hook.
func (q *Quoter) OnEvent(rec *schema.EventRecord) {
	switch rec.Meta.Kind {
	case schema.EventDepth:
		if rec.Meta.Venue == q.cfg.Venue && rec.Meta.Symbol == q.cfg.Symbol {
			q.onDepth(rec.Meta.TsRecv)
		}
	case schema.EventExecution:
		q.onReport(rec.Exec.ClientHash, rec.Exec.FillPrice)
	case schema.EventAccountOrders:
		for i := 0; i < rec.Orders.Count && i < schema.OrderBatchCapacity; i++ {
			q.onReport(rec.Orders.ClientHash[i], rec.Orders.Price[i])
		}
	}
}

func (q *Quoter) onDepth(now int64) {
	bbo := q.books.TopOfBook(q.cfg.Venue, q.cfg.Symbol)
	if !bbo.HasBid || !bbo.HasAsk {
		return
	}
	mid := schema.Price((int64(bbo.Bid.Price) + int64(bbo.Ask.Price)) / 2)

	if q.bid.localID != 0 || q.ask.localID != 0 {
		if q.mid != 0 && !drifted(int64(mid), int64(q.mid), q.cfg.RequoteBps) {
			return
		}
		q.cancelSide(&q.bid)
		q.cancelSide(&q.ask)
	}

	if q.bid.localID == 0 {
		price := offsetPrice(mid, -q.cfg.SpreadBps)
		q.place(schema.OrderSideBuy, price, mid, now)
	}
	if q.ask.localID == 0 {
		price := offsetPrice(mid, q.cfg.SpreadBps)
		q.place(schema.OrderSideSell, price, mid, now)
	}
	q.mid = mid
}

// onReport tracks what each fill actually consumed from the side's
// reservation and, once the order terminates, gives back the unconsumed
// part. The consumed amount is priced the same way settlement prices it,
// at the fill price when the venue reports one.
func (q *Quoter) onReport(hash uint64, fillPrice schema.Price) {
	side := q.side(hash)
	if side == nil {
		return
	}
	o, ok := q.orders.GetByClientHash(hash)
	if !ok {
		return
	}

	if o.Filled > side.filled {
		delta := o.Filled - side.filled
		side.filled = o.Filled
		price := fillPrice
		if price == 0 {
			price = o.Price
		}
		side.consumed += q.lockFor(o.Side, price, delta)
	}

	if !o.Status.Terminal() {
		return
	}
	if remainder := side.reserved - side.consumed; remainder > 0 {
		if err := q.balances.Release(side.account, side.asset, remainder); err != nil {
			logs.Errorf("release %d of asset %d on account %d, err: %+v", remainder, side.asset, side.account, err)
		}
	}
	*side = quote{}
}

func (q *Quoter) place(side schema.OrderSide, price, mid schema.Price, now int64) {
	if price <= 0 {
		return
	}

	q.next++
	cmd := oms.OrderCommand{
		ClientID: fmt.Sprintf("q%d-%d-%d", q.cfg.Venue, q.cfg.Symbol, q.next),
		Venue:    q.cfg.Venue,
		Symbol:   q.cfg.Symbol,
		Side:     side,
		Type:     schema.OrderTypeLimit,
		Price:    price,
		Qty:      q.cfg.QuoteQty,
	}
	if d := q.risk.Evaluate(cmd, risk.StateView{ReferencePrice: mid, Now: now}); !d.Allowed() {
		logs.Infof("quote denied venue=%d symbol=%d side=%d: %s", q.cfg.Venue, q.cfg.Symbol, side, d.Reason)
		return
	}

	asset := q.base
	if side == schema.OrderSideBuy {
		asset = q.quote
	}
	required := q.lockFor(side, price, q.cfg.QuoteQty)
	account, ok := q.balances.SelectAccount(q.cfg.Account, asset, required)
	if !ok {
		logs.Infof("no account can fund %d of asset %d for symbol %d", required, asset, q.cfg.Symbol)
		return
	}
	if err := q.balances.Reserve(account, asset, required); err != nil {
		logs.Errorf("reserve %d of asset %d on account %d, err: %+v", required, asset, account, err)
		return
	}

	cmd.Account = account
	o, err := q.orders.Submit(cmd)
	if err != nil {
		if relErr := q.balances.Release(account, asset, required); relErr != nil {
			logs.Errorf("release after failed submit, err: %+v", relErr)
		}
		logs.Errorf("submit quote venue=%d symbol=%d side=%d, err: %+v", q.cfg.Venue, q.cfg.Symbol, side, err)
		return
	}

	slot := &q.ask
	if side == schema.OrderSideBuy {
		slot = &q.bid
	}
	*slot = quote{localID: o.LocalID, hash: o.ClientHash, account: account, asset: asset, reserved: required}
}

func (q *Quoter) cancelSide(s *quote) {
	if s.localID == 0 {
		return
	}
	if err := q.orders.RequestCancel(s.localID); err != nil {
		logs.Errorf("cancel quote order=%d, err: %+v", s.localID, err)
	}
}

func (q *Quoter) side(hash uint64) *quote {
	switch hash {
	case 0:
		return nil
	case q.bid.hash:
		return &q.bid
	case q.ask.hash:
		return &q.ask
	}
	return nil
}

// lockFor returns the balance a resting order of the given shape ties up: the
// quote notional for buys, the base quantity for sells.
func (q *Quoter) lockFor(side schema.OrderSide, price schema.Price, qty schema.Quantity) schema.Amount {
	if side == schema.OrderSideBuy {
		return schema.Amount(int64(price) * int64(qty) / schema.E8)
	}
	return schema.Amount(qty)
}

func offsetPrice(mid schema.Price, bps int64) schema.Price {
	return mid + schema.Price(int64(mid)*bps/10_000)
}

func drifted(mid, quoted, bps int64) bool {
	diff := mid - quoted
	if diff < 0 {
		diff = -diff
	}
	return diff*10_000 > quoted*bps
}
