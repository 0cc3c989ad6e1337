package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/oms"
	"main/internal/position"
	"main/internal/risk"
	"main/internal/schema"
)

type stubGateway struct {
	sent []oms.OrderCommand
}

func (g *stubGateway) SendOrder(cmd oms.OrderCommand) error   { g.sent = append(g.sent, cmd); return nil }
func (g *stubGateway) Transfer(cmd oms.TransferCommand) error { return nil }

type quoterFixture struct {
	q        *Quoter
	orders   *oms.Ledger
	balances *position.Ledger
	risk     *risk.Engine
	gateway  *stubGateway

	venue   schema.VenueID
	symbol  schema.SymbolID
	account schema.AccountID
	base    schema.AssetID
	quote   schema.AssetID
}

func newQuoterFixture(t *testing.T) *quoterFixture {
	t.Helper()
	reg := schema.NewRegistry()
	venue, err := reg.AddVenue("alpha", schema.SyncStyleSequenced, false)
	require.NoError(t, err)
	base, err := reg.AddAsset("BTC")
	require.NoError(t, err)
	quote, err := reg.AddAsset("USDT")
	require.NoError(t, err)
	symbol, err := reg.AddSymbol("BTCUSDT", venue, base, quote)
	require.NoError(t, err)
	account, err := reg.AddAccount("mm-main", venue, "main")
	require.NoError(t, err)

	gateway := &stubGateway{}
	orders := oms.NewLedger(gateway)
	balances := position.NewLedger()
	balances.ApplyTransfer(account, quote, schema.Amount(10_000*schema.E8), schema.TransferCredit)
	balances.ApplyTransfer(account, base, schema.Amount(10*schema.E8), schema.TransferCredit)

	books := book.NewRegistry()
	b := books.GetOrCreate(venue, symbol)
	b.ApplySnapshot(book.Snapshot{
		Version: 1,
		Bids:    []book.Level{{Price: schema.Price(99 * schema.E8), Qty: schema.Quantity(schema.E8)}},
		Asks:    []book.Level{{Price: schema.Price(101 * schema.E8), Qty: schema.Quantity(schema.E8)}},
	})
	b.SetState(book.StateSynced)

	riskEngine := risk.NewEngine(risk.Config{})
	q, err := NewQuoter(QuoterConfig{
		Venue:      venue,
		Symbol:     symbol,
		Account:    []schema.AccountID{account},
		QuoteQty:   schema.Quantity(schema.E8),
		SpreadBps:  10,
		RequoteBps: 5,
	}, reg, books, orders, balances, riskEngine)
	require.NoError(t, err)

	return &quoterFixture{
		q: q, orders: orders, balances: balances, risk: riskEngine, gateway: gateway,
		venue: venue, symbol: symbol, account: account, base: base, quote: quote,
	}
}

func (f *quoterFixture) depthEvent() *schema.EventRecord {
	rec := &schema.EventRecord{}
	rec.Meta = schema.EventMeta{Kind: schema.EventDepth, Venue: f.venue, Symbol: f.symbol}
	return rec
}

func TestQuoterPlacesBothSides(t *testing.T) {
	f := newQuoterFixture(t)

	f.q.OnEvent(f.depthEvent())

	require.Equal(t, 2, f.orders.Len())
	require.Len(t, f.gateway.sent, 2)
	buy, sell := f.gateway.sent[0], f.gateway.sent[1]
	assert.Equal(t, schema.OrderSideBuy, buy.Side)
	assert.Equal(t, schema.OrderSideSell, sell.Side)
	// mid 100, half spread 10 bps
	assert.Equal(t, schema.Price(999*schema.E8/10), buy.Price)
	assert.Equal(t, schema.Price(1001*schema.E8/10), sell.Price)

	assert.Equal(t, schema.Amount(999*schema.E8/10), f.balances.Balance(f.account, f.quote).Locked)
	assert.Equal(t, schema.Amount(schema.E8), f.balances.Balance(f.account, f.base).Locked)
}

func TestQuoterHoldsQuotesWhileMidStable(t *testing.T) {
	f := newQuoterFixture(t)

	f.q.OnEvent(f.depthEvent())
	f.q.OnEvent(f.depthEvent())

	assert.Equal(t, 2, f.orders.Len())
	assert.Len(t, f.gateway.sent, 2)
}

func TestQuoterRequotesOnDrift(t *testing.T) {
	f := newQuoterFixture(t)
	f.q.OnEvent(f.depthEvent())
	require.Len(t, f.gateway.sent, 2)

	// mid moves 100 -> 110, past the 5 bps requote band
	b, ok := f.q.books.Get(f.venue, f.symbol)
	require.True(t, ok)
	b.ApplyDelta(
		[]book.Level{{Price: schema.Price(99 * schema.E8)}, {Price: schema.Price(109 * schema.E8), Qty: 1}},
		[]book.Level{{Price: schema.Price(101 * schema.E8)}, {Price: schema.Price(111 * schema.E8), Qty: 1}},
	)

	f.q.OnEvent(f.depthEvent())

	// both live orders got recognizable cancels, no replacements until the
	// acks land
	require.Len(t, f.gateway.sent, 4)
	assert.True(t, f.gateway.sent[2].IsCancel())
	assert.True(t, f.gateway.sent[3].IsCancel())
	bid, ok := f.orders.Get(1)
	require.True(t, ok)
	assert.Equal(t, oms.StatusPendingCancel, bid.Status)

	// cancel acks release the reservations and the next tick re-quotes
	for _, localID := range []uint64{1, 2} {
		o, ok := f.orders.Get(localID)
		require.True(t, ok)
		_, err := f.orders.ApplyUpdate(oms.OrderUpdate{ClientHash: o.ClientHash, Status: schema.OrderStatusCanceled})
		require.NoError(t, err)
		rec := &schema.EventRecord{}
		rec.Meta.Kind = schema.EventExecution
		rec.Exec.ClientHash = o.ClientHash
		f.q.OnEvent(rec)
	}
	assert.Equal(t, schema.Amount(0), f.balances.Balance(f.account, f.quote).Locked)
	assert.Equal(t, schema.Amount(0), f.balances.Balance(f.account, f.base).Locked)

	f.q.OnEvent(f.depthEvent())
	assert.Equal(t, 4, f.orders.Len())
	// new quotes straddle the new mid of 110
	fresh := f.gateway.sent[len(f.gateway.sent)-2]
	assert.Equal(t, schema.Price(10989*schema.E8/100), fresh.Price)
}

func TestQuoterReleasesByConsumedNotLimit(t *testing.T) {
	f := newQuoterFixture(t)
	// drain the base balance so only the bid goes out
	require.NoError(t, f.balances.ApplyTransfer(f.account, f.base, schema.Amount(10*schema.E8), schema.TransferDebit))

	f.q.OnEvent(f.depthEvent())
	require.Equal(t, 1, f.orders.Len())
	bid, ok := f.orders.Get(1)
	require.True(t, ok)
	require.Equal(t, schema.Price(999*schema.E8/10), bid.Price)
	require.Equal(t, schema.Amount(999*schema.E8/10), f.balances.Balance(f.account, f.quote).Locked)

	// 0.4 BTC fills at 99, below the 99.9 limit; settlement debits at the
	// fill price
	fillPrice := schema.Price(99 * schema.E8)
	fillQty := schema.Quantity(4 * schema.E8 / 10)
	_, err := f.orders.ApplyUpdate(oms.OrderUpdate{
		ClientHash: bid.ClientHash,
		Status:     schema.OrderStatusPartFilled,
		FilledQty:  fillQty,
		FillPrice:  fillPrice,
	})
	require.NoError(t, err)
	require.NoError(t, f.balances.SettleFill(f.account, f.quote, schema.Amount(396*schema.E8/10), schema.TransferDebit))
	require.NoError(t, f.balances.SettleFill(f.account, f.base, schema.Amount(fillQty), schema.TransferCredit))

	rec := &schema.EventRecord{}
	rec.Meta.Kind = schema.EventExecution
	rec.Exec.ClientHash = bid.ClientHash
	rec.Exec.FillPrice = fillPrice
	f.q.OnEvent(rec)

	// the rest cancels; the release must cover exactly what the fill left
	// behind, no quote stranded in locked
	_, err = f.orders.ApplyUpdate(oms.OrderUpdate{
		ClientHash: bid.ClientHash,
		Status:     schema.OrderStatusCanceled,
		FilledQty:  fillQty,
	})
	require.NoError(t, err)
	rec = &schema.EventRecord{}
	rec.Meta.Kind = schema.EventExecution
	rec.Exec.ClientHash = bid.ClientHash
	f.q.OnEvent(rec)

	assert.Equal(t, schema.Amount(0), f.balances.Balance(f.account, f.quote).Locked)
	assert.Equal(t, schema.Amount(10_000*schema.E8-396*schema.E8/10), f.balances.Balance(f.account, f.quote).Free)
}

func TestQuoterRespectsKillSwitch(t *testing.T) {
	f := newQuoterFixture(t)
	f.risk.Engage()

	f.q.OnEvent(f.depthEvent())

	assert.Equal(t, 0, f.orders.Len())
	assert.Equal(t, schema.Amount(0), f.balances.Balance(f.account, f.quote).Locked)
}

func TestQuoterSkipsUnfundableSide(t *testing.T) {
	f := newQuoterFixture(t)
	// drain the base balance so the ask cannot be funded
	require.NoError(t, f.balances.ApplyTransfer(f.account, f.base, schema.Amount(10*schema.E8), schema.TransferDebit))

	f.q.OnEvent(f.depthEvent())

	require.Equal(t, 1, f.orders.Len())
	assert.Equal(t, schema.OrderSideBuy, f.gateway.sent[0].Side)
}
