package schema

import "testing"

func TestRecordResetZeroesEverything(t *testing.T) {
	var r EventRecord
	r.Meta = EventMeta{
		Kind:    EventDepth,
		Venue:   1,
		Symbol:  7,
		Account: 3,
		Seq:     42,
		FirstID: 40,
		TsEvent: 1700000000123,
		TsRecv:  1700000000456,
	}
	r.Market = MarketPayload{Price: 100 * Price(E8), Qty: 5 * Quantity(E8)}
	r.Depth.BidCount = 3
	r.Depth.AskCount = 2
	for i := 0; i < 3; i++ {
		r.Depth.BidPrice[i] = Price(100 - i)
		r.Depth.BidQty[i] = Quantity(i + 1)
	}
	for i := 0; i < 2; i++ {
		r.Depth.AskPrice[i] = Price(101 + i)
		r.Depth.AskQty[i] = Quantity(i + 1)
	}
	r.Exec = ExecPayload{OrderID: 9, ClientHash: 0xdead, Status: OrderStatusPartFilled, FilledQty: 1}
	r.Fills.Count = 2
	r.Fills.Price[0], r.Fills.Qty[0] = 101, 1
	r.Fills.Price[1], r.Fills.Qty[1] = 102, 2
	r.Fills.Total = 3
	r.Orders.Count = 1
	r.Orders.ClientHash[0] = 77
	r.Orders.Cancel[0] = CancelMeta{PairID: 5, Flags: 1, ExpiresAt: 999}
	r.Balances.Count = 2
	r.Balances.Asset[0], r.Balances.Free[0], r.Balances.Locked[0] = 1, 10, 2
	r.Balances.Asset[1], r.Balances.Free[1], r.Balances.Locked[1] = 2, 20, 0
	r.Transfer = TransferPayload{Asset: 1, Amount: 5, Direction: TransferCredit}
	r.Command = CommandPayload{Op: CommandHalt}

	r.Reset()

	var zero EventRecord
	if r != zero {
		t.Fatalf("record not fully zeroed after reset: %+v", r)
	}
}

func TestRecordResetIdempotent(t *testing.T) {
	var r EventRecord
	r.Depth.BidCount = 5
	r.Depth.BidPrice[4] = 99
	r.Reset()
	r.Reset()

	var zero EventRecord
	if r != zero {
		t.Fatalf("record not zeroed after double reset")
	}
}
