package codec

import (
	"testing"

	"main/internal/schema"
)

func TestDepthVariableSize(t *testing.T) {
	var p schema.DepthPayload
	p.BidPrice[0] = 100
	p.BidQty[0] = 5
	p.BidCount = 1
	p.AskPrice[0] = 101
	p.AskQty[0] = 7
	p.AskPrice[1] = 102
	p.AskQty[1] = 9
	p.AskCount = 2

	buf := EncodeDepth(nil, &p)
	if want := depthHeaderSize + 3*depthLevelSize; len(buf) != want {
		t.Fatalf("encoded size = %d, want %d", len(buf), want)
	}

	var got schema.DepthPayload
	if !DecodeDepth(buf, &got) {
		t.Fatal("decode failed")
	}
	if got != p {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}

	// truncated payload fails instead of reading garbage
	if DecodeDepth(buf[:len(buf)-1], &schema.DepthPayload{}) {
		t.Fatal("truncated payload decoded")
	}
}

func TestDecodeDepthRejectsOversizedCount(t *testing.T) {
	buf := make([]byte, depthHeaderSize)
	buf[0] = 0xFF
	buf[1] = 0xFF
	if DecodeDepth(buf, &schema.DepthPayload{}) {
		t.Fatal("oversized bid count accepted")
	}
}

func TestExecRoundTripWithFills(t *testing.T) {
	exec := schema.ExecPayload{
		OrderID:    7,
		ClientHash: 0xDEADBEEF,
		ExchangeID: 991,
		Side:       schema.OrderSideSell,
		Type:       schema.OrderTypeLimit,
		Status:     schema.OrderStatusPartFilled,
		FilledQty:  schema.Quantity(3 * schema.E8),
		FillPrice:  schema.Price(100 * schema.E8),
	}
	var fills schema.FillBatch
	fills.Price[0] = schema.Price(100 * schema.E8)
	fills.Qty[0] = schema.Quantity(2 * schema.E8)
	fills.Price[1] = schema.Price(99 * schema.E8)
	fills.Qty[1] = schema.Quantity(schema.E8)
	fills.Count = 2
	fills.Total = schema.Quantity(3 * schema.E8)

	buf := EncodeExec(nil, &exec, &fills)

	var gotExec schema.ExecPayload
	var gotFills schema.FillBatch
	if !DecodeExec(buf, &gotExec, &gotFills) {
		t.Fatal("decode failed")
	}
	if gotExec != exec {
		t.Fatalf("exec mismatch:\n got %+v\nwant %+v", gotExec, exec)
	}
	if gotFills != fills {
		t.Fatalf("fills mismatch:\n got %+v\nwant %+v", gotFills, fills)
	}
}

func TestPayloadDispatchByKind(t *testing.T) {
	rec := &schema.EventRecord{}
	rec.Meta.Kind = schema.EventAccountOrders
	rec.Orders.ClientHash[0] = 42
	rec.Orders.Symbol[0] = 3
	rec.Orders.Status[0] = schema.OrderStatusNew
	rec.Orders.Cancel[0] = schema.CancelMeta{PairID: 11, Flags: 1, ExpiresAt: 1700000000}
	rec.Orders.Count = 1

	buf, ok := EncodePayload(nil, rec)
	if !ok {
		t.Fatal("encode failed")
	}

	out := &schema.EventRecord{}
	if !DecodePayload(schema.EventAccountOrders, buf, out) {
		t.Fatal("decode failed")
	}
	if out.Orders != rec.Orders {
		t.Fatalf("order batch mismatch:\n got %+v\nwant %+v", out.Orders, rec.Orders)
	}

	if _, ok := EncodePayload(nil, &schema.EventRecord{}); ok {
		t.Fatal("unknown kind encoded")
	}
	if !DecodePayload(schema.EventTimer, nil, out) {
		t.Fatal("timer decode should be a no-op success")
	}
}

func TestBalanceAndTransferRoundTrip(t *testing.T) {
	var b schema.BalanceBatch
	b.Asset[0] = 1
	b.Free[0] = schema.Amount(10 * schema.E8)
	b.Locked[0] = schema.Amount(2 * schema.E8)
	b.Asset[1] = 2
	b.Free[1] = schema.Amount(5 * schema.E8)
	b.Count = 2

	buf := EncodeBalanceBatch(nil, &b)
	var gotB schema.BalanceBatch
	if !DecodeBalanceBatch(buf, &gotB) {
		t.Fatal("balance decode failed")
	}
	if gotB != b {
		t.Fatalf("balance mismatch:\n got %+v\nwant %+v", gotB, b)
	}

	tr := schema.TransferPayload{Asset: 2, Amount: schema.Amount(7 * schema.E8), Direction: schema.TransferDebit}
	buf = EncodeTransfer(buf[:0], &tr)
	var gotTr schema.TransferPayload
	if !DecodeTransfer(buf, &gotTr) {
		t.Fatal("transfer decode failed")
	}
	if gotTr != tr {
		t.Fatalf("transfer mismatch: got %+v want %+v", gotTr, tr)
	}
}
