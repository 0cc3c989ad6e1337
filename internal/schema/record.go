package schema

// EventKind defines the category of an event record.
type EventKind uint16

const (
	EventUnknown EventKind = iota
	EventMarketTick
	EventDepth
	EventExecution
	EventAccountOrders
	EventAccountBalances
	EventTransfer
	EventCommand
	EventConfig
	EventTimer
)

// Payload section capacities. Fixed so records never reallocate.
const (
	DepthCapacity        = 128
	FillCapacity         = 32
	OrderBatchCapacity   = 64
	BalanceBatchCapacity = 64
)

// SnapshotFirstID is the reserved first-update-id marking a depth record as a
// full snapshot on SyncStyleSentinel venues. Venue delta ids are never
// negative.
const SnapshotFirstID int64 = -1

// EventMeta is the common metadata attached to every event record.
type EventMeta struct {
	Kind    EventKind
	Venue   VenueID
	Symbol  SymbolID
	Account AccountID
	Seq     int64 // update/sequence id; final update id for depth increments
	FirstID int64 // first update id for depth increments
	TsEvent int64
	TsRecv  int64
}

// MarketPayload carries a single trade tick.
type MarketPayload struct {
	Price Price
	Qty   Quantity
}

// DepthPayload carries parallel bid/ask arrays. Entries are valid only up to
// BidCount/AskCount.
type DepthPayload struct {
	BidPrice [DepthCapacity]Price
	BidQty   [DepthCapacity]Quantity
	AskPrice [DepthCapacity]Price
	AskQty   [DepthCapacity]Quantity
	BidCount int
	AskCount int
}

// ExecPayload carries a single execution/order update report.
type ExecPayload struct {
	OrderID    uint64 // local order id when known, else 0
	ClientHash uint64
	ExchangeID int64
	Side       OrderSide
	Type       OrderType
	Status     OrderStatus
	FilledQty  Quantity
	FillPrice  Price
}

// FillBatch carries the per-fill breakdown of an execution report. Entries are
// valid only up to Count.
type FillBatch struct {
	Price [FillCapacity]Price
	Qty   [FillCapacity]Quantity
	Count int
	Total Quantity
}

// CancelMeta carries venue-specific cancellation fields.
type CancelMeta struct {
	PairID    uint64
	Flags     uint32
	ExpiresAt int64 // epoch seconds
}

// AccountOrderBatch carries a venue account-orders sync. Entries are valid
// only up to Count.
type AccountOrderBatch struct {
	ClientHash [OrderBatchCapacity]uint64
	Symbol     [OrderBatchCapacity]SymbolID
	Price      [OrderBatchCapacity]Price
	Qty        [OrderBatchCapacity]Quantity
	FilledQty  [OrderBatchCapacity]Quantity
	Side       [OrderBatchCapacity]OrderSide
	Status     [OrderBatchCapacity]OrderStatus
	Cancel     [OrderBatchCapacity]CancelMeta
	Count      int
}

// BalanceBatch carries a venue balance sync. Entries are valid only up to
// Count.
type BalanceBatch struct {
	Asset  [BalanceBatchCapacity]AssetID
	Free   [BalanceBatchCapacity]Amount
	Locked [BalanceBatchCapacity]Amount
	Count  int
}

// TransferPayload carries an inter-account transfer confirmation.
type TransferPayload struct {
	Asset     AssetID
	Amount    Amount
	Direction TransferDirection
}

// CommandPayload carries an operator/strategy command.
type CommandPayload struct {
	Op CommandOp
}

// EventRecord is the fixed-shape, reusable event container. One record is
// created per ring slot at startup and recycled after every consume; it is
// never reallocated while the process runs.
//
// Downstream logic determines validity by scanning for non-zero entries up to
// the section counts, so Reset must run before any reuse: stale data from a
// prior event is corruption, not merely unused memory.
type EventRecord struct {
	Meta     EventMeta
	Market   MarketPayload
	Depth    DepthPayload
	Exec     ExecPayload
	Fills    FillBatch
	Orders   AccountOrderBatch
	Balances BalanceBatch
	Transfer TransferPayload
	Command  CommandPayload
}

// Reset overwrites every scalar field and every array slot up to its previous
// valid count with its zero value.
func (r *EventRecord) Reset() {
	r.Meta = EventMeta{}
	r.Market = MarketPayload{}
	r.Exec = ExecPayload{}
	r.Transfer = TransferPayload{}
	r.Command = CommandPayload{}

	for i := 0; i < r.Depth.BidCount && i < DepthCapacity; i++ {
		r.Depth.BidPrice[i] = 0
		r.Depth.BidQty[i] = 0
	}
	for i := 0; i < r.Depth.AskCount && i < DepthCapacity; i++ {
		r.Depth.AskPrice[i] = 0
		r.Depth.AskQty[i] = 0
	}
	r.Depth.BidCount = 0
	r.Depth.AskCount = 0

	for i := 0; i < r.Fills.Count && i < FillCapacity; i++ {
		r.Fills.Price[i] = 0
		r.Fills.Qty[i] = 0
	}
	r.Fills.Count = 0
	r.Fills.Total = 0

	for i := 0; i < r.Orders.Count && i < OrderBatchCapacity; i++ {
		r.Orders.ClientHash[i] = 0
		r.Orders.Symbol[i] = 0
		r.Orders.Price[i] = 0
		r.Orders.Qty[i] = 0
		r.Orders.FilledQty[i] = 0
		r.Orders.Side[i] = 0
		r.Orders.Status[i] = 0
		r.Orders.Cancel[i] = CancelMeta{}
	}
	r.Orders.Count = 0

	for i := 0; i < r.Balances.Count && i < BalanceBatchCapacity; i++ {
		r.Balances.Asset[i] = 0
		r.Balances.Free[i] = 0
		r.Balances.Locked[i] = 0
	}
	r.Balances.Count = 0
}
