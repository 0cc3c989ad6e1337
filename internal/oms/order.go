package oms

import (
	"hash/fnv"

	"main/internal/schema"
)

// Status tracks the local lifecycle of an order.
type Status uint16

const (
	StatusCreated Status = iota
	StatusPendingNew
	StatusNew
	StatusPartFilled
	StatusFilled
	StatusPendingCancel
	StatusCanceled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusPendingNew:
		return "pending_new"
	case StatusNew:
		return "new"
	case StatusPartFilled:
		return "part_filled"
	case StatusFilled:
		return "filled"
	case StatusPendingCancel:
		return "pending_cancel"
	case StatusCanceled:
		return "canceled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// Order is the ledger's view of one order. Terminal orders stay in the ledger
// so late venue reports still correlate.
type Order struct {
	LocalID    uint64
	ExchangeID int64 // 0 until the venue acks
	ClientID   string
	ClientHash uint64

	Account schema.AccountID
	Venue   schema.VenueID
	Symbol  schema.SymbolID

	Side        schema.OrderSide
	Type        schema.OrderType
	TimeInForce schema.TimeInForce
	Price       schema.Price
	Qty         schema.Quantity
	Filled      schema.Quantity

	Status Status
	Cancel schema.CancelMeta
}

// Leaves returns the unfilled quantity.
func (o *Order) Leaves() schema.Quantity {
	return o.Qty - o.Filled
}

// HashClientID maps a client order id to the 64-bit key the venue echoes back
// on order updates. FNV-1a keeps it allocation free.
func HashClientID(clientID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(clientID))
	return h.Sum64()
}
