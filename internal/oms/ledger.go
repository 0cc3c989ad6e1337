package oms

import (
	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/pkg/exception"
)

// OrderUpdate is one normalized account-order report from a venue. ClientHash
// correlates it with a ledger order; FilledQty is the venue's cumulative fill.
type OrderUpdate struct {
	ClientHash uint64
	ExchangeID int64
	Status     schema.OrderStatus
	FilledQty  schema.Quantity
	FillPrice  schema.Price
	Cancel     schema.CancelMeta
}

// Transition is the observable result of applying one update.
type Transition struct {
	Order     *Order
	From      Status
	FillDelta schema.Quantity // newly filled quantity, 0 if none
	FillPrice schema.Price
}

// Ledger tracks every order the session has originated. Updates arrive only
// on the dispatcher thread, so the ledger takes no locks.
type Ledger struct {
	gateway ExecutionGateway

	byLocal map[uint64]*Order
	byHash  map[uint64]*Order
	nextID  uint64
}

// NewLedger creates an empty order ledger bound to an execution gateway.
func NewLedger(gateway ExecutionGateway) *Ledger {
	return &Ledger{
		gateway: gateway,
		byLocal: make(map[uint64]*Order),
		byHash:  make(map[uint64]*Order),
	}
}

// Get returns an order by local id.
func (l *Ledger) Get(localID uint64) (*Order, bool) {
	o, ok := l.byLocal[localID]
	return o, ok
}

// GetByClientHash returns an order by the hash of its client id.
func (l *Ledger) GetByClientHash(hash uint64) (*Order, bool) {
	o, ok := l.byHash[hash]
	return o, ok
}

// Len returns the number of tracked orders, terminal included.
func (l *Ledger) Len() int { return len(l.byLocal) }

// Submit registers a new order and hands it to the gateway. The order enters
// PendingNew once the gateway accepts it; a gateway drop leaves it Created so
// the caller can retry or abandon it.
func (l *Ledger) Submit(cmd OrderCommand) (*Order, error) {
	if cmd.ClientID == "" || cmd.Qty <= 0 || cmd.Side == schema.OrderSideUnknown {
		return nil, exception.ErrOrderInvalidRequest
	}

	hash := HashClientID(cmd.ClientID)
	if _, ok := l.byHash[hash]; ok {
		return nil, exception.ErrOrderDuplicate
	}

	l.nextID++
	o := &Order{
		LocalID:     l.nextID,
		ClientID:    cmd.ClientID,
		ClientHash:  hash,
		Account:     cmd.Account,
		Venue:       cmd.Venue,
		Symbol:      cmd.Symbol,
		Side:        cmd.Side,
		Type:        cmd.Type,
		TimeInForce: cmd.TimeInForce,
		Price:       cmd.Price,
		Qty:         cmd.Qty,
		Status:      StatusCreated,
		Cancel:      cmd.Cancel,
	}
	l.byLocal[o.LocalID] = o
	l.byHash[hash] = o

	cmd.LocalID = o.LocalID
	if err := l.gateway.SendOrder(cmd); err != nil {
		return o, err
	}
	o.Status = StatusPendingNew
	return o, nil
}

// RequestCancel sends a fire-and-forget cancel for an order. The order moves
// to PendingCancel and stays there until the venue's terminal report arrives.
func (l *Ledger) RequestCancel(localID uint64) error {
	o, ok := l.byLocal[localID]
	if !ok {
		return exception.ErrOrderUnknown
	}
	if o.Status.Terminal() {
		return exception.ErrOrderInvalidTransition
	}

	cancel := o.Cancel
	if cancel.PairID == 0 {
		// venues that report no cancel metadata key cancels off the order
		// ids instead
		if o.ExchangeID > 0 {
			cancel.PairID = uint64(o.ExchangeID)
		} else {
			cancel.PairID = o.LocalID
		}
	}
	o.Cancel = cancel

	cmd := OrderCommand{
		LocalID:  o.LocalID,
		ClientID: o.ClientID,
		Account:  o.Account,
		Venue:    o.Venue,
		Symbol:   o.Symbol,
		Cancel:   cancel,
	}
	if err := l.gateway.SendOrder(cmd); err != nil {
		return err
	}
	o.Status = StatusPendingCancel
	return nil
}

// ApplyUpdate folds one venue report into the ledger. Malformed reports
// (unknown client hash, cumulative fill above the order quantity) are logged
// and dropped without touching ledger state.
func (l *Ledger) ApplyUpdate(u OrderUpdate) (Transition, error) {
	o, ok := l.byHash[u.ClientHash]
	if !ok {
		logs.Errorf("order update for unknown client hash %d, dropped", u.ClientHash)
		return Transition{}, exception.ErrOrderUnknownClientHash
	}

	if u.FilledQty > o.Qty {
		logs.Errorf("order %d reported filled %d above quantity %d, dropped", o.LocalID, u.FilledQty, o.Qty)
		return Transition{Order: o, From: o.Status}, exception.ErrOrderOverfill
	}
	if u.FilledQty < o.Filled {
		// cumulative fill never regresses; a lower value is a stale report
		logs.Errorf("order %d reported filled %d below ledger %d, dropped", o.LocalID, u.FilledQty, o.Filled)
		return Transition{Order: o, From: o.Status}, exception.ErrOrderInvalidTransition
	}

	next, ok := nextStatus(o.Status, u.Status)
	if !ok {
		logs.Errorf("order %d invalid transition %v -> %v, dropped", o.LocalID, o.Status, u.Status)
		return Transition{Order: o, From: o.Status}, exception.ErrOrderInvalidTransition
	}

	tr := Transition{Order: o, From: o.Status, FillPrice: u.FillPrice}
	if u.FilledQty > o.Filled {
		tr.FillDelta = u.FilledQty - o.Filled
		o.Filled = u.FilledQty
	}
	if u.ExchangeID != 0 {
		o.ExchangeID = u.ExchangeID
	}
	if u.Cancel != (schema.CancelMeta{}) {
		o.Cancel = u.Cancel
	}
	o.Status = next
	return tr, nil
}

// nextStatus maps a venue-reported status onto the local lifecycle given the
// current state. Terminal states accept nothing further.
func nextStatus(current Status, reported schema.OrderStatus) (Status, bool) {
	if current.Terminal() {
		return current, false
	}

	switch reported {
	case schema.OrderStatusNew:
		switch current {
		case StatusCreated, StatusPendingNew, StatusNew, StatusPartFilled:
			return StatusNew, true
		case StatusPendingCancel:
			// cancel in flight, the ack for the original order may still land
			return StatusPendingCancel, true
		}
	case schema.OrderStatusPartFilled:
		if current == StatusPendingCancel {
			return StatusPendingCancel, true
		}
		return StatusPartFilled, true
	case schema.OrderStatusFilled:
		return StatusFilled, true
	case schema.OrderStatusCanceled, schema.OrderStatusExpired:
		return StatusCanceled, true
	case schema.OrderStatusRejected:
		if current == StatusPendingNew || current == StatusCreated {
			return StatusRejected, true
		}
	}
	return current, false
}
