package oms

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"main/internal/schema"
	"main/pkg/exception"
)

// OrderCommand is the execution gateway's wire-agnostic order request. A
// command with zero price, qty and side but populated cancel fields is a
// cancel for the order identified by LocalID.
type OrderCommand struct {
	LocalID     uint64
	ClientID    string
	Account     schema.AccountID
	Venue       schema.VenueID
	Symbol      schema.SymbolID
	Price       schema.Price
	Qty         schema.Quantity
	Side        schema.OrderSide
	Type        schema.OrderType
	TimeInForce schema.TimeInForce
	Cancel      schema.CancelMeta
}

// IsCancel reports whether the command is a cancel request.
func (c OrderCommand) IsCancel() bool {
	return c.Price == 0 && c.Qty == 0 && c.Side == schema.OrderSideUnknown &&
		(c.Cancel.PairID != 0 || c.Cancel.Flags != 0 || c.Cancel.ExpiresAt != 0)
}

// TransferCommand moves balance between venue accounts.
type TransferCommand struct {
	From   schema.AccountID
	To     schema.AccountID
	Asset  schema.AssetID
	Amount schema.Amount
}

// ExecutionGateway hands commands off to a venue transport. Both calls must
// return without blocking; a full transport means the command is dropped and
// the caller observes the order never reaching the venue.
type ExecutionGateway interface {
	SendOrder(cmd OrderCommand) error
	Transfer(cmd TransferCommand) error
}

// Transport delivers commands to one venue. Implementations own retries,
// signing and connection state.
type Transport interface {
	Execute(ctx context.Context, cmd OrderCommand) error
	ExecuteTransfer(ctx context.Context, cmd TransferCommand) error
}

// AsyncGateway is a channel-backed ExecutionGateway. Worker goroutines drain
// the queues into the venue transport so the caller never waits on venue I/O.
type AsyncGateway struct {
	transport Transport

	running   atomic.Bool
	worker    int
	orders    chan OrderCommand
	transfers chan TransferCommand
}

// NewAsyncGateway creates a gateway with the given worker count and per-queue
// capacity.
func NewAsyncGateway(transport Transport, workerCount, queueCap int) *AsyncGateway {
	return &AsyncGateway{
		transport: transport,
		worker:    workerCount,
		orders:    make(chan OrderCommand, queueCap),
		transfers: make(chan TransferCommand, queueCap),
	}
}

// SendOrder queues an order command. A full queue drops the command.
func (g *AsyncGateway) SendOrder(cmd OrderCommand) error {
	select {
	case g.orders <- cmd:
		return nil
	default:
		logs.Errorf("order gateway queue full, dropped order local_id=%d venue=%d", cmd.LocalID, cmd.Venue)
		return exception.ErrOrderChannelFull
	}
}

// Transfer queues a transfer command. A full queue drops the command.
func (g *AsyncGateway) Transfer(cmd TransferCommand) error {
	select {
	case g.transfers <- cmd:
		return nil
	default:
		logs.Errorf("order gateway queue full, dropped transfer from=%d to=%d asset=%d", cmd.From, cmd.To, cmd.Asset)
		return exception.ErrOrderChannelFull
	}
}

// Run starts the worker goroutines. Calling it twice is a no-op.
func (g *AsyncGateway) Run(ctx context.Context) {
	if g.running.Swap(true) {
		return
	}

	for range g.worker {
		go workerExecuteCommand(ctx, g.orders, g.transfers, g.transport)
	}
}

func workerExecuteCommand(ctx context.Context, orders chan OrderCommand, transfers chan TransferCommand, transport Transport) {
	for {
		select {
		case cmd := <-orders:
			if err := transport.Execute(ctx, cmd); err != nil {
				logs.Errorf("execute order local_id=%d venue=%d, err: %+v", cmd.LocalID, cmd.Venue, err)
			}
		case cmd := <-transfers:
			if err := transport.ExecuteTransfer(ctx, cmd); err != nil {
				logs.Errorf("execute transfer from=%d to=%d asset=%d, err: %+v", cmd.From, cmd.To, cmd.Asset, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
