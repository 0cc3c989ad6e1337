package risk

import (
	"sync/atomic"
	"time"

	"main/internal/oms"
	"main/internal/schema"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Action is the outcome of a risk evaluation.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a deny.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxQty
	ReasonMaxNotional
	ReasonPriceBand
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill_switch"
	case ReasonRateLimit:
		return "rate_limit"
	case ReasonMaxQty:
		return "max_qty"
	case ReasonMaxNotional:
		return "max_notional"
	case ReasonPriceBand:
		return "price_band"
	default:
		return "unknown"
	}
}

// Config defines static order-origination limits.
type Config struct {
	MaxOrderQty          schema.Quantity `json:"maxOrderQty"`
	MaxOrderNotional     schema.Amount   `json:"maxOrderNotional"`
	OrderRateLimit       int             `json:"orderRateLimit"`
	OrderRateWindow      time.Duration   `json:"orderRateWindow"`
	MaxPriceDeviationBps int64           `json:"maxPriceDeviationBps"`
}

// StateView carries the market context for one evaluation.
type StateView struct {
	ReferencePrice schema.Price
	Now            int64
}

// Decision is the result of evaluating one order command.
type Decision struct {
	Action Action
	Reason Reason
}

// Allowed reports whether the command may go out.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }

// Engine gates order origination. Evaluate runs on the dispatcher thread; the
// kill switch is atomic so operator commands can flip it from anywhere. When
// engaged it halts new orders only, never book or ledger maintenance.
type Engine struct {
	cfg    Config
	killed atomic.Bool

	rateWindowStart int64
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Engage flips the kill switch on.
func (e *Engine) Engage() { e.killed.Store(true) }

// Disengage flips the kill switch off.
func (e *Engine) Disengage() { e.killed.Store(false) }

// Engaged reports the kill switch state.
func (e *Engine) Engaged() bool { return e.killed.Load() }

// Evaluate applies the configured checks to an order command. Cancels always
// pass: tearing down exposure must work even when the switch is engaged.
func (e *Engine) Evaluate(cmd oms.OrderCommand, state StateView) Decision {
	if cmd.IsCancel() {
		return Decision{Action: ActionAllow}
	}

	if e.killed.Load() {
		return Decision{Action: ActionDeny, Reason: ReasonKillSwitch}
	}

	now := state.Now
	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return Decision{Action: ActionDeny, Reason: ReasonRateLimit}
		}
	}

	if e.cfg.MaxOrderQty > 0 && cmd.Qty > e.cfg.MaxOrderQty {
		return Decision{Action: ActionDeny, Reason: ReasonMaxQty}
	}

	if e.cfg.MaxPriceDeviationBps > 0 && cmd.Type == schema.OrderTypeLimit && cmd.Price > 0 {
		ref := int64(state.ReferencePrice)
		if ref > 0 {
			diff := absInt64(int64(cmd.Price) - ref)
			if exceedsDeviation(diff, ref, e.cfg.MaxPriceDeviationBps) {
				return Decision{Action: ActionDeny, Reason: ReasonPriceBand}
			}
		}
	}

	notional, overflow := Notional(cmd.Price, cmd.Qty)
	if overflow {
		return Decision{Action: ActionDeny, Reason: ReasonMaxNotional}
	}
	if e.cfg.MaxOrderNotional > 0 && notional > e.cfg.MaxOrderNotional {
		return Decision{Action: ActionDeny, Reason: ReasonMaxNotional}
	}

	return Decision{Action: ActionAllow}
}

// Notional multiplies price by quantity, dropping one e8 scale so the
// result stays an e8 amount. Overflow of the raw product reports true.
func Notional(price schema.Price, qty schema.Quantity) (schema.Amount, bool) {
	p := int64(price)
	q := int64(qty)
	if p == 0 || q == 0 {
		return 0, false
	}
	if p < 0 {
		p = -p
	}
	if q < 0 {
		q = -q
	}
	if p > maxInt64/q {
		return 0, true
	}
	return schema.Amount(p * q / schema.E8), false
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func exceedsDeviation(diff int64, ref int64, bps int64) bool {
	if diff <= 0 || ref <= 0 || bps <= 0 {
		return false
	}
	if diff > maxInt64/10000 {
		return true
	}
	lhs := diff * 10000
	if ref > maxInt64/bps {
		return true
	}
	rhs := ref * bps
	return lhs > rhs
}
