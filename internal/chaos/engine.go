// Package chaos perturbs recorded event streams. Feeding a perturbed stream
// back through the replay pipeline drills the book's gap detection, rebuild
// and stale-discard paths against realistic wire faults.
package chaos

import (
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Event is one recorded event in flight through the injector.
type Event struct {
	Meta    schema.EventMeta
	Payload []byte
}

// Config selects the faults to inject. All rates are probabilities per event.
type Config struct {
	Seed          int64 // 0 seeds from the clock
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int // window of 1 keeps order
	MaxDelay      time.Duration
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.DropRate < 0 || c.DropRate > 1:
		return errors.New("drop rate outside [0, 1]")
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return errors.New("duplicate rate outside [0, 1]")
	case c.ReorderWindow <= 0:
		return errors.New("reorder window must be >= 1")
	case c.MaxDelay < 0:
		return errors.New("max delay must be >= 0")
	}
	return nil
}

// Engine applies the configured faults. Deterministic for a fixed seed.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	window []Event
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Process runs one event through the fault chain and returns whatever is
// released: nothing when dropped or still buffered in the reorder window, one
// or two events otherwise.
func (e *Engine) Process(ev Event) []Event {
	if e == nil {
		return []Event{ev}
	}
	if e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate {
		return nil
	}
	ev = e.delay(ev)
	if e.cfg.ReorderWindow <= 1 {
		return e.emit(ev)
	}
	e.window = append(e.window, ev)
	if len(e.window) < e.cfg.ReorderWindow {
		return nil
	}
	return e.emit(e.takeRandom())
}

// Flush releases the reorder window in random order. Call once after the last
// Process.
func (e *Engine) Flush() []Event {
	if e == nil {
		return nil
	}
	var out []Event
	for len(e.window) > 0 {
		out = append(out, e.emit(e.takeRandom())...)
	}
	return out
}

func (e *Engine) takeRandom() Event {
	idx := e.rng.Intn(len(e.window))
	ev := e.window[idx]
	e.window = append(e.window[:idx], e.window[idx+1:]...)
	return ev
}

// emit forwards the event, optionally twice.
func (e *Engine) emit(ev Event) []Event {
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		return []Event{ev, ev}
	}
	return []Event{ev}
}

// delay pushes the receive timestamp forward by up to MaxDelay. Event time is
// untouched; the spread between the two is what a delayed wire looks like.
func (e *Engine) delay(ev Event) Event {
	if e.cfg.MaxDelay <= 0 {
		return ev
	}
	d := e.rng.Int63n(e.cfg.MaxDelay.Nanoseconds() + 1)
	if d == 0 {
		return ev
	}
	switch {
	case ev.Meta.TsRecv > 0:
		ev.Meta.TsRecv += d
	case ev.Meta.TsEvent > 0:
		ev.Meta.TsRecv = ev.Meta.TsEvent + d
	}
	return ev
}
