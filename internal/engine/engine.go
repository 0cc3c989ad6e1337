// Package engine assembles the trading kernel from a loaded configuration:
// books, ledgers, risk, strategies and the dispatcher, wired the same way for
// live trading and WAL replay.
package engine

import (
	"context"
	"strings"

	"github.com/yanun0323/errors"

	"main/internal/book"
	"main/internal/dispatcher"
	"main/internal/ingest/binance"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/ops"
	"main/internal/position"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/strategy"
)

// Engine holds the assembled kernel.
type Engine struct {
	Registry *schema.Registry
	Books    *book.Registry
	Orders   *oms.Ledger
	Balances *position.Ledger
	Risk     *risk.Engine
	Metrics  *obs.Metrics

	boots *book.Supervisor
	disp  *dispatcher.Dispatcher
}

// New builds the kernel. writer may be nil to disable recording; gateway is
// where order flow leaves the engine.
func New(loaded ops.Loaded, gateway oms.ExecutionGateway, metrics *obs.Metrics, writer *recorder.Writer) (*Engine, error) {
	books := book.NewRegistry()
	boots := book.NewSupervisor(newFetcherMux(loaded.Registry), loaded.BootstrapRetry)
	orders := oms.NewLedger(gateway)
	balances := position.NewLedger()
	riskEngine := risk.NewEngine(loaded.Risk)

	var strat dispatcher.Strategy
	if len(loaded.Quotes) > 0 {
		quoters := make(fanout, 0, len(loaded.Quotes))
		for _, cfg := range loaded.Quotes {
			q, err := strategy.NewQuoter(cfg, loaded.Registry, books, orders, balances, riskEngine)
			if err != nil {
				return nil, errors.Wrap(err, "build quoter")
			}
			quoters = append(quoters, q)
		}
		strat = quoters
	}

	return &Engine{
		Registry: loaded.Registry,
		Books:    books,
		Orders:   orders,
		Balances: balances,
		Risk:     riskEngine,
		Metrics:  metrics,
		boots:    boots,
		disp:     dispatcher.New(loaded.Registry, books, boots, orders, balances, riskEngine, writer, metrics, strat),
	}, nil
}

// Dispatcher returns the event router for the ring consumer loop.
func (e *Engine) Dispatcher() *dispatcher.Dispatcher { return e.disp }

// Wait blocks until in-flight book bootstrap tasks finish.
func (e *Engine) Wait() { e.boots.Wait() }

// fanout invokes every strategy in order on the dispatcher thread.
type fanout []dispatcher.Strategy

func (f fanout) OnEvent(rec *schema.EventRecord) {
	for _, s := range f {
		s.OnEvent(rec)
	}
}

// NopGateway drops every command. Replay mode has no venue to talk to.
type NopGateway struct{}

func (NopGateway) SendOrder(oms.OrderCommand) error   { return nil }
func (NopGateway) Transfer(oms.TransferCommand) error { return nil }

// fetcherMux routes bootstrap snapshot fetches to the owning venue's client.
// Sentinel venues never bootstrap and get no entry.
type fetcherMux map[schema.VenueID]book.SnapshotFetcher

func (m fetcherMux) FetchDepthSnapshot(ctx context.Context, venue schema.VenueID, symbol schema.SymbolID) (book.Snapshot, error) {
	f, ok := m[venue]
	if !ok {
		return book.Snapshot{}, errors.Errorf("no snapshot source for venue %d", venue)
	}
	return f.FetchDepthSnapshot(ctx, venue, symbol)
}

func newFetcherMux(reg *schema.Registry) fetcherMux {
	mux := fetcherMux{}
	for id := schema.VenueID(1); ; id++ {
		venue, ok := reg.Venue(id)
		if !ok {
			break
		}
		if venue.Style != schema.SyncStyleSequenced {
			continue
		}
		if strings.ToLower(venue.Name) == "binance" {
			mux[id] = binance.NewSnapshotClient(reg)
		}
	}
	return mux
}
