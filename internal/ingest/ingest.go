// Package ingest owns the venue connectors. Each connector holds one
// websocket session, translates the venue's wire format into event records
// and publishes them to the ring. Connectors never touch engine state; the
// dispatcher is the only consumer.
package ingest

import (
	"context"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/ring"
	"main/internal/schema"
)

// Connector streams one venue's data into the event ring.
type Connector interface {
	Start(ctx context.Context) error
	Close()
	Venue() schema.VenueID
}

// Publisher pushes venue events into the ring. The ring never blocks a
// producer; a full ring drops the event and counts it.
type Publisher struct {
	ring    *ring.Ring
	metrics *obs.Metrics
}

// NewPublisher wraps a ring. metrics may be nil.
func NewPublisher(r *ring.Ring, metrics *obs.Metrics) *Publisher {
	return &Publisher{ring: r, metrics: metrics}
}

// Publish claims a slot and fills it. Drops are logged, never propagated:
// losing one depth tick is recoverable, stalling a venue reader is not.
func (p *Publisher) Publish(fill func(*schema.EventRecord)) {
	if err := p.ring.Publish(fill); err != nil {
		p.metrics.IncRingDrop()
		logs.Errorf("publish event, err: %+v", err)
	}
}

// SymbolsByVenue maps a venue's native symbol names onto registry ids.
func SymbolsByVenue(reg *schema.Registry, venue schema.VenueID) map[string]schema.SymbolID {
	symbols := make(map[string]schema.SymbolID)
	for i := 0; i < reg.SymbolCount(); i++ {
		sym, ok := reg.SymbolAt(i)
		if !ok || sym.VenueID != venue {
			continue
		}
		symbols[sym.Name] = sym.ID
	}
	return symbols
}
