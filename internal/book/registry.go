package book

import (
	"sync"

	"main/internal/schema"
)

type bookKey struct {
	venue  schema.VenueID
	symbol schema.SymbolID
}

// BBO is a best bid/offer snapshot handed to consumers.
type BBO struct {
	Venue  schema.VenueID
	Symbol schema.SymbolID
	Bid    Level
	Ask    Level
	HasBid bool
	HasAsk bool
}

// Registry indexes order books by venue and instrument. Books are created
// lazily on first touch and live for as long as the pair stays subscribed.
//
// Lookup is read-locked so strategy code on other goroutines can resolve
// books; mutation of a book itself still follows the single-writer rule.
type Registry struct {
	mu    sync.RWMutex
	books map[bookKey]*Book
}

// NewRegistry creates an empty book registry.
func NewRegistry() *Registry {
	return &Registry{books: make(map[bookKey]*Book)}
}

// GetOrCreate returns the book for a (venue, instrument) pair, creating it on
// first use.
func (r *Registry) GetOrCreate(venue schema.VenueID, symbol schema.SymbolID) *Book {
	key := bookKey{venue: venue, symbol: symbol}
	r.mu.RLock()
	b, ok := r.books[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[key]; ok {
		return b
	}
	b = NewBook(venue, symbol)
	r.books[key] = b
	return b
}

// Get returns the book for a pair if it exists.
func (r *Registry) Get(venue schema.VenueID, symbol schema.SymbolID) (*Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[bookKey{venue: venue, symbol: symbol}]
	return b, ok
}

// TopOfBook returns a BBO snapshot for a pair. The zero BBO is returned for
// unknown pairs.
func (r *Registry) TopOfBook(venue schema.VenueID, symbol schema.SymbolID) BBO {
	b, ok := r.Get(venue, symbol)
	if !ok {
		return BBO{Venue: venue, Symbol: symbol}
	}
	bbo := BBO{Venue: venue, Symbol: symbol}
	bbo.Bid, bbo.HasBid = b.BestBid()
	bbo.Ask, bbo.HasAsk = b.BestAsk()
	return bbo
}

// Count returns the number of tracked books.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}
