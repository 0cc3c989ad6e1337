package schema

import "fmt"

// Venue describes a trading venue or broker.
type Venue struct {
	ID            VenueID
	Name          string
	Style         SyncStyle
	ReferenceOnly bool
}

// Asset describes a currency or token.
type Asset struct {
	ID   AssetID
	Name string
}

// Symbol describes a tradable instrument.
type Symbol struct {
	ID      SymbolID
	VenueID VenueID
	Name    string
	Base    AssetID
	Quote   AssetID
}

// Account describes a trading account on a venue.
type Account struct {
	ID         AccountID
	VenueID    VenueID
	Name       string
	SubAccount string
}

// Registry stores venue, asset, symbol and account mappings in a compact form.
// It is built once at startup and passed by reference; there are no process
// globals behind it.
type Registry struct {
	venues        []Venue
	assets        []Asset
	symbols       []Symbol
	accounts      []Account
	venueByName   map[string]VenueID
	assetByName   map[string]AssetID
	symbolByName  map[string]SymbolID
	accountByName map[string]AccountID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		venueByName:   make(map[string]VenueID),
		assetByName:   make(map[string]AssetID),
		symbolByName:  make(map[string]SymbolID),
		accountByName: make(map[string]AccountID),
	}
}

// AddVenue registers a new venue and returns its ID.
func (r *Registry) AddVenue(name string, style SyncStyle, referenceOnly bool) (VenueID, error) {
	if name == "" {
		return 0, fmt.Errorf("venue name is empty")
	}
	if style == SyncStyleUnknown {
		return 0, fmt.Errorf("venue sync style is unknown: %s", name)
	}
	if id, ok := r.venueByName[name]; ok {
		return id, fmt.Errorf("venue already exists: %s", name)
	}
	id := VenueID(len(r.venues) + 1)
	r.venues = append(r.venues, Venue{ID: id, Name: name, Style: style, ReferenceOnly: referenceOnly})
	r.venueByName[name] = id
	return id, nil
}

// AddAsset registers a new asset and returns its ID.
func (r *Registry) AddAsset(name string) (AssetID, error) {
	if name == "" {
		return 0, fmt.Errorf("asset name is empty")
	}
	if id, ok := r.assetByName[name]; ok {
		return id, fmt.Errorf("asset already exists: %s", name)
	}
	id := AssetID(len(r.assets) + 1)
	r.assets = append(r.assets, Asset{ID: id, Name: name})
	r.assetByName[name] = id
	return id, nil
}

// AddSymbol registers a new symbol and returns its ID.
func (r *Registry) AddSymbol(name string, venueID VenueID, base, quote AssetID) (SymbolID, error) {
	if name == "" {
		return 0, fmt.Errorf("symbol name is empty")
	}
	if _, ok := r.Venue(venueID); !ok {
		return 0, fmt.Errorf("venue id not found: %d", venueID)
	}
	if _, ok := r.Asset(base); !ok {
		return 0, fmt.Errorf("base asset id not found: %d", base)
	}
	if _, ok := r.Asset(quote); !ok {
		return 0, fmt.Errorf("quote asset id not found: %d", quote)
	}
	if id, ok := r.symbolByName[name]; ok {
		return id, fmt.Errorf("symbol already exists: %s", name)
	}
	id := SymbolID(len(r.symbols) + 1)
	r.symbols = append(r.symbols, Symbol{ID: id, VenueID: venueID, Name: name, Base: base, Quote: quote})
	r.symbolByName[name] = id
	return id, nil
}

// AddAccount registers a new account and returns its ID.
func (r *Registry) AddAccount(name string, venueID VenueID, subAccount string) (AccountID, error) {
	if name == "" {
		return 0, fmt.Errorf("account name is empty")
	}
	if _, ok := r.Venue(venueID); !ok {
		return 0, fmt.Errorf("venue id not found: %d", venueID)
	}
	if id, ok := r.accountByName[name]; ok {
		return id, fmt.Errorf("account already exists: %s", name)
	}
	id := AccountID(len(r.accounts) + 1)
	r.accounts = append(r.accounts, Account{ID: id, VenueID: venueID, Name: name, SubAccount: subAccount})
	r.accountByName[name] = id
	return id, nil
}

// Venue returns the venue by ID.
func (r *Registry) Venue(id VenueID) (Venue, bool) {
	if id == 0 || int(id) > len(r.venues) {
		return Venue{}, false
	}
	return r.venues[id-1], true
}

// Asset returns the asset by ID.
func (r *Registry) Asset(id AssetID) (Asset, bool) {
	if id == 0 || int(id) > len(r.assets) {
		return Asset{}, false
	}
	return r.assets[id-1], true
}

// Symbol returns the symbol by ID.
func (r *Registry) Symbol(id SymbolID) (Symbol, bool) {
	if id == 0 || int(id) > len(r.symbols) {
		return Symbol{}, false
	}
	return r.symbols[id-1], true
}

// Account returns the account by ID.
func (r *Registry) Account(id AccountID) (Account, bool) {
	if id == 0 || int(id) > len(r.accounts) {
		return Account{}, false
	}
	return r.accounts[id-1], true
}

// VenueIDByName returns the venue ID for a name.
func (r *Registry) VenueIDByName(name string) (VenueID, bool) {
	id, ok := r.venueByName[name]
	return id, ok
}

// AssetIDByName returns the asset ID for a name.
func (r *Registry) AssetIDByName(name string) (AssetID, bool) {
	id, ok := r.assetByName[name]
	return id, ok
}

// SymbolIDByName returns the symbol ID for a name.
func (r *Registry) SymbolIDByName(name string) (SymbolID, bool) {
	id, ok := r.symbolByName[name]
	return id, ok
}

// AccountIDByName returns the account ID for a name.
func (r *Registry) AccountIDByName(name string) (AccountID, bool) {
	id, ok := r.accountByName[name]
	return id, ok
}

// SymbolCount returns the number of symbols in the registry.
func (r *Registry) SymbolCount() int {
	return len(r.symbols)
}

// SymbolAt returns the symbol by zero-based index.
func (r *Registry) SymbolAt(index int) (Symbol, bool) {
	if index < 0 || index >= len(r.symbols) {
		return Symbol{}, false
	}
	return r.symbols[index], true
}

// Accounts returns all registered accounts.
func (r *Registry) Accounts() []Account {
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}
