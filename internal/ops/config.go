// Package ops loads the engine configuration and resolves it into the
// runtime objects the process wires together at startup.
package ops

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/strategy"
	"main/pkg/conn"
)

const (
	defaultRingCapacity    = 1 << 16
	defaultGatewayWorkers  = 2
	defaultGatewayQueueCap = 1024
	defaultBootstrapRetry  = time.Second
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Registry  RegistryConfig  `json:"registry"`
	Ring      RingConfig      `json:"ring"`
	Risk      risk.Config     `json:"risk"`
	Gateway   GatewayConfig   `json:"gateway"`
	Recorder  RecorderConfig  `json:"recorder"`
	Database  DatabaseConfig  `json:"database"`
	Quotes    []QuoteConfig   `json:"quotes"`
	Profiling ProfilingConfig `json:"profiling"`

	BootstrapRetryMs int64 `json:"bootstrapRetryMs"`
}

// RegistryConfig defines the static venue, asset, symbol and account
// mappings. Accounts resolved from the database are added on top of these.
type RegistryConfig struct {
	Venues   []VenueConfig   `json:"venues"`
	Assets   []string        `json:"assets"`
	Symbols  []SymbolConfig  `json:"symbols"`
	Accounts []AccountConfig `json:"accounts"`
}

// VenueConfig describes a venue entry.
type VenueConfig struct {
	Name          string `json:"name"`
	Style         string `json:"style"` // "sequenced" or "sentinel"
	ReferenceOnly bool   `json:"referenceOnly"`
}

// SymbolConfig describes a symbol entry.
type SymbolConfig struct {
	Name  string `json:"name"`
	Venue string `json:"venue"`
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// AccountConfig describes a statically configured trading account.
type AccountConfig struct {
	Name       string `json:"name"`
	Venue      string `json:"venue"`
	SubAccount string `json:"subAccount"`
}

// RingConfig sizes the event ring.
type RingConfig struct {
	Capacity int `json:"capacity"`
}

// GatewayConfig sizes the async execution gateway and selects its transport.
// Mode "paper" (the default) acks orders locally; "btcc" sends them to the
// venue's signed REST API.
type GatewayConfig struct {
	Workers  int    `json:"workers"`
	QueueCap int    `json:"queueCap"`
	Mode     string `json:"mode"`
	AccessID string `json:"accessId"`
	Secret   string `json:"secret"`
}

// RecorderConfig controls the event recorder. An empty dir disables
// recording.
type RecorderConfig struct {
	Dir                  string `json:"dir"`
	SegmentMaxBytes      int64  `json:"segmentMaxBytes"`
	SegmentMaxDurationMs int64  `json:"segmentMaxDurationMs"`
	QueueSize            int    `json:"queueSize"`
	BufferSize           int    `json:"bufferSize"`
	FilePrefix           string `json:"filePrefix"`
	FlushIntervalMs      int64  `json:"flushIntervalMs"`
	SyncIntervalMs       int64  `json:"syncIntervalMs"`
}

// DatabaseConfig holds the account-store connection. Disabled means the
// engine runs on the statically configured accounts only.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// QuoteConfig describes one quoter instance. Qty is a decimal string.
type QuoteConfig struct {
	Venue      string   `json:"venue"`
	Symbol     string   `json:"symbol"`
	Accounts   []string `json:"accounts"`
	Qty        string   `json:"qty"`
	SpreadBps  int64    `json:"spreadBps"`
	RequoteBps int64    `json:"requoteBps"`
}

// ProfilingConfig enables the pyroscope agent.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
	Application   string `json:"application"`
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Registry       *schema.Registry
	RingCapacity   int
	Risk           risk.Config
	Gateway        GatewayConfig
	Recorder       *recorder.Config // nil when recording is disabled
	Database       *conn.Option     // nil when the account store is disabled
	Quotes         []strategy.QuoterConfig
	Profiling      ProfilingConfig
	BootstrapRetry time.Duration
}

// Load reads a JSON config file and resolves every section.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	quotes, err := resolveQuotes(cfg.Quotes, registry)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{
		Registry:       registry,
		RingCapacity:   cfg.Ring.Capacity,
		Risk:           cfg.Risk,
		Gateway:        cfg.Gateway,
		Recorder:       resolveRecorder(cfg.Recorder),
		Database:       resolveDatabase(cfg.Database),
		Quotes:         quotes,
		Profiling:      cfg.Profiling,
		BootstrapRetry: time.Duration(cfg.BootstrapRetryMs) * time.Millisecond,
	}
	if loaded.RingCapacity <= 0 {
		loaded.RingCapacity = defaultRingCapacity
	}
	if loaded.Gateway.Workers <= 0 {
		loaded.Gateway.Workers = defaultGatewayWorkers
	}
	if loaded.Gateway.QueueCap <= 0 {
		loaded.Gateway.QueueCap = defaultGatewayQueueCap
	}
	if loaded.BootstrapRetry <= 0 {
		loaded.BootstrapRetry = defaultBootstrapRetry
	}
	return loaded, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		style, err := parseStyle(venue.Style)
		if err != nil {
			return nil, fmt.Errorf("venue %s: %w", venue.Name, err)
		}
		if _, err := reg.AddVenue(venue.Name, style, venue.ReferenceOnly); err != nil {
			return nil, err
		}
	}
	for _, asset := range cfg.Assets {
		if _, err := reg.AddAsset(asset); err != nil {
			return nil, err
		}
	}
	for _, sym := range cfg.Symbols {
		venueID, ok := reg.VenueIDByName(sym.Venue)
		if !ok {
			return nil, fmt.Errorf("symbol %s: venue not found: %s", sym.Name, sym.Venue)
		}
		baseID, ok := reg.AssetIDByName(sym.Base)
		if !ok {
			return nil, fmt.Errorf("symbol %s: asset not found: %s", sym.Name, sym.Base)
		}
		quoteID, ok := reg.AssetIDByName(sym.Quote)
		if !ok {
			return nil, fmt.Errorf("symbol %s: asset not found: %s", sym.Name, sym.Quote)
		}
		if _, err := reg.AddSymbol(sym.Name, venueID, baseID, quoteID); err != nil {
			return nil, err
		}
	}
	for _, account := range cfg.Accounts {
		venueID, ok := reg.VenueIDByName(account.Venue)
		if !ok {
			return nil, fmt.Errorf("account %s: venue not found: %s", account.Name, account.Venue)
		}
		if _, err := reg.AddAccount(account.Name, venueID, account.SubAccount); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseStyle(s string) (schema.SyncStyle, error) {
	switch s {
	case "sequenced":
		return schema.SyncStyleSequenced, nil
	case "sentinel":
		return schema.SyncStyleSentinel, nil
	default:
		return schema.SyncStyleUnknown, fmt.Errorf("unknown sync style %q", s)
	}
}

func resolveRecorder(cfg RecorderConfig) *recorder.Config {
	if cfg.Dir == "" {
		return nil
	}
	resolved := recorder.DefaultConfig(cfg.Dir)
	if cfg.SegmentMaxBytes > 0 {
		resolved.SegmentMaxBytes = cfg.SegmentMaxBytes
	}
	if cfg.SegmentMaxDurationMs > 0 {
		resolved.SegmentMaxDuration = time.Duration(cfg.SegmentMaxDurationMs) * time.Millisecond
	}
	if cfg.QueueSize > 0 {
		resolved.QueueSize = cfg.QueueSize
	}
	if cfg.BufferSize > 0 {
		resolved.BufferSize = cfg.BufferSize
	}
	if cfg.FilePrefix != "" {
		resolved.FilePrefix = cfg.FilePrefix
	}
	resolved.FlushInterval = time.Duration(cfg.FlushIntervalMs) * time.Millisecond
	resolved.SyncInterval = time.Duration(cfg.SyncIntervalMs) * time.Millisecond
	return &resolved
}

func resolveDatabase(cfg DatabaseConfig) *conn.Option {
	if !cfg.Enabled {
		return nil
	}
	return &conn.Option{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	}
}

func resolveQuotes(cfgs []QuoteConfig, reg *schema.Registry) ([]strategy.QuoterConfig, error) {
	quotes := make([]strategy.QuoterConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		venueID, ok := reg.VenueIDByName(cfg.Venue)
		if !ok {
			return nil, fmt.Errorf("quote %s: venue not found: %s", cfg.Symbol, cfg.Venue)
		}
		if venue, ok := reg.Venue(venueID); ok && venue.ReferenceOnly {
			return nil, fmt.Errorf("quote %s: venue %s is reference only", cfg.Symbol, cfg.Venue)
		}
		symbolID, ok := reg.SymbolIDByName(cfg.Symbol)
		if !ok {
			return nil, fmt.Errorf("quote %s: symbol not found", cfg.Symbol)
		}
		qty, err := schema.ParseE8(cfg.Qty)
		if err != nil {
			return nil, fmt.Errorf("quote %s: invalid qty %q: %w", cfg.Symbol, cfg.Qty, err)
		}
		if qty <= 0 {
			return nil, fmt.Errorf("quote %s: qty must be > 0", cfg.Symbol)
		}
		if cfg.SpreadBps <= 0 {
			return nil, fmt.Errorf("quote %s: spreadBps must be > 0", cfg.Symbol)
		}

		accounts := make([]schema.AccountID, 0, len(cfg.Accounts))
		for _, name := range cfg.Accounts {
			id, ok := reg.AccountIDByName(name)
			if !ok {
				return nil, fmt.Errorf("quote %s: account not found: %s", cfg.Symbol, name)
			}
			accounts = append(accounts, id)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("quote %s: needs at least one account", cfg.Symbol)
		}

		quotes = append(quotes, strategy.QuoterConfig{
			Venue:      venueID,
			Symbol:     symbolID,
			Account:    accounts,
			QuoteQty:   schema.Quantity(qty),
			SpreadBps:  cfg.SpreadBps,
			RequoteBps: cfg.RequoteBps,
		})
	}
	return quotes, nil
}
