package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

const sampleConfig = `{
  "registry": {
    "venues": [
      {"name": "alpha", "style": "sequenced"},
      {"name": "beta", "style": "sentinel", "referenceOnly": true}
    ],
    "assets": ["BTC", "USDT"],
    "symbols": [
      {"name": "BTCUSDT", "venue": "alpha", "base": "BTC", "quote": "USDT"}
    ],
    "accounts": [
      {"name": "mm-main", "venue": "alpha", "subAccount": "main"}
    ]
  },
  "ring": {"capacity": 1024},
  "risk": {"maxOrderQty": 500000000},
  "gateway": {"workers": 4, "queueCap": 256},
  "recorder": {"dir": "/tmp/wal", "segmentMaxDurationMs": 60000},
  "database": {"enabled": true, "host": "db", "port": 5432, "user": "engine", "database": "trading"},
  "quotes": [
    {"venue": "alpha", "symbol": "BTCUSDT", "accounts": ["mm-main"], "qty": "0.5", "spreadBps": 10, "requoteBps": 5}
  ],
  "bootstrapRetryMs": 250
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResolvesEverySection(t *testing.T) {
	loaded, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	venueID, ok := loaded.Registry.VenueIDByName("alpha")
	require.True(t, ok)
	venue, ok := loaded.Registry.Venue(venueID)
	require.True(t, ok)
	assert.Equal(t, schema.SyncStyleSequenced, venue.Style)

	betaID, ok := loaded.Registry.VenueIDByName("beta")
	require.True(t, ok)
	beta, ok := loaded.Registry.Venue(betaID)
	require.True(t, ok)
	assert.Equal(t, schema.SyncStyleSentinel, beta.Style)
	assert.True(t, beta.ReferenceOnly)

	assert.Equal(t, 1024, loaded.RingCapacity)
	assert.Equal(t, schema.Quantity(5*schema.E8), loaded.Risk.MaxOrderQty)
	assert.Equal(t, 4, loaded.Gateway.Workers)

	require.NotNil(t, loaded.Recorder)
	assert.Equal(t, "/tmp/wal", loaded.Recorder.Dir)
	assert.Equal(t, time.Minute, loaded.Recorder.SegmentMaxDuration)

	require.NotNil(t, loaded.Database)
	assert.Equal(t, "db", loaded.Database.Host)

	require.Len(t, loaded.Quotes, 1)
	q := loaded.Quotes[0]
	assert.Equal(t, venueID, q.Venue)
	assert.Equal(t, schema.Quantity(schema.E8/2), q.QuoteQty)
	require.Len(t, q.Account, 1)

	assert.Equal(t, 250*time.Millisecond, loaded.BootstrapRetry)
}

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load(writeConfig(t, `{"registry": {}}`))
	require.NoError(t, err)

	assert.Equal(t, defaultRingCapacity, loaded.RingCapacity)
	assert.Equal(t, defaultGatewayWorkers, loaded.Gateway.Workers)
	assert.Equal(t, defaultGatewayQueueCap, loaded.Gateway.QueueCap)
	assert.Equal(t, defaultBootstrapRetry, loaded.BootstrapRetry)
	assert.Nil(t, loaded.Recorder)
	assert.Nil(t, loaded.Database)
	assert.Empty(t, loaded.Quotes)
}

func TestLoadRejectsUnknownStyle(t *testing.T) {
	_, err := Load(writeConfig(t, `{"registry": {"venues": [{"name": "alpha", "style": "push"}]}}`))
	assert.ErrorContains(t, err, "unknown sync style")
}

func TestLoadRejectsDanglingReferences(t *testing.T) {
	_, err := Load(writeConfig(t, `{"registry": {
		"venues": [{"name": "alpha", "style": "sequenced"}],
		"assets": ["BTC"],
		"symbols": [{"name": "BTCUSDT", "venue": "alpha", "base": "BTC", "quote": "USDT"}]
	}}`))
	assert.ErrorContains(t, err, "asset not found")

	_, err = Load(writeConfig(t, `{"quotes": [{"venue": "alpha", "symbol": "BTCUSDT", "accounts": ["a"], "qty": "1", "spreadBps": 1}]}`))
	assert.ErrorContains(t, err, "venue not found")
}

func TestLoadRejectsQuotingReferenceOnlyVenue(t *testing.T) {
	_, err := Load(writeConfig(t, `{
		"registry": {
			"venues": [{"name": "alpha", "style": "sequenced", "referenceOnly": true}],
			"assets": ["BTC", "USDT"],
			"symbols": [{"name": "BTCUSDT", "venue": "alpha", "base": "BTC", "quote": "USDT"}],
			"accounts": [{"name": "a", "venue": "alpha"}]
		},
		"quotes": [{"venue": "alpha", "symbol": "BTCUSDT", "accounts": ["a"], "qty": "1", "spreadBps": 1}]
	}`))
	assert.ErrorContains(t, err, "reference only")
}
