package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/obs"
	"main/internal/ops"
	"main/internal/schema"
	"main/internal/strategy"
)

func loadedFixture(t *testing.T) ops.Loaded {
	t.Helper()
	reg := schema.NewRegistry()
	venue, err := reg.AddVenue("synthetic", schema.SyncStyleSentinel, false)
	require.NoError(t, err)
	btc, err := reg.AddAsset("BTC")
	require.NoError(t, err)
	usdt, err := reg.AddAsset("USDT")
	require.NoError(t, err)
	symbol, err := reg.AddSymbol("BTCUSDT", venue, btc, usdt)
	require.NoError(t, err)
	account, err := reg.AddAccount("main", venue, "")
	require.NoError(t, err)

	return ops.Loaded{
		Registry:       reg,
		RingCapacity:   1 << 8,
		BootstrapRetry: time.Second,
		Quotes: []strategy.QuoterConfig{{
			Venue:     venue,
			Symbol:    symbol,
			Account:   []schema.AccountID{account},
			QuoteQty:  schema.Quantity(schema.E8),
			SpreadBps: 10,
		}},
	}
}

func TestNewAssemblesKernel(t *testing.T) {
	e, err := New(loadedFixture(t), NopGateway{}, obs.NewMetrics(), nil)
	require.NoError(t, err)

	assert.NotNil(t, e.Registry)
	assert.NotNil(t, e.Books)
	assert.NotNil(t, e.Orders)
	assert.NotNil(t, e.Balances)
	assert.NotNil(t, e.Risk)
	assert.NotNil(t, e.Dispatcher())
}

func TestNewRejectsBadQuoterConfig(t *testing.T) {
	loaded := loadedFixture(t)
	loaded.Quotes[0].Symbol = 999

	_, err := New(loaded, NopGateway{}, obs.NewMetrics(), nil)
	assert.Error(t, err)
}

func TestFetcherMuxRejectsUnknownVenue(t *testing.T) {
	loaded := loadedFixture(t)
	mux := newFetcherMux(loaded.Registry)

	_, err := mux.FetchDepthSnapshot(context.Background(), 1, 1)
	assert.Error(t, err)
}
