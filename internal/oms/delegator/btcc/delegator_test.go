package btcc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/oms"
	"main/internal/schema"
)

func newTestRegistry(t *testing.T) (*schema.Registry, schema.SymbolID) {
	t.Helper()
	reg := schema.NewRegistry()
	venue, err := reg.AddVenue("btcc", schema.SyncStyleSentinel, false)
	require.NoError(t, err)
	base, err := reg.AddAsset("SOL")
	require.NoError(t, err)
	quote, err := reg.AddAsset("USDT")
	require.NoError(t, err)
	symbol, err := reg.AddSymbol("SOLUSDT", venue, base, quote)
	require.NoError(t, err)
	return reg, symbol
}

func TestSignSortsPairsWithSecret(t *testing.T) {
	body := map[string]string{
		"market": "SOLUSDT",
		"side":   "1",
	}
	// md5("market=SOLUSDT&secret_key=sec&side=1")
	assert.Equal(t, "1a0092c6a702f1183fb599fd46262f1b", sign(body, "sec"))
}

func TestPlaceOrderSendsSignedRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.ConfigStd.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"id": 1, "result": {"id": 99, "client_id": "q1"}}`))
	}))
	defer srv.Close()

	reg, symbol := newTestRegistry(t)
	d := &Delegator{
		client:   srv.Client(),
		registry: reg,
		accessID: "acc",
		secret:   "sec",
		baseURL:  srv.URL + "/",
	}

	err := d.Execute(t.Context(), oms.OrderCommand{
		ClientID:    "q1",
		Symbol:      symbol,
		Side:        schema.OrderSideSell,
		Type:        schema.OrderTypeLimit,
		TimeInForce: schema.TimeInForceIOC,
		Price:       schema.Price(150 * schema.E8),
		Qty:         schema.Quantity(schema.E8 / 4),
	})
	require.NoError(t, err)

	assert.Equal(t, "/"+_pathPlaceLimit, gotPath)
	assert.Equal(t, "SOLUSDT", gotBody["market"])
	assert.Equal(t, "2", gotBody["side"])
	assert.Equal(t, "8", gotBody["option"])
	assert.Equal(t, "150.00000000", gotBody["price"])
	assert.Equal(t, "0.25000000", gotBody["amount"])
	assert.Equal(t, sign(gotBody, "sec"), gotAuth)
}

func TestPlaceOrderRejectsMarketType(t *testing.T) {
	reg, symbol := newTestRegistry(t)
	d := NewDelegator(http.DefaultClient, reg, "acc", "sec", true)

	err := d.Execute(t.Context(), oms.OrderCommand{
		ClientID: "q1",
		Symbol:   symbol,
		Side:     schema.OrderSideBuy,
		Type:     schema.OrderTypeMarket,
		Qty:      schema.Quantity(schema.E8),
	})
	assert.Error(t, err)
}

func TestResponseErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "error": {"code": 10012, "message": "balance not enough"}}`))
	}))
	defer srv.Close()

	reg, symbol := newTestRegistry(t)
	d := &Delegator{client: srv.Client(), registry: reg, accessID: "acc", secret: "sec", baseURL: srv.URL + "/"}

	err := d.Execute(t.Context(), oms.OrderCommand{
		ClientID: "q1",
		Symbol:   symbol,
		Side:     schema.OrderSideBuy,
		Type:     schema.OrderTypeLimit,
		Price:    schema.Price(schema.E8),
		Qty:      schema.Quantity(schema.E8),
	})
	assert.ErrorContains(t, err, "10012")
}
