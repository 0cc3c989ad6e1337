package btcc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

const depthUpdateMessage = `{
  "id": null,
  "method": "depth.update",
  "params": [
    true,
    {
      "asks": [["42001.5", "1.5"]],
      "bids": [["42000", "0.5"], ["41999", "0"]],
      "last": "42000.7",
      "time": 1700000000123,
      "checksum": 12345
    },
    "BTCUSDT"
  ]
}`

func decodeDepth(t *testing.T, raw string) Depth {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Equal(t, "depth.update", resp.Method)

	var d Depth
	require.NoError(t, resp.Unmarshal(2, &d.Market))
	require.NoError(t, resp.Unmarshal(0, &d.Full))
	require.NoError(t, resp.Unmarshal(1, &d.Orderbook))
	return d
}

func TestResponseUnmarshalPositional(t *testing.T) {
	d := decodeDepth(t, depthUpdateMessage)

	assert.Equal(t, "BTCUSDT", d.Market)
	assert.True(t, d.Full)
	assert.Equal(t, int64(1700000000123), d.Orderbook.Time)
	require.Len(t, d.Orderbook.Bids, 2)
	require.Len(t, d.Orderbook.Asks, 1)
}

func TestResponseUnmarshalOutOfRange(t *testing.T) {
	var resp response
	require.NoError(t, json.Unmarshal([]byte(depthUpdateMessage), &resp))

	var market string
	assert.Error(t, resp.Unmarshal(3, &market))
}

func TestFillDepthRecordFullBook(t *testing.T) {
	d := decodeDepth(t, depthUpdateMessage)

	rec := &schema.EventRecord{}
	require.NoError(t, fillDepthRecord(rec, 2, 9, d, 77))

	assert.Equal(t, schema.EventDepth, rec.Meta.Kind)
	assert.Equal(t, schema.SnapshotFirstID, rec.Meta.FirstID)
	assert.Equal(t, int64(1700000000123), rec.Meta.Seq)
	assert.Equal(t, int64(77), rec.Meta.TsRecv)

	require.Equal(t, 2, rec.Depth.BidCount)
	assert.Equal(t, schema.Price(42_000*schema.E8), rec.Depth.BidPrice[0])
	assert.Equal(t, schema.Quantity(schema.E8/2), rec.Depth.BidQty[0])
	assert.Equal(t, schema.Quantity(0), rec.Depth.BidQty[1])

	require.Equal(t, 1, rec.Depth.AskCount)
	assert.Equal(t, schema.Quantity(3*schema.E8/2), rec.Depth.AskQty[0])
}

func TestFillDepthRecordDelta(t *testing.T) {
	d := decodeDepth(t, depthUpdateMessage)
	d.Full = false

	rec := &schema.EventRecord{}
	require.NoError(t, fillDepthRecord(rec, 2, 9, d, 0))

	assert.NotEqual(t, schema.SnapshotFirstID, rec.Meta.FirstID)
	assert.Equal(t, int64(0), rec.Meta.FirstID)
}
