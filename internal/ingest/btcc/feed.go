package btcc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/ingest"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	_baseWsUrl    = "wss://spotprice2.btcccdn.com/ws"
	_baseWsUrlDev = "wss://spot.cryptouat.com:8700/ws"

	wsMethodAuthID  = 1
	wsMethodDepthID = 2
	wsMethodOrderID = 3

	depthLimit     = 50
	depthPrecision = 0.00000001
)

// Feed streams the depth channel. The venue sends periodic full books marked
// by a flag instead of sequenced diffs; full messages become snapshot events,
// the rest become deltas.
type Feed struct {
	venue   schema.VenueID
	wss     *ws.WebSocket
	pub     *ingest.Publisher
	symbols map[string]schema.SymbolID // venue market name -> id
}

// NewFeed builds a feed for the venue's registered symbols.
func NewFeed(ctx context.Context, venue schema.VenueID, reg *schema.Registry, pub *ingest.Publisher, devMode bool) *Feed {
	wsURL := _baseWsUrl
	if devMode {
		wsURL = _baseWsUrlDev
	}

	return &Feed{
		venue:   venue,
		wss:     ws.New(ctx, wsURL),
		pub:     pub,
		symbols: ingest.SymbolsByVenue(reg, venue),
	}
}

// Venue implements ingest.Connector.
func (f *Feed) Venue() schema.VenueID {
	return f.venue
}

// Close implements ingest.Connector.
func (f *Feed) Close() {
	f.wss.Close()
}

// Start opens the websocket, subscribes every market and spawns the reader.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	for market := range f.symbols {
		if err := f.subscribeDepth(ctx, market, depthLimit, depthPrecision); err != nil {
			return errors.Wrapf(err, "subscribe depth %s", market)
		}
	}

	f.observeDepth(ctx)
	return nil
}

type subscribeResponse struct {
	ID int `json:"id"`

	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`

	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

// response is the venue's positional-params envelope.
type response struct {
	ID     any               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (r response) Unmarshal(index int, p any) error {
	if index >= len(r.Params) {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "index: %d, len: %d", index, len(r.Params))
	}

	if err := json.Unmarshal(r.Params[index], p); err != nil {
		return errors.Wrapf(err, "unmarshal from index: %d", index)
	}

	return nil
}

func (f *Feed) subscribeDepth(ctx context.Context, market string, depth int, precision float64) error {
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(map[string]any{
				"id":     wsMethodDepthID,
				"method": "depth.subscribe",
				"params": []any{
					market, depth, strconv.FormatFloat(precision, 'f', 8, 64),
				},
			}); err != nil {
				return errors.Wrap(err, "write subscribe depth payload")
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[subscribeResponse](m)
			if !ok || resp.ID != wsMethodDepthID {
				return false, nil
			}

			if resp.Error != nil || resp.Result.Status != "success" {
				return false, nil
			}

			return true, nil
		},
	}); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// Depth is one depth.update message, positional params decoded.
type Depth struct {
	Market    string
	Full      bool
	Orderbook struct {
		Asks     [][]decimal.Decimal `json:"asks"`
		Bids     [][]decimal.Decimal `json:"bids"`
		Last     decimal.Decimal     `json:"last"`
		Time     int64               `json:"time"`
		Checksum int64               `json:"checksum"`
	}
}

func (f *Feed) observeDepth(ctx context.Context) {
	ch, cancel := f.wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				resp, ok := ws.ReadMessage[response](m)
				if !ok || resp.Method != "depth.update" {
					continue
				}

				var depth Depth
				if err := resp.Unmarshal(2, &depth.Market); err != nil {
					logs.Errorf("unmarshal depth market, err: %+v", err)
					continue
				}

				if err := resp.Unmarshal(0, &depth.Full); err != nil {
					logs.Errorf("unmarshal depth full, err: %+v", err)
					continue
				}

				if err := resp.Unmarshal(1, &depth.Orderbook); err != nil {
					logs.Errorf("unmarshal depth orderbook, err: %+v", err)
					continue
				}

				f.publishDepth(depth, time.Now().UnixNano())
			}
		}
	}()
}

func (f *Feed) publishDepth(d Depth, recv int64) {
	symbolID, ok := f.symbols[d.Market]
	if !ok {
		return
	}

	f.pub.Publish(func(rec *schema.EventRecord) {
		if err := fillDepthRecord(rec, f.venue, symbolID, d, recv); err != nil {
			// the slot is already claimed; hand it back empty
			logs.Errorf("fill depth record %s, err: %+v", d.Market, err)
			rec.Reset()
		}
	})
}

// fillDepthRecord translates one depth message in place. A full book gets
// the snapshot marker; everything else is a delta against the last full.
func fillDepthRecord(rec *schema.EventRecord, venue schema.VenueID, symbol schema.SymbolID, d Depth, recv int64) error {
	rec.Meta = schema.EventMeta{
		Kind:    schema.EventDepth,
		Venue:   venue,
		Symbol:  symbol,
		Seq:     d.Orderbook.Time,
		TsEvent: d.Orderbook.Time * int64(time.Millisecond),
		TsRecv:  recv,
	}
	if d.Full {
		rec.Meta.FirstID = schema.SnapshotFirstID
	}

	var err error
	rec.Depth.BidCount, err = fillLevels(rec.Depth.BidPrice[:], rec.Depth.BidQty[:], d.Orderbook.Bids)
	if err != nil {
		return errors.Wrap(err, "bids")
	}
	rec.Depth.AskCount, err = fillLevels(rec.Depth.AskPrice[:], rec.Depth.AskQty[:], d.Orderbook.Asks)
	if err != nil {
		return errors.Wrap(err, "asks")
	}
	return nil
}

func fillLevels(prices []schema.Price, qtys []schema.Quantity, levels [][]decimal.Decimal) (int, error) {
	n := 0
	for _, lvl := range levels {
		if len(lvl) < 2 {
			return 0, errors.Wrapf(exception.ErrInvalidDepthPayload, "level size: %d", len(lvl))
		}
		if n >= len(prices) {
			break
		}
		price, err := schema.ParseE8(lvl[0].String())
		if err != nil {
			return 0, errors.Wrapf(err, "parse price %q", lvl[0].String())
		}
		qty, err := schema.ParseE8(lvl[1].String())
		if err != nil {
			return 0, errors.Wrapf(err, "parse qty %q", lvl[1].String())
		}
		prices[n] = schema.Price(price)
		qtys[n] = schema.Quantity(qty)
		n++
	}
	return n, nil
}
