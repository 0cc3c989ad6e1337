package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/book"
	"main/internal/ingest"
	"main/internal/schema"
)

const (
	_baseWsUrl           = "wss://stream.binance.com:9443/ws"
	_baseWsUr2           = "wss://stream.binance.com:443/ws"
	_baseWsUrlMarketOnly = "wss://data-stream.binance.vision"

	_baseRestUrl = "https://api.binance.com"

	_snapshotDepthLimit = 1000
)

// Feed streams the diff depth channel for every registered symbol on the
// venue and publishes sequenced increments.
type Feed struct {
	venue   schema.VenueID
	wss     *ws.WebSocket
	pub     *ingest.Publisher
	symbols map[string]schema.SymbolID // upper-case venue symbol -> id
}

// NewFeed builds a feed for the venue's registered symbols.
func NewFeed(ctx context.Context, venue schema.VenueID, reg *schema.Registry, pub *ingest.Publisher) *Feed {
	return &Feed{
		venue:   venue,
		wss:     ws.New(ctx, _baseWsUrl),
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

// Start opens the websocket, subscribes every symbol and spawns the reader.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	for symbol := range f.symbols {
		if err := f.subscribeDepth(ctx, symbol); err != nil {
			return errors.Wrapf(err, "subscribe depth %s", symbol)
		}
	}

	f.observeDepth(ctx)
	return nil
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

func subscribeResponseParser(m ws.Message) (subscribeResponse, bool) {
	var resp subscribeResponse
	err := m.Unmarshal(&resp)
	return resp, err == nil
}

// subscribeDepth subscribes 'Diff. Depth Stream'
func (f *Feed) subscribeDepth(ctx context.Context, symbol string) error {
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@depth@100ms", strings.ToLower(symbol)),
				},
				ID: 1,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := subscribeResponseParser(m)
			if !ok || resp.ID != 1 {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// Depth is the diff depth stream payload.
type Depth struct {
	EventType     string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	FirstUpdateID int64       `json:"U"`
	FinalUpdateID int64       `json:"u"`
	Bids          [][2]string `json:"b"` // [0]price [1]quantity
	Asks          [][2]string `json:"a"` // [0]price [1]quantity
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

				resp, ok := ws.ReadMessage[Depth](m)
				if !ok || resp.EventType != "depthUpdate" {
					continue
				}

				f.publishDepth(resp, time.Now().UnixNano())
			}
		}
	}()
}

func (f *Feed) publishDepth(d Depth, recv int64) {
	symbolID, ok := f.symbols[d.Symbol]
	if !ok {
		return
	}

	f.pub.Publish(func(rec *schema.EventRecord) {
		if err := fillDepthRecord(rec, f.venue, symbolID, d, recv); err != nil {
			// the slot is already claimed; hand it back empty
			logs.Errorf("fill depth record %s, err: %+v", d.Symbol, err)
			rec.Reset()
		}
	})
}

// fillDepthRecord translates a diff depth message in place. Levels past the
// payload capacity are dropped; the venue caps the channel well below it.
func fillDepthRecord(rec *schema.EventRecord, venue schema.VenueID, symbol schema.SymbolID, d Depth, recv int64) error {
	rec.Meta = schema.EventMeta{
		Kind:    schema.EventDepth,
		Venue:   venue,
		Symbol:  symbol,
		Seq:     d.FinalUpdateID,
		FirstID: d.FirstUpdateID,
		TsEvent: d.EventTime * int64(time.Millisecond),
		TsRecv:  recv,
	}

	var err error
	rec.Depth.BidCount, err = fillLevels(rec.Depth.BidPrice[:], rec.Depth.BidQty[:], d.Bids)
	if err != nil {
		return errors.Wrap(err, "bids")
	}
	rec.Depth.AskCount, err = fillLevels(rec.Depth.AskPrice[:], rec.Depth.AskQty[:], d.Asks)
	if err != nil {
		return errors.Wrap(err, "asks")
	}
	return nil
}

func fillLevels(prices []schema.Price, qtys []schema.Quantity, levels [][2]string) (int, error) {
	n := 0
	for _, lvl := range levels {
		if n >= len(prices) {
			break
		}
		price, err := schema.ParseE8(lvl[0])
		if err != nil {
			return 0, errors.Wrapf(err, "parse price %q", lvl[0])
		}
		qty, err := schema.ParseE8(lvl[1])
		if err != nil {
			return 0, errors.Wrapf(err, "parse qty %q", lvl[1])
		}
		prices[n] = schema.Price(price)
		qtys[n] = schema.Quantity(qty)
		n++
	}
	return n, nil
}

// SnapshotClient fetches point-in-time depth snapshots over REST. It
// implements the book bootstrap fetcher.
type SnapshotClient struct {
	client   *http.Client
	baseURL  string
	registry *schema.Registry
}

// NewSnapshotClient builds a snapshot fetcher against the public REST API.
func NewSnapshotClient(reg *schema.Registry) *SnapshotClient {
	return &SnapshotClient{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  _baseRestUrl,
		registry: reg,
	}
}

type depthSnapshot struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// FetchDepthSnapshot implements book.SnapshotFetcher.
func (c *SnapshotClient) FetchDepthSnapshot(ctx context.Context, venue schema.VenueID, symbol schema.SymbolID) (book.Snapshot, error) {
	sym, ok := c.registry.Symbol(symbol)
	if !ok {
		return book.Snapshot{}, errors.Errorf("unknown symbol %d", symbol)
	}

	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", c.baseURL, strings.ToUpper(sym.Name), _snapshotDepthLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return book.Snapshot{}, errors.Wrap(err, "build snapshot request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return book.Snapshot{}, errors.Wrap(err, "fetch snapshot")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return book.Snapshot{}, errors.Errorf("fetch snapshot %s, status: %d", sym.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return book.Snapshot{}, errors.Wrap(err, "read snapshot body")
	}

	var raw depthSnapshot
	if err := sonic.ConfigStd.Unmarshal(body, &raw); err != nil {
		return book.Snapshot{}, errors.Wrap(err, "unmarshal snapshot")
	}
	return convertSnapshot(raw)
}

func convertSnapshot(raw depthSnapshot) (book.Snapshot, error) {
	snap := book.Snapshot{Version: raw.LastUpdateID}

	var err error
	snap.Bids, err = convertLevels(raw.Bids)
	if err != nil {
		return book.Snapshot{}, errors.Wrap(err, "bids")
	}
	snap.Asks, err = convertLevels(raw.Asks)
	if err != nil {
		return book.Snapshot{}, errors.Wrap(err, "asks")
	}
	return snap, nil
}

func convertLevels(levels [][2]string) ([]book.Level, error) {
	out := make([]book.Level, 0, len(levels))
	for _, lvl := range levels {
		price, err := schema.ParseE8(lvl[0])
		if err != nil {
			return nil, errors.Wrapf(err, "parse price %q", lvl[0])
		}
		qty, err := schema.ParseE8(lvl[1])
		if err != nil {
			return nil, errors.Wrapf(err, "parse qty %q", lvl[1])
		}
		out = append(out, book.Level{Price: schema.Price(price), Qty: schema.Quantity(qty)})
	}
	return out, nil
}
