package btcc

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/oms"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	_baseUrl    = "https://spotapi2.btcccdn.com/"
	_baseUrlDev = "https://spot.cryptouat.com:9910/"

	_pathPlaceLimit  = "btcc_api_trade/order/limit"
	_pathCancelOrder = "btcc_api_trade/order/cancel"

	_requestTimeout = 15 * time.Second
)

// Delegator sends order commands to the venue's signed REST API. It
// implements the execution gateway transport.
type Delegator struct {
	client   *http.Client
	registry *schema.Registry
	accessID string
	secret   string
	baseURL  string
}

// NewDelegator builds a transport with the given API credentials.
func NewDelegator(client *http.Client, reg *schema.Registry, accessID, secret string, devMode bool) *Delegator {
	baseURL := _baseUrl
	if devMode {
		baseURL = _baseUrlDev
	}

	return &Delegator{
		client:   client,
		registry: reg,
		accessID: accessID,
		secret:   secret,
		baseURL:  baseURL,
	}
}

// Execute implements oms.Transport.
func (d *Delegator) Execute(ctx context.Context, cmd oms.OrderCommand) error {
	if cmd.IsCancel() {
		return d.cancelOrder(ctx, cmd)
	}
	return d.placeOrder(ctx, cmd)
}

// ExecuteTransfer implements oms.Transport. The venue exposes no transfer
// endpoint on this API surface.
func (d *Delegator) ExecuteTransfer(ctx context.Context, cmd oms.TransferCommand) error {
	return errors.Wrap(exception.ErrArgumentUnsupported, "transfer")
}

func side(s schema.OrderSide) string {
	switch s {
	case schema.OrderSideSell:
		return "2"
	default:
		return "1"
	}
}

func timeInForce(tif schema.TimeInForce) string {
	switch tif {
	case schema.TimeInForceIOC:
		return "8"
	case schema.TimeInForceFOK:
		return "16"
	default:
		return "0" // GTC
	}
}

func (d *Delegator) placeOrder(ctx context.Context, cmd oms.OrderCommand) error {
	// TODO: support market orders once the venue's market endpoint is mapped
	if cmd.Type != schema.OrderTypeLimit {
		return errors.Wrap(exception.ErrTypeUnsupported, "place order")
	}

	sym, ok := d.registry.Symbol(cmd.Symbol)
	if !ok {
		return errors.Wrapf(exception.ErrUnknownSymbol, "symbol %d", cmd.Symbol)
	}

	body := map[string]string{
		"access_id": d.accessID,
		"tm":        strconv.FormatInt(time.Now().Unix(), 10),
		"market":    sym.Name,
		"side":      side(cmd.Side),
		"price":     schema.FormatE8(int64(cmd.Price)),
		"amount":    schema.FormatE8(int64(cmd.Qty)),
		"option":    timeInForce(cmd.TimeInForce),
		"client_id": cmd.ClientID,
	}

	var data Response[ResponsePlaceLimitOrder]
	if err := d.post(ctx, _pathPlaceLimit, body, &data); err != nil {
		return errors.Wrap(err, "place order")
	}
	if data.Error.Code != 0 {
		return errors.Wrapf(exception.ErrInResponseError, "place order, code: %d, message: %s",
			data.Error.Code, data.Error.Message)
	}
	return nil
}

func (d *Delegator) cancelOrder(ctx context.Context, cmd oms.OrderCommand) error {
	sym, ok := d.registry.Symbol(cmd.Symbol)
	if !ok {
		return errors.Wrapf(exception.ErrUnknownSymbol, "symbol %d", cmd.Symbol)
	}

	body := map[string]string{
		"access_id": d.accessID,
		"tm":        strconv.FormatInt(time.Now().Unix(), 10),
		"market":    sym.Name,
		"client_id": cmd.ClientID,
	}

	var data Response[ResponseCancelOrder]
	if err := d.post(ctx, _pathCancelOrder, body, &data); err != nil {
		return errors.Wrap(err, "cancel order")
	}
	if data.Error.Code != 0 {
		return errors.Wrapf(exception.ErrInResponseError, "cancel order, code: %d, message: %s",
			data.Error.Code, data.Error.Message)
	}
	return nil
}

func (d *Delegator) post(ctx context.Context, path string, body map[string]string, out any) error {
	payload, err := sonic.ConfigFastest.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("authorization", sign(body, d.secret))

	resp, err := d.client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out)
}

// sign computes the MD5 of the sorted key=value pairs with the secret key
// appended, as the venue requires.
func sign(body map[string]string, secret string) string {
	pairs := make([]string, 0, len(body)+1)
	for k, v := range body {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	pairs = append(pairs, fmt.Sprintf("secret_key=%s", secret))
	sort.Strings(pairs)
	paramStr := strings.Join(pairs, "&")
	hash := md5.Sum([]byte(paramStr))
	return hex.EncodeToString(hash[:])
}
