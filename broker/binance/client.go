// Package binance is a Binance Spot REST client implementing broker.Exchange.
//
// Public endpoints (ticker, exchangeInfo) are unsigned; account and order
// endpoints are signed with HMAC-SHA256 over the encoded query string.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
)

const (
	// LiveURL is the production spot API.
	LiveURL = "https://api.binance.com"
	// TestnetURL is the spot testnet.
	TestnetURL = "https://testnet.binance.vision"
)

// Config holds the credentials and endpoint of a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	RecvWindow time.Duration
	Timeout    time.Duration
}

// Client talks to the Binance spot REST API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow int64
	httpClient *http.Client

	now   func() time.Time
	newID func() string
}

// NewClient creates a new Binance spot client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = LiveURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		recvWindow: cfg.RecvWindow.Milliseconds(),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		newID:      func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (c *Client) Name() string { return "binance" }

// apiError is the error body Binance returns on non-2xx responses.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) sign(q url.Values) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = io.WriteString(mac, q.Encode())
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) signQuery(q url.Values) {
	q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	if c.recvWindow > 0 {
		q.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
	}
	q.Set("signature", c.sign(q))
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, signed bool, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if signed {
		c.signQuery(q)
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(q.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance %s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode/100 != 2 {
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		// Order endpoint 4xx (other than rate limits) means the venue refused it.
		if method == http.MethodPost && resp.StatusCode/100 == 4 &&
			resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != 418 {
			msg := ae.Msg
			if msg == "" {
				msg = string(body)
			}
			return &broker.RejectedError{Status: resp.StatusCode, Code: ae.Code, Msg: msg}
		}
		return fmt.Errorf("binance %s %s: status %d: %s", method, path, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance %s %s: decode response: %w", method, path, err)
	}
	return nil
}

// GetPrice returns the latest spot price of symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var p struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/ticker/price", q, false, &p); err != nil {
		return decimal.Zero, err
	}
	px, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", p.Price, err)
	}
	if !px.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s for %s", px, symbol)
	}
	return px, nil
}

// GetFreeBalance returns the unlocked balance of asset. Assets missing from
// the account report zero.
func (c *Client) GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var a struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	q := url.Values{}
	q.Set("omitZeroBalances", "true")
	if err := c.do(ctx, http.MethodGet, "/api/v3/account", q, true, &a); err != nil {
		return decimal.Zero, err
	}
	for _, b := range a.Balances {
		if !strings.EqualFold(b.Asset, asset) {
			continue
		}
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse %s balance %q: %w", asset, b.Free, err)
		}
		return free, nil
	}
	return decimal.Zero, nil
}

type symbolFilter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize"`
	MinNotional string `json:"minNotional"`
}

// GetInstrument reads the pair metadata and LOT_SIZE step from exchangeInfo.
func (c *Client) GetInstrument(ctx context.Context, symbol string) (market.Instrument, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var ex struct {
		Symbols []struct {
			Symbol     string         `json:"symbol"`
			BaseAsset  string         `json:"baseAsset"`
			QuoteAsset string         `json:"quoteAsset"`
			Filters    []symbolFilter `json:"filters"`
		} `json:"symbols"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/exchangeInfo", q, false, &ex); err != nil {
		return market.Instrument{}, err
	}
	if len(ex.Symbols) == 0 {
		return market.Instrument{}, fmt.Errorf("exchangeInfo: symbol %s not found", symbol)
	}

	s := ex.Symbols[0]
	inst := market.Instrument{
		Symbol:     s.Symbol,
		BaseAsset:  s.BaseAsset,
		QuoteAsset: s.QuoteAsset,
	}
	for _, f := range s.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			step, err := decimal.NewFromString(f.StepSize)
			if err != nil {
				return market.Instrument{}, fmt.Errorf("parse LOT_SIZE step %q: %w", f.StepSize, err)
			}
			inst.StepSize = step
		case "MIN_NOTIONAL", "NOTIONAL":
			if mn, err := decimal.NewFromString(f.MinNotional); err == nil {
				inst.MinNotional = mn
			}
		}
	}
	if !inst.StepSize.IsPositive() {
		return market.Instrument{}, fmt.Errorf("exchangeInfo: %s has no LOT_SIZE filter", symbol)
	}
	return inst, nil
}

// MarketBuy places a MARKET buy for qty units of the base asset.
func (c *Client) MarketBuy(ctx context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	return c.marketOrder(ctx, symbol, broker.SideBuy, qty)
}

// MarketSell places a MARKET sell for qty units of the base asset.
func (c *Client) MarketSell(ctx context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	return c.marketOrder(ctx, symbol, broker.SideSell, qty)
}

type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Fills               []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

func (c *Client) marketOrder(ctx context.Context, symbol string, side broker.Side, qty decimal.Decimal) (broker.OrderFill, error) {
	if !qty.IsPositive() {
		return broker.OrderFill{}, fmt.Errorf("market %s %s: quantity must be positive, got %s", strings.ToLower(string(side)), symbol, qty)
	}

	clientID := c.newID()
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", qty.String())
	q.Set("newClientOrderId", clientID)
	q.Set("newOrderRespType", "FULL")

	var ord orderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v3/order", q, true, &ord); err != nil {
		return broker.OrderFill{}, err
	}

	fill := broker.OrderFill{
		OrderID:       strconv.FormatInt(ord.OrderID, 10),
		ClientOrderID: ord.ClientOrderID,
		Symbol:        symbol,
		Side:          side,
		Time:          c.now().UTC(),
	}
	if fill.ClientOrderID == "" {
		fill.ClientOrderID = clientID
	}
	if ord.TransactTime > 0 {
		fill.Time = time.UnixMilli(ord.TransactTime).UTC()
	}

	executed, _ := decimal.NewFromString(ord.ExecutedQty)
	quote, _ := decimal.NewFromString(ord.CummulativeQuoteQty)
	if !executed.IsPositive() {
		executed, quote = sumFills(ord)
	}
	if !executed.IsPositive() {
		executed = qty
	}
	fill.Quantity = executed
	fill.QuoteQty = quote
	if quote.IsPositive() {
		fill.Price = quote.Div(executed)
	}
	return fill, nil
}

func sumFills(ord orderResponse) (qty, quote decimal.Decimal) {
	for _, f := range ord.Fills {
		p, err1 := decimal.NewFromString(f.Price)
		q, err2 := decimal.NewFromString(f.Qty)
		if err1 != nil || err2 != nil {
			continue
		}
		qty = qty.Add(q)
		quote = quote.Add(p.Mul(q))
	}
	return qty, quote
}

var _ broker.Exchange = (*Client)(nil)
