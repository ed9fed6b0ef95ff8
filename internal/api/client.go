package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/five82/tradedeck/internal/logging"
)

// Reader covers the read endpoints polled into the cache.
type Reader interface {
	FetchBalances(ctx context.Context, userID int64) ([]Balance, error)
	FetchOrders(ctx context.Context, userID int64) ([]Order, error)
	FetchStrategies(ctx context.Context, userID int64) ([]Strategy, error)
	FetchTrades(ctx context.Context, userID int64) ([]Trade, error)
	FetchPrice(ctx context.Context, symbol string) (TickerUpdate, error)
	FetchCandles(ctx context.Context, query CandleQuery) ([]Candle, error)
}

// Writer covers the mutating endpoints.
type Writer interface {
	PlaceOrder(ctx context.Context, userID int64, spec OrderSpec) (Order, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (Order, error)
	CreateStrategy(ctx context.Context, userID int64, draft StrategyDraft) (Strategy, error)
	ToggleStrategyStatus(ctx context.Context, userID, strategyID int64, status StrategyStatus) (Strategy, error)
}

// Gateway is the full surface of the backend API.
type Gateway interface {
	Reader
	Writer
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Client is the single egress point to the trading backend. It performs no
// retries and no caching.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	log       *logging.Entry
}

const (
	// DefaultBaseURL is used when no override is configured.
	DefaultBaseURL   = "http://localhost:8080/api"
	defaultUserAgent = "tradedeck/0.1"
	defaultTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the transport timeout. Expiry surfaces as NetworkError.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces outbound requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(l *logging.Log) Option {
	return func(c *Client) {
		c.log = logging.OrDiscard(l).WithComponent("gateway")
	}
}

// NewClient builds a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		log:       logging.Discard().WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request is a typed call against the API root.
type Request struct {
	Method string
	Path   string // relative to the API root, starting with "/"
	Query  url.Values
	Body   any
}

func (c *Client) FetchBalances(ctx context.Context, userID int64) ([]Balance, error) {
	var out []Balance
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: userPath(userID, "balances")}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchOrders(ctx context.Context, userID int64) ([]Order, error) {
	var out []Order
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: userPath(userID, "orders")}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceOrder submits a new order. The price is sent only when present.
func (c *Client) PlaceOrder(ctx context.Context, userID int64, spec OrderSpec) (Order, error) {
	body := placeOrderBody{
		ExchangeType: spec.ExchangeType,
		Symbol:       spec.Symbol,
		Side:         spec.Side,
		OrderType:    spec.OrderType,
		Quantity:     json.Number(spec.Quantity.String()),
	}
	if spec.Price.Valid {
		price := json.Number(spec.Price.Decimal.String())
		body.Price = &price
	}
	var out Order
	if err := c.Do(ctx, Request{Method: http.MethodPost, Path: userPath(userID, "orders"), Body: body}, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

type placeOrderBody struct {
	ExchangeType ExchangeType `json:"exchangeType"`
	Symbol       string       `json:"symbol"`
	Side         OrderSide    `json:"side"`
	OrderType    OrderType    `json:"orderType"`
	Quantity     json.Number  `json:"quantity"`
	Price        *json.Number `json:"price,omitempty"`
}

func (c *Client) CancelOrder(ctx context.Context, userID, orderID int64) (Order, error) {
	var out Order
	path := userPath(userID, "orders", strconv.FormatInt(orderID, 10))
	if err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

func (c *Client) FetchStrategies(ctx context.Context, userID int64) ([]Strategy, error) {
	var out []Strategy
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: userPath(userID, "strategies")}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateStrategy(ctx context.Context, userID int64, draft StrategyDraft) (Strategy, error) {
	var out Strategy
	if err := c.Do(ctx, Request{Method: http.MethodPost, Path: userPath(userID, "strategies"), Body: draft}, &out); err != nil {
		return Strategy{}, err
	}
	return out, nil
}

// ToggleStrategyStatus sets the strategy status via the status query parameter.
func (c *Client) ToggleStrategyStatus(ctx context.Context, userID, strategyID int64, status StrategyStatus) (Strategy, error) {
	var out Strategy
	req := Request{
		Method: http.MethodPatch,
		Path:   userPath(userID, "strategies", strconv.FormatInt(strategyID, 10), "status"),
		Query:  url.Values{"status": []string{string(status)}},
	}
	if err := c.Do(ctx, req, &out); err != nil {
		return Strategy{}, err
	}
	return out, nil
}

func (c *Client) FetchTrades(ctx context.Context, userID int64) ([]Trade, error) {
	var out []Trade
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: userPath(userID, "trades")}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchPrice(ctx context.Context, symbol string) (TickerUpdate, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return TickerUpdate{}, fmt.Errorf("symbol required")
	}
	var out TickerUpdate
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/market/price/" + symbol}, &out); err != nil {
		return TickerUpdate{}, err
	}
	return out, nil
}

// FetchCandles retrieves OHLCV bars. Empty interval and zero limit are left
// to the backend defaults.
func (c *Client) FetchCandles(ctx context.Context, query CandleQuery) ([]Candle, error) {
	symbol := strings.TrimSpace(query.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	values := url.Values{}
	values.Set("symbol", symbol)
	if interval := strings.TrimSpace(query.Interval); interval != "" {
		values.Set("interval", interval)
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	var out []Candle
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/market/candles", Query: values}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Do executes req and decodes a 2xx JSON body into dest (ignored when nil).
func (c *Client) Do(ctx context.Context, req Request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	op := req.Method + " " + req.Path

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(c.baseURL.Path, "/") + req.Path
	if len(req.Query) > 0 {
		reqURL.RawQuery = req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithFields(logging.Fields{"request_id": requestID, "op": op})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Op: op, Err: err}
		}
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	log.WithFields(logging.Fields{"status": resp.StatusCode, "elapsed": time.Since(started).String()}).Debug("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{Op: op, Status: resp.StatusCode, Body: string(raw)}
		var payload ErrorResponse
		if json.Unmarshal(raw, &payload) == nil {
			httpErr.Message = payload.Message
			httpErr.Code = payload.Code
		}
		return httpErr
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func userPath(userID int64, parts ...string) string {
	var b strings.Builder
	b.WriteString("/users/")
	b.WriteString(strconv.FormatInt(userID, 10))
	for _, part := range parts {
		b.WriteByte('/')
		b.WriteString(part)
	}
	return b.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// NewOrderSpec is a convenience for building specs from plain values.
func NewOrderSpec(exchange ExchangeType, symbol string, side OrderSide, orderType OrderType, quantity decimal.Decimal, price *decimal.Decimal) OrderSpec {
	spec := OrderSpec{
		ExchangeType: exchange,
		Symbol:       symbol,
		Side:         side,
		OrderType:    orderType,
		Quantity:     quantity,
	}
	if price != nil {
		spec.Price = decimal.NullDecimal{Decimal: *price, Valid: true}
	}
	return spec
}
