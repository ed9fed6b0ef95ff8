package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeType identifies the venue an API key, order, or balance belongs to.
type ExchangeType string

const (
	ExchangeBybit   ExchangeType = "BYBIT"
	ExchangeBinance ExchangeType = "BINANCE"
	ExchangeKraken  ExchangeType = "KRAKEN"
)

// Valid reports whether the exchange is one the backend knows about.
func (e ExchangeType) Valid() bool {
	switch e {
	case ExchangeBybit, ExchangeBinance, ExchangeKraken:
		return true
	}
	return false
}

// OrderSide is BUY or SELL.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

func (s OrderSide) Valid() bool { return s == SideBuy || s == SideSell }

// OrderType is LIMIT or MARKET.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

func (t OrderType) Valid() bool { return t == OrderTypeLimit || t == OrderTypeMarket }

// OrderStatus is the server-side lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// Open reports whether the order can still fill or be cancelled.
func (s OrderStatus) Open() bool {
	return s == OrderStatusNew || s == OrderStatusPartiallyFilled
}

// StrategyType selects the parameter variant of a strategy.
type StrategyType string

const (
	StrategyDCA       StrategyType = "DCA"
	StrategyGrid      StrategyType = "GRID"
	StrategyArbitrage StrategyType = "ARBITRAGE"
)

func (t StrategyType) Valid() bool {
	switch t {
	case StrategyDCA, StrategyGrid, StrategyArbitrage:
		return true
	}
	return false
}

// StrategyStatus is ACTIVE, PAUSED, or STOPPED.
type StrategyStatus string

const (
	StrategyActive  StrategyStatus = "ACTIVE"
	StrategyPaused  StrategyStatus = "PAUSED"
	StrategyStopped StrategyStatus = "STOPPED"
)

func (s StrategyStatus) Valid() bool {
	switch s {
	case StrategyActive, StrategyPaused, StrategyStopped:
		return true
	}
	return false
}

// Balance is one asset balance on one exchange account.
type Balance struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	APIKeyID      int64           `json:"apiKeyId"`
	ExchangeType  ExchangeType    `json:"exchangeType"`
	Asset         string          `json:"asset"`
	FreeBalance   decimal.Decimal `json:"freeBalance"`
	LockedBalance decimal.Decimal `json:"lockedBalance"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
	UpdatedAt     string          `json:"updatedAt"`
}

// Consistent reports whether total equals free plus locked. Violations are
// shown as received; nothing here corrects them.
func (b Balance) Consistent() bool {
	return b.FreeBalance.Add(b.LockedBalance).Equal(b.TotalBalance)
}

// ParsedUpdatedAt returns the update timestamp as time.Time when possible.
func (b Balance) ParsedUpdatedAt() time.Time {
	return parseTime(b.UpdatedAt)
}

// Order mirrors the backend order representation.
type Order struct {
	ID             int64               `json:"id"`
	UserID         int64               `json:"userId"`
	APIKeyID       int64               `json:"apiKeyId"`
	ExchangeType   ExchangeType        `json:"exchangeType"`
	Symbol         string              `json:"symbol"`
	Side           OrderSide           `json:"side"`
	OrderType      OrderType           `json:"orderType"`
	Status         OrderStatus         `json:"status"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Price          decimal.NullDecimal `json:"price"`
	FilledQuantity decimal.Decimal     `json:"filledQuantity"`
	AveragePrice   decimal.NullDecimal `json:"averagePrice"`
	CreatedAt      string              `json:"createdAt"`
	UpdatedAt      string              `json:"updatedAt"`
}

// Cancellable reports whether the UI should offer cancellation. The backend
// remains the authority on whether the cancel is accepted.
func (o Order) Cancellable() bool {
	return o.Status.Open()
}

// FillConsistent reports whether 0 <= filled <= quantity.
func (o Order) FillConsistent() bool {
	return !o.FilledQuantity.IsNegative() && o.FilledQuantity.LessThanOrEqual(o.Quantity)
}

// FillRatio returns filled/quantity in [0,1], or 0 when quantity is zero.
func (o Order) FillRatio() float64 {
	if o.Quantity.IsZero() {
		return 0
	}
	ratio, _ := o.FilledQuantity.Div(o.Quantity).Float64()
	return ratio
}

func (o Order) ParsedCreatedAt() time.Time { return parseTime(o.CreatedAt) }
func (o Order) ParsedUpdatedAt() time.Time { return parseTime(o.UpdatedAt) }

// OrderSpec is the body of an order placement.
type OrderSpec struct {
	ExchangeType ExchangeType
	Symbol       string
	Side         OrderSide
	OrderType    OrderType
	Quantity     decimal.Decimal
	Price        decimal.NullDecimal
}

// Trade is an execution fill. Trades are append-only.
type Trade struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	OrderID      int64           `json:"orderId"`
	ExchangeType ExchangeType    `json:"exchangeType"`
	Symbol       string          `json:"symbol"`
	Side         OrderSide       `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	FeeCurrency  string          `json:"feeCurrency"`
	ExecutedAt   string          `json:"executedAt"`
}

// Notional returns quantity * price.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

func (t Trade) ParsedExecutedAt() time.Time { return parseTime(t.ExecutedAt) }

// TickerUpdate is the latest price for one symbol.
type TickerUpdate struct {
	Symbol         string              `json:"symbol"`
	Price          decimal.Decimal     `json:"price"`
	Timestamp      string              `json:"timestamp"`
	PriceChange24h decimal.NullDecimal `json:"priceChange24h"`

	// Synthetic marks a placeholder generated after the upstream request failed.
	Synthetic bool `json:"-"`
}

func (t TickerUpdate) ParsedTimestamp() time.Time { return parseTime(t.Timestamp) }

// Candle is one OHLCV bar.
type Candle struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	OpenTime int64           `json:"openTime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// OpenedAt converts the millisecond open time.
func (c Candle) OpenedAt() time.Time {
	if c.OpenTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.OpenTime)
}

// CandleQuery configures /market/candles requests.
type CandleQuery struct {
	Symbol   string
	Interval string
	Limit    int
}

// ErrorResponse is the backend's standard error body.
type ErrorResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// localTimestampLayout matches timestamps serialized without a zone.
const localTimestampLayout = "2006-01-02T15:04:05.999999999"

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(localTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
