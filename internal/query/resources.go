package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/cache"
	"github.com/five82/tradedeck/internal/logging"
	"github.com/five82/tradedeck/internal/resource"
)

// Refresh policy per resource class.
const (
	OrdersPollInterval = 5 * time.Second
	TradesPollInterval = 10 * time.Second
	PricesPollInterval = 5 * time.Second
	PricesStaleTime    = 4 * time.Second

	DefaultCandleInterval = "5"
	DefaultCandleLimit    = 200

	defaultPriceConcurrency = 4
)

// ResourceOptions tune the fetch functions.
type ResourceOptions struct {
	// SurfacePriceFailures reports a failed symbol as the prices entry's
	// error. By default the symbol gets a synthetic placeholder instead.
	SurfacePriceFailures bool
	// PriceConcurrency bounds parallel price requests. Zero uses 4.
	PriceConcurrency int
	// Rand returns values in [0,1) for placeholders. Nil uses math/rand.
	Rand func() float64
	// Now stamps placeholders. Nil uses time.Now.
	Now func() time.Time
	Log *logging.Log
}

// NewResources builds the resource registry served by the cache.
func NewResources(r api.Reader, opts ResourceOptions) map[string]cache.Resource {
	if opts.PriceConcurrency <= 0 {
		opts.PriceConcurrency = defaultPriceConcurrency
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	prices := &priceLoader{reader: r, opts: opts, log: logging.OrDiscard(opts.Log).WithComponent("prices")}

	return map[string]cache.Resource{
		resource.Balances:   {Fetch: perUser(r.FetchBalances)},
		resource.Orders:     {Fetch: perUser(r.FetchOrders), PollInterval: OrdersPollInterval},
		resource.Strategies: {Fetch: perUser(r.FetchStrategies)},
		resource.Trades:     {Fetch: perUser(r.FetchTrades), PollInterval: TradesPollInterval},
		resource.Prices:     {Fetch: prices.fetch, PollInterval: PricesPollInterval, StaleTime: PricesStaleTime},
		resource.Candles: {Fetch: func(ctx context.Context, key cache.Key) (any, error) {
			q, err := candleQuery(key)
			if err != nil {
				return nil, err
			}
			return r.FetchCandles(ctx, q)
		}},
	}
}

func perUser[T any](fetch func(context.Context, int64) ([]T, error)) cache.FetchFunc {
	return func(ctx context.Context, key cache.Key) (any, error) {
		userID, err := strconv.ParseInt(key.Param(0), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad user id %q", key.Class, key.Param(0))
		}
		return fetch(ctx, userID)
	}
}

func candleQuery(key cache.Key) (api.CandleQuery, error) {
	q := api.CandleQuery{Symbol: key.Param(0), Interval: key.Param(1)}
	if raw := key.Param(2); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("candles: bad limit %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

type priceLoader struct {
	reader api.Reader
	opts   ResourceOptions
	log    *logging.Entry
}

// fetch loads every symbol in the key concurrently and returns them in key
// order. A failed symbol is replaced by a synthetic placeholder unless
// SurfacePriceFailures is set.
func (p *priceLoader) fetch(ctx context.Context, key cache.Key) (any, error) {
	symbols := key.List(0)
	if len(symbols) == 0 {
		return []api.TickerUpdate{}, nil
	}
	out := make([]api.TickerUpdate, len(symbols))
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(p.opts.PriceConcurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			tick, err := p.reader.FetchPrice(ctx, symbol)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", symbol, err)
				return nil
			}
			out[i] = tick
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.opts.SurfacePriceFailures {
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("fetch prices: %w", err)
		}
		return out, nil
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		p.log.WithError(err).WithField("symbol", symbols[i]).Warn("price unavailable, showing placeholder")
		out[i] = p.placeholder(symbols[i])
	}
	return out, nil
}

func (p *priceLoader) placeholder(symbol string) api.TickerUpdate {
	price := decimal.NewFromFloat(p.opts.Rand()*50000 + 1000).Truncate(2)
	change := decimal.NewFromFloat((p.opts.Rand() - 0.5) * 5).Truncate(2)
	return api.TickerUpdate{
		Symbol:         symbol,
		Price:          price,
		Timestamp:      p.opts.Now().UTC().Format(time.RFC3339),
		PriceChange24h: decimal.NewNullDecimal(change),
		Synthetic:      true,
	}
}
