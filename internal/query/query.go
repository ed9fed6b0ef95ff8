package query

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/cache"
	"github.com/five82/tradedeck/internal/logging"
	"github.com/five82/tradedeck/internal/mutation"
	"github.com/five82/tradedeck/internal/poller"
	"github.com/five82/tradedeck/internal/resource"
)

// State is what a view renders for one query.
type State[T any] struct {
	Data    T
	HasData bool
	// IsLoading is true while the first fetch is in flight.
	IsLoading bool
	// IsFetching is true while any fetch is in flight.
	IsFetching bool
	Err        error
	UpdatedAt  time.Time
}

func stateOf[T any](e cache.Entry) State[T] {
	s := State[T]{
		HasData:    e.HasData,
		IsLoading:  e.Fetching() && !e.HasData,
		IsFetching: e.Fetching(),
		UpdatedAt:  e.LastFetchedAt,
	}
	if e.Status == cache.StatusError {
		s.Err = e.Err
	}
	if v, ok := e.Data.(T); ok {
		s.Data = v
	}
	return s
}

// Query reads one cache key as T.
type Query[T any] struct {
	store *cache.Store
	key   cache.Key
}

func (q *Query[T]) Key() cache.Key { return q.key }

// State returns the current snapshot without subscribing.
func (q *Query[T]) State() State[T] {
	return stateOf[T](q.store.GetOrCreate(q.key))
}

// Subscribe calls fn with the current state and again after every change
// until the returned func is called. Notifications that arrive out of order
// are dropped, and fn is never called concurrently with itself. fn must not
// block.
func (q *Query[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	var mu sync.Mutex
	var last uint64
	deliver := func(e cache.Entry) {
		mu.Lock()
		defer mu.Unlock()
		if e.Version != 0 && e.Version <= last {
			return
		}
		last = e.Version
		fn(stateOf[T](e))
	}
	release := q.store.Subscribe(q.key, deliver)
	if e, ok := q.store.Peek(q.key); ok {
		deliver(e)
	}
	return release
}

// Refetch fetches now, superseding any fetch already in flight.
func (q *Query[T]) Refetch() { q.store.Refetch(q.key) }

// Mutation runs one kind of write and tracks how many are in flight.
type Mutation[In, Out any] struct {
	run     func(context.Context, In) (Out, error)
	pending atomic.Int32
}

func newMutation[In, Out any](run func(context.Context, In) (Out, error)) *Mutation[In, Out] {
	return &Mutation[In, Out]{run: run}
}

// Execute sends the write. On success the affected queries are invalidated.
func (m *Mutation[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	m.pending.Add(1)
	defer m.pending.Add(-1)
	return m.run(ctx, in)
}

// IsPending reports whether an Execute call is in progress.
func (m *Mutation[In, Out]) IsPending() bool { return m.pending.Load() > 0 }

// StrategyToggle is the input of ToggleStrategy.
type StrategyToggle struct {
	StrategyID int64
	Status     api.StrategyStatus
}

// Options configure a Client.
type Options struct {
	Resources      ResourceOptions
	CandleInterval string
	CandleLimit    int
	// TickerFunc replaces the poll ticker. Tests use it to drive polls.
	TickerFunc poller.TickerFunc
	Clock      func() time.Time
	Log        *logging.Log
}

// Client is the read/subscribe surface views use. It owns the cache store
// and the poll scheduler.
type Client struct {
	store     *cache.Store
	scheduler *poller.Scheduler
	mutations *mutation.Coordinator

	candleInterval string
	candleLimit    int
}

// New wires a store, scheduler, and mutation coordinator around gw.
func New(gw api.Gateway, opts Options) *Client {
	if opts.Resources.Log == nil {
		opts.Resources.Log = opts.Log
	}
	store := cache.New(NewResources(gw, opts.Resources),
		cache.WithLogger(opts.Log),
		cache.WithClock(opts.Clock),
	)
	c := &Client{
		store:          store,
		scheduler:      poller.New(store, poller.WithTickerFunc(opts.TickerFunc), poller.WithLogger(opts.Log)),
		mutations:      mutation.New(gw, store, opts.Log),
		candleInterval: opts.CandleInterval,
		candleLimit:    opts.CandleLimit,
	}
	if c.candleInterval == "" {
		c.candleInterval = DefaultCandleInterval
	}
	if c.candleLimit <= 0 {
		c.candleLimit = DefaultCandleLimit
	}
	return c
}

// Close stops polling and waits for in-flight fetches.
func (c *Client) Close() {
	c.scheduler.Stop()
	c.store.Close()
}

// Store exposes the underlying cache for status displays.
func (c *Client) Store() *cache.Store { return c.store }

// Polling returns the keys currently being polled.
func (c *Client) Polling() []cache.Key { return c.scheduler.Active() }

func newQuery[T any](store *cache.Store, key cache.Key) *Query[T] {
	return &Query[T]{store: store, key: key}
}

func (c *Client) Balances(userID int64) *Query[[]api.Balance] {
	return newQuery[[]api.Balance](c.store, resource.BalancesKey(userID))
}

func (c *Client) Orders(userID int64) *Query[[]api.Order] {
	return newQuery[[]api.Order](c.store, resource.OrdersKey(userID))
}

func (c *Client) Strategies(userID int64) *Query[[]api.Strategy] {
	return newQuery[[]api.Strategy](c.store, resource.StrategiesKey(userID))
}

func (c *Client) Trades(userID int64) *Query[[]api.Trade] {
	return newQuery[[]api.Trade](c.store, resource.TradesKey(userID))
}

// Prices queries the latest price of each symbol. Results keep the order of
// symbols.
func (c *Client) Prices(symbols []string) *Query[[]api.TickerUpdate] {
	norm := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			norm = append(norm, s)
		}
	}
	return newQuery[[]api.TickerUpdate](c.store, resource.PricesKey(norm))
}

// Candles queries a symbol's candles. An empty interval or non-positive
// limit uses the configured default.
func (c *Client) Candles(symbol, interval string, limit int) *Query[[]api.Candle] {
	if interval == "" {
		interval = c.candleInterval
	}
	if limit <= 0 {
		limit = c.candleLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return newQuery[[]api.Candle](c.store, resource.CandlesKey(symbol, interval, limit))
}

func (c *Client) PlaceOrder(userID int64) *Mutation[api.OrderSpec, api.Order] {
	return newMutation(func(ctx context.Context, spec api.OrderSpec) (api.Order, error) {
		return c.mutations.PlaceOrder(ctx, userID, spec)
	})
}

func (c *Client) CancelOrder(userID int64) *Mutation[int64, api.Order] {
	return newMutation(func(ctx context.Context, orderID int64) (api.Order, error) {
		return c.mutations.CancelOrder(ctx, userID, orderID)
	})
}

func (c *Client) CreateStrategy(userID int64) *Mutation[api.StrategyDraft, api.Strategy] {
	return newMutation(func(ctx context.Context, draft api.StrategyDraft) (api.Strategy, error) {
		return c.mutations.CreateStrategy(ctx, userID, draft)
	})
}

func (c *Client) ToggleStrategy(userID int64) *Mutation[StrategyToggle, api.Strategy] {
	return newMutation(func(ctx context.Context, in StrategyToggle) (api.Strategy, error) {
		return c.mutations.ToggleStrategyStatus(ctx, userID, in.StrategyID, in.Status)
	})
}
