package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/cache"
	"github.com/five82/tradedeck/internal/resource"
)

// backend is an in-memory stand-in for the trading API.
type backend struct {
	mu       sync.Mutex
	orders   []map[string]any
	nextID   int64
	requests map[string]int
	bodies   []map[string]any
}

func newBackend() *backend {
	return &backend{nextID: 100, requests: map[string]int{}}
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	route := r.Method + " " + r.URL.Path
	b.requests[route]++
	w.Header().Set("Content-Type", "application/json")

	switch {
	case route == "GET /api/users/1/balances":
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id": 1, "userId": 1, "asset": "USDT", "exchangeType": "BYBIT",
			"freeBalance": 1000, "lockedBalance": 7500, "totalBalance": 8500,
		}})
	case route == "GET /api/users/1/orders":
		_ = json.NewEncoder(w).Encode(b.orders)
	case route == "POST /api/users/1/orders":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.bodies = append(b.bodies, body)
		b.nextID++
		order := map[string]any{
			"id": b.nextID, "userId": 1, "exchangeType": body["exchangeType"], "symbol": body["symbol"],
			"side": body["side"], "orderType": body["orderType"], "status": "NEW",
			"quantity": body["quantity"], "price": body["price"], "filledQuantity": 0,
		}
		b.orders = append(b.orders, order)
		_ = json.NewEncoder(w).Encode(order)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/users/1/orders/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/users/1/orders/")
		for _, o := range b.orders {
			if fmt.Sprint(o["id"]) == id {
				o["status"] = "CANCELLED"
				_ = json.NewEncoder(w).Encode(o)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"order not found","code":"NOT_FOUND"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func noTicks(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func newTestClient(t *testing.T, b *backend) *Client {
	t.Helper()
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	gw, err := api.NewClient(server.URL + "/api")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	c := New(gw, Options{TickerFunc: noTicks})
	t.Cleanup(c.Close)
	return c
}

// watch subscribes and collects every delivered state.
type watch[T any] struct {
	mu     sync.Mutex
	states []State[T]
}

func subscribe[T any](t *testing.T, q *Query[T]) *watch[T] {
	t.Helper()
	w := &watch[T]{}
	release := q.Subscribe(func(s State[T]) {
		w.mu.Lock()
		w.states = append(w.states, s)
		w.mu.Unlock()
	})
	t.Cleanup(release)
	return w
}

func (w *watch[T]) wait(t *testing.T, what string, cond func(State[T]) bool) State[T] {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		if n := len(w.states); n > 0 && cond(w.states[n-1]) {
			s := w.states[n-1]
			w.mu.Unlock()
			return s
		}
		w.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return State[T]{}
}

func loaded[T any](s State[T]) bool { return s.HasData && !s.IsFetching }

func TestPlaceLimitOrder_EndToEnd(t *testing.T) {
	b := newBackend()
	c := newTestClient(t, b)

	orders := subscribe(t, c.Orders(1))
	balances := subscribe(t, c.Balances(1))
	if s := orders.wait(t, "empty orders", loaded[[]api.Order]); len(s.Data) != 0 {
		t.Fatalf("orders = %v, want empty", s.Data)
	}
	balances.wait(t, "balances", loaded[[]api.Balance])

	price := decimal.NewFromInt(3000)
	spec := api.NewOrderSpec(api.ExchangeBybit, "ETHUSDT", api.SideBuy, api.OrderTypeLimit, decimal.RequireFromString("2.5"), &price)
	m := c.PlaceOrder(1)
	placed, err := m.Execute(context.Background(), spec)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if m.IsPending() {
		t.Fatalf("IsPending after Execute returned")
	}

	s := orders.wait(t, "new order listed", func(s State[[]api.Order]) bool { return loaded(s) && len(s.Data) == 1 })
	got := s.Data[0]
	if got.ID != placed.ID || got.Status != api.OrderStatusNew || got.Symbol != "ETHUSDT" {
		t.Fatalf("order = %+v", got)
	}
	if !got.Quantity.Equal(decimal.RequireFromString("2.5")) || !got.Price.Decimal.Equal(price) {
		t.Fatalf("order quantity/price = %s/%s", got.Quantity, got.Price.Decimal)
	}

	waitCount(t, b, "GET /api/users/1/balances", 2)
	if n := b.count("POST /api/users/1/orders"); n != 1 {
		t.Fatalf("POST count = %d, want 1", n)
	}
	b.mu.Lock()
	body := b.bodies[0]
	b.mu.Unlock()
	if body["side"] != "BUY" || body["orderType"] != "LIMIT" || body["quantity"] != 2.5 || body["price"] != 3000.0 {
		t.Fatalf("POST body = %v", body)
	}
}

func TestCancelOrder_EndToEnd(t *testing.T) {
	b := newBackend()
	b.orders = []map[string]any{{
		"id": 42, "userId": 1, "symbol": "BTCUSDT", "side": "SELL", "orderType": "LIMIT",
		"status": "NEW", "quantity": 1, "price": 50000, "filledQuantity": 0,
	}}
	c := newTestClient(t, b)

	orders := subscribe(t, c.Orders(1))
	orders.wait(t, "initial orders", func(s State[[]api.Order]) bool { return loaded(s) && len(s.Data) == 1 })

	cancelled, err := c.CancelOrder(1).Execute(context.Background(), 42)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if cancelled.Status != api.OrderStatusCancelled {
		t.Fatalf("response status = %s", cancelled.Status)
	}
	if n := b.count("DELETE /api/users/1/orders/42"); n != 1 {
		t.Fatalf("DELETE count = %d, want 1", n)
	}
	orders.wait(t, "cancelled order", func(s State[[]api.Order]) bool {
		return loaded(s) && len(s.Data) == 1 && s.Data[0].Status == api.OrderStatusCancelled
	})
}

func TestCancelOrder_FailureKeepsCache(t *testing.T) {
	b := newBackend()
	c := newTestClient(t, b)
	orders := subscribe(t, c.Orders(1))
	orders.wait(t, "initial orders", loaded[[]api.Order])

	_, err := c.CancelOrder(1).Execute(context.Background(), 7)
	if !api.IsNotFound(err) {
		t.Fatalf("error = %v, want 404", err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := b.count("GET /api/users/1/orders"); n != 1 {
		t.Fatalf("orders refetched after failed cancel: %d GETs", n)
	}
}

func waitCount(t *testing.T, b *backend, route string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.count(route) >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("%s called %d times, want %d", route, b.count(route), n)
}

func TestOrders_PreserveServerValues(t *testing.T) {
	b := newBackend()
	b.orders = []map[string]any{{
		"id": 5, "status": "PARTIALLY_FILLED", "quantity": "4", "filledQuantity": "1.5",
		"price": "100.10", "averagePrice": nil,
	}}
	c := newTestClient(t, b)
	s := subscribe(t, c.Orders(1)).wait(t, "orders", loaded[[]api.Order])

	o := s.Data[0]
	if !o.FillConsistent() || !o.Cancellable() {
		t.Fatalf("order %+v should be consistent and cancellable", o)
	}
	if o.Price.Decimal.String() != "100.1" || o.AveragePrice.Valid {
		t.Fatalf("price = %s avg valid = %v", o.Price.Decimal, o.AveragePrice.Valid)
	}
}

// fakeReader serves prices and candles from memory.
type fakeReader struct {
	api.Gateway
	mu      sync.Mutex
	prices  map[string]string
	candles []api.CandleQuery
}

func (f *fakeReader) FetchPrice(_ context.Context, symbol string) (api.TickerUpdate, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return api.TickerUpdate{}, &api.HTTPError{Op: "GET /market/price/" + symbol, Status: 500}
	}
	return api.TickerUpdate{Symbol: symbol, Price: decimal.RequireFromString(p), Timestamp: "2026-01-01T00:00:00Z"}, nil
}

func (f *fakeReader) FetchCandles(_ context.Context, q api.CandleQuery) ([]api.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candles = append(f.candles, q)
	return []api.Candle{{Symbol: q.Symbol, Interval: q.Interval}}, nil
}

func TestPrices_FallbackForFailedSymbol(t *testing.T) {
	r := &fakeReader{prices: map[string]string{"BTCUSDT": "43000"}}
	res := NewResources(r, ResourceOptions{Rand: func() float64 { return 0.999999 }})

	data, err := res[resource.Prices].Fetch(context.Background(), resource.PricesKey([]string{"AAA", "BTCUSDT"}))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	ticks := data.([]api.TickerUpdate)
	if len(ticks) != 2 || ticks[0].Symbol != "AAA" || ticks[1].Symbol != "BTCUSDT" {
		t.Fatalf("ticks = %+v", ticks)
	}
	if !ticks[0].Synthetic || ticks[1].Synthetic {
		t.Fatalf("synthetic flags = %v/%v", ticks[0].Synthetic, ticks[1].Synthetic)
	}
	lo, hi := decimal.NewFromInt(1000), decimal.NewFromInt(51000)
	if ticks[0].Price.LessThan(lo) || !ticks[0].Price.LessThan(hi) {
		t.Fatalf("placeholder price %s outside [1000, 51000)", ticks[0].Price)
	}
	change := ticks[0].PriceChange24h.Decimal
	if !ticks[0].PriceChange24h.Valid || change.LessThan(decimal.RequireFromString("-2.5")) || !change.LessThan(decimal.RequireFromString("2.5")) {
		t.Fatalf("placeholder change %s outside [-2.5, 2.5)", change)
	}
	if ticks[0].ParsedTimestamp().IsZero() {
		t.Fatalf("placeholder timestamp %q not parseable", ticks[0].Timestamp)
	}
	if !ticks[1].Price.Equal(decimal.NewFromInt(43000)) {
		t.Fatalf("real price = %s", ticks[1].Price)
	}
}

func TestPrices_SurfaceFailures(t *testing.T) {
	r := &fakeReader{prices: map[string]string{"BTCUSDT": "43000"}}
	res := NewResources(r, ResourceOptions{SurfacePriceFailures: true})
	_, err := res[resource.Prices].Fetch(context.Background(), resource.PricesKey([]string{"AAA", "BTCUSDT"}))
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) || !strings.Contains(err.Error(), "AAA") {
		t.Fatalf("error = %v, want wrapped HTTPError naming AAA", err)
	}
}

func TestPrices_EmptyList(t *testing.T) {
	res := NewResources(&fakeReader{}, ResourceOptions{})
	data, err := res[resource.Prices].Fetch(context.Background(), resource.PricesKey(nil))
	if err != nil || len(data.([]api.TickerUpdate)) != 0 {
		t.Fatalf("Fetch = %v, %v; want empty", data, err)
	}
}

func TestResources_Policy(t *testing.T) {
	res := NewResources(&fakeReader{}, ResourceOptions{})
	cases := []struct {
		class    string
		interval time.Duration
		stale    time.Duration
	}{
		{resource.Balances, 0, 0},
		{resource.Orders, 5 * time.Second, 0},
		{resource.Strategies, 0, 0},
		{resource.Trades, 10 * time.Second, 0},
		{resource.Prices, 5 * time.Second, 4 * time.Second},
		{resource.Candles, 0, 0},
	}
	for _, tc := range cases {
		r, ok := res[tc.class]
		if !ok || r.Fetch == nil {
			t.Fatalf("%s not registered", tc.class)
		}
		if r.PollInterval != tc.interval || r.StaleTime != tc.stale {
			t.Fatalf("%s policy = %v/%v, want %v/%v", tc.class, r.PollInterval, r.StaleTime, tc.interval, tc.stale)
		}
	}
}

func TestCandles_DefaultsAndKey(t *testing.T) {
	r := &fakeReader{}
	c := New(r, Options{TickerFunc: noTicks})
	defer c.Close()

	q := c.Candles("btcusdt", "", 0)
	if q.Key() != resource.CandlesKey("BTCUSDT", "5", 200) {
		t.Fatalf("key = %v", q.Key())
	}
	w := subscribe(t, q)
	w.wait(t, "candles", loaded[[]api.Candle])
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.candles) != 1 || r.candles[0] != (api.CandleQuery{Symbol: "BTCUSDT", Interval: "5", Limit: 200}) {
		t.Fatalf("candle queries = %+v", r.candles)
	}
}

func TestQuery_StateBeforeFetch(t *testing.T) {
	c := New(&fakeReader{}, Options{TickerFunc: noTicks})
	defer c.Close()
	s := c.Trades(3).State()
	if s.HasData || s.IsLoading || s.Err != nil {
		t.Fatalf("idle state = %+v", s)
	}
}

func TestStateOf(t *testing.T) {
	boom := errors.New("boom")
	loading := stateOf[[]int](cache.Entry{Status: cache.StatusFetching})
	if !loading.IsLoading || !loading.IsFetching {
		t.Fatalf("loading = %+v", loading)
	}
	refreshing := stateOf[[]int](cache.Entry{Status: cache.StatusFetching, HasData: true, Data: []int{1}})
	if refreshing.IsLoading || !refreshing.IsFetching || len(refreshing.Data) != 1 {
		t.Fatalf("refreshing = %+v", refreshing)
	}
	failed := stateOf[[]int](cache.Entry{Status: cache.StatusError, HasData: true, Data: []int{1}, Err: boom})
	if !errors.Is(failed.Err, boom) || len(failed.Data) != 1 {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestMutation_IsPendingDuringExecute(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	m := newMutation(func(ctx context.Context, in int) (int, error) {
		close(entered)
		<-release
		return in * 2, nil
	})
	done := make(chan int)
	go func() {
		out, _ := m.Execute(context.Background(), 21)
		done <- out
	}()
	<-entered
	if !m.IsPending() {
		t.Fatalf("IsPending = false during Execute")
	}
	close(release)
	if out := <-done; out != 42 {
		t.Fatalf("out = %d, want 42", out)
	}
	if m.IsPending() {
		t.Fatalf("IsPending = true after Execute")
	}
}
