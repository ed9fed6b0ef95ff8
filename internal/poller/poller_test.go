package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/tradedeck/internal/cache"
)

// manualTicker hands out channels the test drives directly.
type manualTicker struct {
	mu      sync.Mutex
	chans   []chan time.Time
	stopped int
}

func (m *manualTicker) new(time.Duration) (<-chan time.Time, func()) {
	ch := make(chan time.Time)
	m.mu.Lock()
	m.chans = append(m.chans, ch)
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
	}
}

func (m *manualTicker) latest(t *testing.T) chan time.Time {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chans) == 0 {
		t.Fatalf("no ticker started")
	}
	return m.chans[len(m.chans)-1]
}

func (m *manualTicker) counts() (started, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chans), m.stopped
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.latest(t) <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("poll loop not receiving ticks")
	}
}

type counter struct {
	calls atomic.Int32
	fail  atomic.Bool
	block chan struct{}
}

func (c *counter) fetch(ctx context.Context, _ cache.Key) (any, error) {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail.Load() {
		return nil, errors.New("unavailable")
	}
	return "ok", nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func setup(t *testing.T, c *counter, staleTime time.Duration) (*cache.Store, *Scheduler, *manualTicker, cache.Key) {
	t.Helper()
	store := cache.New(map[string]cache.Resource{
		"orders": {Fetch: c.fetch, PollInterval: 5 * time.Second, StaleTime: staleTime},
	})
	mt := &manualTicker{}
	sched := New(store, WithTickerFunc(mt.new))
	t.Cleanup(func() {
		sched.Stop()
		store.Close()
	})
	return store, sched, mt, cache.NewKey("orders", 1)
}

func idle(store *cache.Store, key cache.Key) func() bool {
	return func() bool {
		e, _ := store.Peek(key)
		return e.HasData || e.Status == cache.StatusError
	}
}

func TestScheduler_PollsWhileSubscribed(t *testing.T) {
	c := &counter{}
	store, sched, mt, key := setup(t, c, 0)

	release := store.Subscribe(key, func(cache.Entry) {})
	waitFor(t, "initial fetch", idle(store, key))
	if got := sched.Active(); len(got) != 1 || got[0] != key {
		t.Fatalf("Active = %v, want [%v]", got, key)
	}

	mt.tick(t)
	waitFor(t, "polled fetch", func() bool { return c.calls.Load() == 2 })

	release()
	if got := sched.Active(); len(got) != 0 {
		t.Fatalf("Active after release = %v", got)
	}
	if started, stopped := mt.counts(); started != 1 || stopped != 1 {
		t.Fatalf("tickers started=%d stopped=%d, want 1/1", started, stopped)
	}
}

func TestScheduler_NoPollingWithoutSubscribers(t *testing.T) {
	c := &counter{}
	store, sched, mt, key := setup(t, c, 0)

	store.GetOrCreate(key)
	store.Invalidate(key)
	if started, _ := mt.counts(); started != 0 {
		t.Fatalf("ticker started without subscribers")
	}
	if len(sched.Active()) != 0 || c.calls.Load() != 0 {
		t.Fatalf("unexpected activity: active=%v calls=%d", sched.Active(), c.calls.Load())
	}
}

func TestScheduler_ResubscribeFetchesImmediately(t *testing.T) {
	c := &counter{}
	store, _, _, key := setup(t, c, 0)

	release := store.Subscribe(key, func(cache.Entry) {})
	waitFor(t, "initial fetch", idle(store, key))
	release()

	release = store.Subscribe(key, func(cache.Entry) {})
	defer release()
	waitFor(t, "fetch on resubscribe", func() bool { return c.calls.Load() == 2 })
}

func TestScheduler_SkipsTickWhileInFlight(t *testing.T) {
	c := &counter{block: make(chan struct{})}
	store, _, mt, key := setup(t, c, 0)

	release := store.Subscribe(key, func(cache.Entry) {})
	defer release()
	waitFor(t, "initial fetch", func() bool { return c.calls.Load() == 1 })

	mt.tick(t)
	mt.tick(t)
	if got := c.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d while in flight, want 1", got)
	}
	close(c.block)
	waitFor(t, "fetch completes", idle(store, key))
}

func TestScheduler_KeepsPollingAfterFailures(t *testing.T) {
	c := &counter{}
	c.fail.Store(true)
	store, _, mt, key := setup(t, c, 0)

	release := store.Subscribe(key, func(cache.Entry) {})
	defer release()
	waitFor(t, "first failure", idle(store, key))

	for i := 2; i <= 4; i++ {
		mt.tick(t)
		want := int32(i)
		waitFor(t, "next poll", func() bool { return c.calls.Load() == want })
		waitFor(t, "poll settles", func() bool {
			e, _ := store.Peek(key)
			return !e.Fetching()
		})
	}
	e, _ := store.Peek(key)
	if e.Status != cache.StatusError {
		t.Fatalf("status = %v, want error", e.Status)
	}

	c.fail.Store(false)
	mt.tick(t)
	waitFor(t, "recovery", func() bool {
		e, _ := store.Peek(key)
		return e.Status == cache.StatusSuccess
	})
}

func TestScheduler_IgnoresManualResources(t *testing.T) {
	c := &counter{}
	store := cache.New(map[string]cache.Resource{"balances": {Fetch: c.fetch}})
	mt := &manualTicker{}
	sched := New(store, WithTickerFunc(mt.new))
	defer store.Close()
	defer sched.Stop()

	release := store.Subscribe(cache.NewKey("balances", 1), func(cache.Entry) {})
	defer release()
	if started, _ := mt.counts(); started != 0 || len(sched.Active()) != 0 {
		t.Fatalf("manual resource was scheduled")
	}
}

func TestScheduler_StopEndsAllTasks(t *testing.T) {
	c := &counter{}
	store, sched, mt, key := setup(t, c, 0)
	release := store.Subscribe(key, func(cache.Entry) {})
	defer release()
	other := store.Subscribe(cache.NewKey("orders", 2), func(cache.Entry) {})
	defer other()

	sched.Stop()
	if started, stopped := mt.counts(); started != 2 || stopped != 2 {
		t.Fatalf("tickers started=%d stopped=%d, want 2/2", started, stopped)
	}
	if len(sched.Active()) != 0 {
		t.Fatalf("Active after Stop = %v", sched.Active())
	}
}

func TestTask_StopIsIdempotent(t *testing.T) {
	c := &counter{}
	store := cache.New(map[string]cache.Resource{"orders": {Fetch: c.fetch}})
	defer store.Close()
	mt := &manualTicker{}
	sched := &Scheduler{store: store, ticker: mt.new}
	task := sched.start(cache.NewKey("orders", 1), time.Second)
	task.Stop()
	task.Stop()
	if task.Key() != cache.NewKey("orders", 1) {
		t.Fatalf("Key = %v", task.Key())
	}
}
