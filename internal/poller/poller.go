package poller

import (
	"sort"
	"sync"
	"time"

	"github.com/five82/tradedeck/internal/cache"
	"github.com/five82/tradedeck/internal/logging"
)

// Store is the part of cache.Store the scheduler drives.
type Store interface {
	Fetch(key cache.Key) bool
	Subscribers(key cache.Key) int
	Resource(class string) (cache.Resource, bool)
	Watch(obs cache.ActivityObserver)
}

var _ Store = (*cache.Store)(nil)

// TickerFunc returns a tick channel and a func that stops it.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Task is one running poll loop.
type Task struct {
	key  cache.Key
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (t *Task) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Key returns the key this task refreshes.
func (t *Task) Key() cache.Key { return t.key }

// Scheduler runs one poll loop per subscribed key whose resource has a
// PollInterval. Loops start when a key gains its first subscriber and stop
// when it loses its last.
type Scheduler struct {
	store  Store
	ticker TickerFunc
	log    *logging.Entry

	mu      sync.Mutex
	tasks   map[cache.Key]*Task
	stopped bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithTickerFunc replaces time.NewTicker.
func WithTickerFunc(fn TickerFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.ticker = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Log) Option {
	return func(s *Scheduler) { s.log = logging.OrDiscard(l).WithComponent("poller") }
}

// New creates a scheduler and registers it with store.
func New(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		ticker: realTicker,
		log:    logging.Discard().WithComponent("poller"),
		tasks:  make(map[cache.Key]*Task),
	}
	for _, opt := range opts {
		opt(s)
	}
	store.Watch(s)
	return s
}

// Activated implements cache.ActivityObserver.
func (s *Scheduler) Activated(key cache.Key) { s.reconcile(key) }

// Deactivated implements cache.ActivityObserver.
func (s *Scheduler) Deactivated(key cache.Key) { s.reconcile(key) }

// reconcile brings the task set in line with the live subscriber count, so
// activation and deactivation calls racing each other still settle
// correctly.
func (s *Scheduler) reconcile(key cache.Key) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	task, running := s.tasks[key]
	active := s.store.Subscribers(key) > 0

	switch {
	case active && !running:
		res, ok := s.store.Resource(key.Class)
		if !ok || res.PollInterval <= 0 {
			s.mu.Unlock()
			return
		}
		s.tasks[key] = s.start(key, res.PollInterval)
		s.mu.Unlock()
		s.log.WithFields(logging.Fields{"key": key.String(), "interval": res.PollInterval}).Debug("polling started")
	case !active && running:
		delete(s.tasks, key)
		s.mu.Unlock()
		task.Stop()
		s.log.WithField("key", key.String()).Debug("polling stopped")
	default:
		s.mu.Unlock()
	}
}

// start runs a poll loop for key at interval until the task is stopped.
// Each tick asks the store for a guarded fetch, so a tick that lands while
// a fetch is in flight does nothing.
func (s *Scheduler) start(key cache.Key, interval time.Duration) *Task {
	t := &Task{key: key, stop: make(chan struct{}), done: make(chan struct{})}
	ticks, stopTicker := s.ticker(interval)
	go func() {
		defer close(t.done)
		defer stopTicker()
		for {
			select {
			case <-t.stop:
				return
			case <-ticks:
				if !s.store.Fetch(key) {
					s.log.WithField("key", key.String()).Trace("tick skipped, fetch in flight")
				}
			}
		}
	}()
	return t
}

// Active returns the keys currently being polled.
func (s *Scheduler) Active() []cache.Key {
	s.mu.Lock()
	keys := make([]cache.Key, 0, len(s.tasks))
	for k := range s.tasks {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Stop ends every poll loop. Later activations are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := s.tasks
	s.tasks = make(map[cache.Key]*Task)
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}
