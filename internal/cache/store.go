package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/tradedeck/internal/logging"
)

// Store holds the latest known value per key and tells subscribers when an
// entry changes. Every entry mutation goes through BeginFetch, ResolveFetch,
// FailFetch, or Invalidate.
type Store struct {
	mu        sync.Mutex
	resources map[string]Resource
	entries   map[Key]*slot
	observers []ActivityObserver
	nextID    uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
	log *logging.Entry
}

type slot struct {
	entry     Entry
	listeners []registration

	// invalidatedSeq is the in-flight sequence an invalidation landed on;
	// its response is applied but left stale. triggeredSeq is the sequence
	// an invalidation started itself.
	invalidatedSeq uint64
	triggeredSeq   uint64
}

type registration struct {
	id uint64
	fn Listener
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(l *logging.Log) Option {
	return func(s *Store) { s.log = logging.OrDiscard(l).WithComponent("cache") }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store serving the given resource classes. Call Close at
// shutdown to cancel and wait for in-flight fetches.
func New(resources map[string]Resource, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		resources: make(map[string]Resource, len(resources)),
		entries:   make(map[Key]*slot),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		log:       logging.Discard().WithComponent("cache"),
	}
	for class, res := range resources {
		s.resources[class] = res
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch registers an activity observer.
func (s *Store) Watch(obs ActivityObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Resource returns the policy registered for class.
func (s *Store) Resource(class string) (Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[class]
	return res, ok
}

// GetOrCreate returns the entry for key, creating an idle one when missing.
func (s *Store) GetOrCreate(key Key) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotFor(key).entry
}

// Peek returns the entry for key without creating it.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return sl.entry, true
}

// Subscribers returns the current subscriber count for key.
func (s *Store) Subscribers(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.entries[key]; ok {
		return sl.entry.Subscribers
	}
	return 0
}

// Keys returns every known key, sorted for stable display.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Args < keys[j].Args
	})
	return keys
}

// Subscribe registers fn for changes to key and returns its release func.
// The release func is safe to call more than once. A fetch starts when the
// entry has no data, is stale, failed last time, or is older than the
// resource's StaleTime.
func (s *Store) Subscribe(key Key, fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	sl := s.slotFor(key)
	s.nextID++
	id := s.nextID
	sl.listeners = append(sl.listeners, registration{id: id, fn: fn})
	sl.entry.Subscribers++
	activated := sl.entry.Subscribers == 1
	needsFetch := s.needsFetchLocked(sl.entry)
	observers := append([]ActivityObserver(nil), s.observers...)
	s.mu.Unlock()

	s.log.WithFields(logging.Fields{"key": key.String(), "fetch": needsFetch}).Debug("subscribed")
	if activated {
		for _, obs := range observers {
			obs.Activated(key)
		}
	}
	if needsFetch {
		s.Fetch(key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.release(key, id) })
	}
}

func (s *Store) release(key Key, id uint64) {
	s.mu.Lock()
	sl, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	for i, reg := range sl.listeners {
		if reg.id == id {
			sl.listeners = append(sl.listeners[:i], sl.listeners[i+1:]...)
			break
		}
	}
	if sl.entry.Subscribers > 0 {
		sl.entry.Subscribers--
	}
	deactivated := sl.entry.Subscribers == 0
	observers := append([]ActivityObserver(nil), s.observers...)
	s.mu.Unlock()

	s.log.WithField("key", key.String()).Debug("unsubscribed")
	if deactivated {
		for _, obs := range observers {
			obs.Deactivated(key)
		}
	}
}

// BeginFetch marks key as fetching and returns the new sequence number. It
// returns ok=false without changing anything when a fetch is already in
// flight.
func (s *Store) BeginFetch(key Key) (seq uint64, ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	sl := s.slotFor(key)
	if sl.entry.Status == StatusFetching {
		s.mu.Unlock()
		return 0, false
	}
	seq = s.issueLocked(sl)
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	notify(listeners, snap)
	return seq, true
}

// Supersede issues a new sequence for key even when a fetch is in flight.
// The earlier fetch's result will be discarded when it arrives.
func (s *Store) Supersede(key Key) (seq uint64, ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	sl := s.slotFor(key)
	seq = s.issueLocked(sl)
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	notify(listeners, snap)
	return seq, true
}

// ResolveFetch stores data for the fetch numbered seq. Results from any
// sequence other than the latest issued are discarded; the return value
// reports whether data was applied. A response whose fetch was in flight
// when the key was invalidated stays stale, and one follow-up fetch starts
// when the key has subscribers.
func (s *Store) ResolveFetch(key Key, seq uint64, data any) bool {
	s.mu.Lock()
	sl, ok := s.entries[key]
	if !ok || s.closed || seq != sl.entry.Seq || sl.entry.Status != StatusFetching {
		s.mu.Unlock()
		s.log.WithFields(logging.Fields{"key": key.String(), "seq": seq}).Debug("discarded superseded response")
		return false
	}
	outdated := sl.invalidatedSeq != 0 && seq <= sl.invalidatedSeq
	sl.invalidatedSeq = 0
	sl.entry.Status = StatusSuccess
	sl.entry.Data = data
	sl.entry.HasData = true
	sl.entry.Err = nil
	sl.entry.Stale = outdated
	sl.entry.LastFetchedAt = s.now()
	followUp := outdated && sl.entry.Subscribers > 0
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	notify(listeners, snap)
	if outdated {
		s.log.WithFields(logging.Fields{"key": key.String(), "refetch": followUp}).Debug("response predates invalidation")
	}
	if followUp {
		s.fetchInvalidated(key)
	}
	return true
}

// FailFetch records err for the fetch numbered seq, keeping any previous
// data. Superseded sequences are discarded as in ResolveFetch.
func (s *Store) FailFetch(key Key, seq uint64, err error) bool {
	s.mu.Lock()
	sl, ok := s.entries[key]
	if !ok || s.closed || seq != sl.entry.Seq || sl.entry.Status != StatusFetching {
		s.mu.Unlock()
		return false
	}
	sl.entry.Status = StatusError
	sl.entry.Err = err
	sl.invalidatedSeq = 0
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	s.log.WithError(err).WithField("key", key.String()).Warn("fetch failed")
	notify(listeners, snap)
	return true
}

// Invalidate marks key as possibly outdated. With subscribers present a
// fetch starts now; otherwise the entry is left stale for the next
// subscriber. When a fetch is already in flight no second one starts, but
// its response stays stale and is followed by one more fetch, unless an
// earlier invalidation started it. Unknown keys are ignored.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	sl, ok := s.entries[key]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	sl.entry.Stale = true
	active := sl.entry.Subscribers > 0
	inFlight := sl.entry.Status == StatusFetching
	if inFlight && sl.triggeredSeq != sl.entry.Seq {
		sl.invalidatedSeq = sl.entry.Seq
	}
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	s.log.WithFields(logging.Fields{"key": key.String(), "active": active, "in_flight": inFlight}).Debug("invalidated")
	notify(listeners, snap)
	if active && !inFlight {
		s.fetchInvalidated(key)
	}
}

// fetchInvalidated starts a guarded fetch and records that an invalidation
// started it.
func (s *Store) fetchInvalidated(key Key) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	sl := s.slotFor(key)
	if sl.entry.Status == StatusFetching {
		s.mu.Unlock()
		return false
	}
	seq := s.issueLocked(sl)
	sl.triggeredSeq = seq
	snap, listeners := s.changedLocked(sl)
	s.mu.Unlock()

	notify(listeners, snap)
	s.run(key, seq)
	return true
}

// Fetch starts a guarded fetch for key. It returns false when one is already
// in flight or the store is closed.
func (s *Store) Fetch(key Key) bool {
	seq, ok := s.BeginFetch(key)
	if !ok {
		return false
	}
	s.run(key, seq)
	return true
}

// Refetch starts a fetch that supersedes any in-flight one.
func (s *Store) Refetch(key Key) bool {
	seq, ok := s.Supersede(key)
	if !ok {
		return false
	}
	s.run(key, seq)
	return true
}

func (s *Store) run(key Key, seq uint64) {
	s.mu.Lock()
	res, ok := s.resources[key.Class]
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !ok || res.Fetch == nil {
		s.mu.Unlock()
		s.FailFetch(key, seq, fmt.Errorf("no resource registered for %q", key.Class))
		return
	}
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		data, err := res.Fetch(ctx, key)
		if err != nil {
			s.FailFetch(key, seq, err)
			return
		}
		s.ResolveFetch(key, seq, data)
	}()
}

// Close cancels in-flight fetches and waits for them to return. The store
// ignores every later operation.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Store) slotFor(key Key) *slot {
	sl, ok := s.entries[key]
	if !ok {
		sl = &slot{entry: Entry{Key: key, Status: StatusIdle}}
		s.entries[key] = sl
	}
	return sl
}

func (s *Store) issueLocked(sl *slot) uint64 {
	sl.entry.Seq++
	sl.entry.Status = StatusFetching
	return sl.entry.Seq
}

func (s *Store) changedLocked(sl *slot) (Entry, []Listener) {
	sl.entry.Version++
	listeners := make([]Listener, len(sl.listeners))
	for i, reg := range sl.listeners {
		listeners[i] = reg.fn
	}
	return sl.entry, listeners
}

func (s *Store) needsFetchLocked(e Entry) bool {
	if !e.HasData || e.Stale || e.Status == StatusError {
		return true
	}
	res := s.resources[e.Key.Class]
	if res.StaleTime <= 0 {
		return true
	}
	return s.now().Sub(e.LastFetchedAt) >= res.StaleTime
}

func notify(listeners []Listener, e Entry) {
	for _, fn := range listeners {
		fn(e)
	}
}
