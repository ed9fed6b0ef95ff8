package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tradedeck/internal/query"
)

// dataChangedMsg reports that at least one watched query changed.
type dataChangedMsg struct{}

// subscriptions holds the query subscriptions of the active view. Cache
// listeners run on fetch goroutines, so they only signal changed; the
// Bubble Tea loop picks the signal up through waitForChange and reads the
// states itself.
type subscriptions struct {
	changed chan struct{}

	mu       sync.Mutex
	releases []func()
}

func newSubscriptions() *subscriptions {
	return &subscriptions{changed: make(chan struct{}, 1)}
}

// notify never blocks. One pending signal covers any number of changes.
func (s *subscriptions) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *subscriptions) add(release func()) {
	s.mu.Lock()
	s.releases = append(s.releases, release)
	s.mu.Unlock()
}

// releaseAll drops every subscription and returns how many there were.
func (s *subscriptions) releaseAll() int {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()
	for _, release := range releases {
		release()
	}
	return len(releases)
}

func (s *subscriptions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// watch subscribes to q for the lifetime of the current view.
func watch[T any](s *subscriptions, q *query.Query[T]) {
	s.add(q.Subscribe(func(query.State[T]) { s.notify() }))
}

// waitForChange blocks until a watched query changes.
func waitForChange(s *subscriptions) tea.Cmd {
	return func() tea.Msg {
		<-s.changed
		return dataChangedMsg{}
	}
}
