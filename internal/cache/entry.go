package cache

import (
	"context"
	"time"
)

// Status is the fetch state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Entry is a snapshot of one cached resource. Data is shared with the store
// and must be treated as read-only.
type Entry struct {
	Key           Key
	Data          any
	HasData       bool
	Status        Status
	LastFetchedAt time.Time
	Err           error
	Subscribers   int
	Stale         bool

	// Seq is the latest fetch sequence issued for the key.
	Seq uint64
	// Version increases on every change so consumers can drop
	// out-of-order notifications.
	Version uint64
}

// Fetching reports whether a fetch is in flight.
func (e Entry) Fetching() bool { return e.Status == StatusFetching }

// FetchFunc loads the value for key.
type FetchFunc func(ctx context.Context, key Key) (any, error)

// Resource is the policy for one resource class.
type Resource struct {
	Fetch FetchFunc
	// PollInterval > 0 refreshes subscribed keys on that cadence.
	PollInterval time.Duration
	// StaleTime is how long a successful result counts as fresh for a new
	// subscriber. Zero means every new subscriber triggers a fetch.
	StaleTime time.Duration
}

// Listener is called after an entry changes. Listeners run on the goroutine
// that made the change and must not block.
type Listener func(Entry)

// ActivityObserver is told when a key gains its first subscriber or loses
// its last one. Calls may arrive out of order under contention, so observers
// should re-read Store.Subscribers.
type ActivityObserver interface {
	Activated(key Key)
	Deactivated(key Key)
}
