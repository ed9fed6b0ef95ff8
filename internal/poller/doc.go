// Package poller refreshes subscribed cache keys on a fixed cadence.
//
// The Scheduler registers itself as the cache store's activity observer.
// When a key gains its first subscriber and its resource class has a
// PollInterval, a Task starts ticking; each tick asks the store for a
// guarded fetch. When the key loses its last subscriber the task stops at
// once, so views that are not on screen cost no requests.
//
// There is no backoff. A failed poll leaves the previous data in place and
// the next tick tries again.
//
// Returning to a view does not wait for a tick: the store's Subscribe starts
// a fetch itself when the entry is older than the class's StaleTime.
package poller
