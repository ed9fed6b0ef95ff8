// Package cache keeps the latest known value of every remote resource the
// dashboard reads, keyed by resource class and parameters.
//
// # Overview
//
// The Store is the single place where fetched data lives. Views subscribe to a
// Key, the poller refreshes keys that have subscribers, and mutations
// invalidate keys after a successful write. Nothing else writes entries.
//
// # Entry Lifecycle
//
//	Idle ──BeginFetch──> Fetching ──ResolveFetch──> Success
//	                        │
//	                        └──FailFetch──> Error (previous data kept)
//
// Every fetch is numbered. ResolveFetch and FailFetch only apply when their
// sequence number is the latest one issued for the key, so a slow response
// can never overwrite a newer one:
//
//	seq 1 issued ─┐
//	seq 2 issued ─┼─> seq 2 resolves "B"   (applied)
//	              └─> seq 1 resolves "A"   (discarded)
//
// # In-Flight Guard
//
// Fetch, Subscribe, Invalidate and poll ticks all go through BeginFetch,
// which refuses to start a second fetch while one is in flight. Refetch is
// the exception: it supersedes the running fetch and the older result is
// dropped when it lands.
//
// # Freshness
//
// A new subscriber triggers a fetch when the entry has no data, was
// invalidated, last failed, or is older than the class's StaleTime.
// Invalidate with no subscribers only marks the entry stale.
//
// # Concurrency
//
// All state is guarded by one mutex. Listeners and activity observers are
// called after the lock is released, on whichever goroutine made the change,
// so they must not block. Entry.Version increases with every change and lets
// consumers drop notifications that arrive out of order.
package cache
