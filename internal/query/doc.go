// Package query is the surface views read from and write through.
//
// # Overview
//
// A Client owns the cache store, the poll scheduler, and the mutation
// coordinator. Views never touch the backend directly:
//
//	view ──Subscribe──> Query[T] ──> cache.Store ──Fetch──> api.Client
//	                                     ▲
//	                 poller.Scheduler ───┘ (ticks while subscribed)
//
//	view ──Execute──> Mutation ──> mutation.Coordinator ──> api.Client
//	                                     │
//	                                     └──Invalidate──> cache.Store
//
// # Resources
//
//	class        key                         poll    stale
//	balances     (balances, user)            -       -
//	orders       (orders, user)              5s      -
//	strategies   (strategies, user)          -       -
//	trades       (trades, user)              10s     -
//	prices       (prices, symbols)           5s      4s
//	candles      (candles, sym, ivl, limit)  -       -
//
// Classes without a poll interval refresh only on subscribe, invalidation,
// or Refetch.
//
// # Prices
//
// The price list is fetched one symbol at a time, in parallel, and returned in
// the order requested. When a symbol fails the loader substitutes a
// placeholder marked Synthetic and logs a warning; set
// ResourceOptions.SurfacePriceFailures to get the error instead.
//
// # Subscriptions
//
// Query.Subscribe delivers the current state at once and then every change.
// Always release the subscription when the view goes away, or its keys keep
// polling:
//
//	release := client.Orders(userID).Subscribe(func(s query.State[[]api.Order]) {
//		select {
//		case changed <- struct{}{}:
//		default:
//		}
//	})
//	defer release()
package query
