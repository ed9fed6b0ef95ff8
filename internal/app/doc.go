// Package app is the composition root of tradedeck.
//
// Run wires the pieces together in order:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()     TOML file, then .env, then process env
//	       ├─────> logging.New()     logrus to a rotating file
//	       ├─────> prefs.Load()      theme and watchlist
//	       ├─────> api.NewClient()   timeout, rate limit, request logging
//	       ├─────> query.New()       cache store, poll scheduler, mutations
//	       └─────> ui.Run()          Bubble Tea program (blocks)
//
// Configuration and logger errors are fatal. Once the UI is up, backend
// failures only show in the affected panels; the dashboard keeps running
// and the poller keeps retrying on its interval.
//
// When Run returns, the query client is closed: polling stops and in-flight
// fetches are cancelled and awaited.
package app
