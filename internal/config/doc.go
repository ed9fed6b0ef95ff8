// Package config loads tradedeck's startup configuration.
//
// # Resolution Order
//
// Load builds a Config in three layers, later layers winning:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file, ~/.config/tradedeck/config.toml unless a path is given
//  3. TRADEDECK_* variables from a .env file, then from the process
//     environment
//
// A missing config or .env file is not an error. A file that exists but
// cannot be parsed is.
//
// # File Format
//
//	user_id = 1
//
//	[api]
//	base_url = "http://localhost:8080/api"
//	timeout = "10s"
//	requests_per_second = 0   # 0 disables client-side pacing
//	burst = 0
//
//	[market]
//	symbols = ["BTCUSDT", "ETHUSDT", "SOLUSDT"]
//	mask_price_failures = true
//	candle_interval = "5"
//	candle_limit = 200
//
//	[log]
//	level = "info"
//	format = "text"           # or "json"
//	file = "~/.local/state/tradedeck/tradedeck.log"
//	max_age_days = 14
//
// # Environment
//
//   - TRADEDECK_API_BASE_URL: replaces api.base_url
//   - TRADEDECK_USER_ID: replaces user_id; must be a positive integer
//   - LOG_LEVEL: read by the logging package, not here
//
// Configuration is read once at startup; nothing reloads it.
package config
