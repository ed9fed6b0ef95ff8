// Package resource names the cacheable resource classes and builds their keys.
package resource

import "github.com/five82/tradedeck/internal/cache"

// Resource classes.
const (
	Balances   = "balances"
	Orders     = "orders"
	Strategies = "strategies"
	Trades     = "trades"
	Prices     = "prices"
	Candles    = "candles"
)

func BalancesKey(userID int64) cache.Key   { return cache.NewKey(Balances, userID) }
func OrdersKey(userID int64) cache.Key     { return cache.NewKey(Orders, userID) }
func StrategiesKey(userID int64) cache.Key { return cache.NewKey(Strategies, userID) }
func TradesKey(userID int64) cache.Key     { return cache.NewKey(Trades, userID) }

// PricesKey keys a symbol list. Order matters: the loader returns prices in
// the same order.
func PricesKey(symbols []string) cache.Key { return cache.NewKey(Prices, symbols) }

func CandlesKey(symbol, interval string, limit int) cache.Key {
	return cache.NewKey(Candles, symbol, interval, limit)
}
