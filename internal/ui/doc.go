// Package ui is the Bubble Tea terminal dashboard for tradedeck.
//
// # Views
//
// Six views share one header and command bar:
//
//   - Dashboard: balances next to the watchlist prices. Prices that could
//     not be fetched show as estimates and are marked "est".
//   - Orders: the user's orders; n places an order, x cancels the selected
//     open order.
//   - Strategies: n creates a strategy, space pauses or resumes the
//     selected one.
//   - Trades: executed fills with notional value and fee.
//   - Candles: OHLCV bars and a close-price sparkline for one watchlist
//     symbol at a time; [ and ] step through the watchlist.
//   - Logs: the tail of tradedeck's own log file with a level filter.
//
// # Data flow
//
// A view subscribes to the queries it renders when it becomes active and
// releases them when the user leaves, so the poller only runs for what is
// on screen. Cache listeners fire on fetch goroutines; they only signal a
// channel, and the Update loop reads query states itself after receiving
// dataChangedMsg. Writes run as tea.Cmds and report back through
// mutationDoneMsg; the refreshed lists arrive through the normal
// subscription path once the mutation's invalidations refetch.
//
// # Preferences
//
// Theme changes (T) and watchlist edits (w) are saved to the prefs file.
package ui
