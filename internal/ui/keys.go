package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Refresh    key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding

	// View switching
	ViewDashboard  key.Binding
	ViewOrders     key.Binding
	ViewStrategies key.Binding
	ViewTrades     key.Binding
	ViewCandles    key.Binding
	ViewLogs       key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Actions
	New         key.Binding
	CancelOrder key.Binding
	Toggle      key.Binding
	EditSymbols key.Binding
	PrevSymbol  key.Binding
	NextSymbol  key.Binding
	CycleLevel  key.Binding

	// Forms
	Submit    key.Binding
	Dismiss   key.Binding
	NextField key.Binding
	PrevField key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh now"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Dashboard"),
		),
		ViewOrders: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Orders"),
		),
		ViewStrategies: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Strategies"),
		),
		ViewTrades: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Trades"),
		),
		ViewCandles: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Candles"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("6", "l"),
			key.WithHelp("6/l", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New order/strategy"),
		),
		CancelOrder: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Cancel order"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Pause/resume strategy"),
		),
		EditSymbols: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Edit watchlist"),
		),
		PrevSymbol: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Previous symbol"),
		),
		NextSymbol: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Next symbol"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle log level"),
		),

		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewDashboard, k.ViewOrders, k.ViewStrategies, k.ViewTrades, k.ViewCandles, k.ViewLogs, k.Tab},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.New, k.CancelOrder, k.Toggle, k.EditSymbols, k.PrevSymbol, k.NextSymbol, k.CycleLevel},
		{k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
