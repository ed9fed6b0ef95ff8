package ui

import (
	"fmt"
	"strings"
)

// renderHeader renders the status bar: views, polling activity and the
// last action's outcome.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100

	parts := []string{bg.Render("tradedeck", styles.Logo)}

	tabs := make([]string, 0, viewCount)
	for v := View(0); v < viewCount; v++ {
		label := fmt.Sprintf("%d %s", v+1, v)
		if compact {
			label = fmt.Sprintf("%d", v+1)
		}
		if v == m.currentView {
			tabs = append(tabs, bg.Render(label, styles.AccentText.Bold(true)))
		} else {
			tabs = append(tabs, bg.Render(label, styles.FaintText))
		}
	}
	parts = append(parts, strings.Join(tabs, bg.Spaces(2)))

	parts = append(parts,
		bg.Render("user", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", m.userID), styles.Text))

	polling := len(m.client.Polling())
	pollStyle := styles.FaintText
	if polling > 0 {
		pollStyle = styles.SuccessText
	}
	parts = append(parts, bg.Render(fmt.Sprintf("● polling %d", polling), pollStyle))

	if n := m.pendingWrites(); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("… %d pending", n), styles.WarningText))
	}

	if m.flash.text != "" {
		limit := 80
		if compact {
			limit = 40
		}
		style := styles.SuccessText
		if m.flash.err {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.flash.text, limit), style))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewDashboard:
		commands = []cmd{{"w", "Watchlist"}, {"j/k", "Navigate"}}
	case ViewOrders:
		commands = []cmd{{"n", "New order"}, {"x", "Cancel"}, {"j/k", "Navigate"}}
	case ViewStrategies:
		commands = []cmd{{"n", "New strategy"}, {"space", "Pause/Resume"}, {"j/k", "Navigate"}}
	case ViewTrades:
		commands = []cmd{{"j/k", "Navigate"}}
	case ViewCandles:
		commands = []cmd{{"[/]", "Symbol"}, {"j/k", "Navigate"}}
	case ViewLogs:
		commands = []cmd{{"f", "Level"}, {"g/G", "Top/Bottom"}}
	}
	commands = append(commands, cmd{"r", "Refresh"}, cmd{"tab", "Next view"}, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// pendingWrites counts the write mutations still in flight.
func (m Model) pendingWrites() int {
	n := 0
	for _, pending := range []bool{
		m.placeOrder.IsPending(),
		m.cancelOrder.IsPending(),
		m.createStrategy.IsPending(),
		m.toggleStrategy.IsPending(),
	} {
		if pending {
			n++
		}
	}
	return n
}
