package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/query"
)

// renderMain renders the header, the command bar and the active view.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Padding(0, 1).Render(m.renderContent()))
	return b.String()
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewOrders:
		return m.renderOrders()
	case ViewStrategies:
		return m.renderStrategies()
	case ViewTrades:
		return m.renderTrades()
	case ViewCandles:
		return m.renderCandles()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderDashboard()
	}
}

// queryStatus renders the title line of a panel: loading, refreshing, error
// and age of the data.
func queryStatus[T any](styles Styles, title string, s query.State[T], now time.Time) string {
	parts := []string{styles.AccentText.Bold(true).Render(title)}
	switch {
	case s.IsLoading:
		parts = append(parts, styles.WarningText.Render("loading..."))
	case s.IsFetching:
		parts = append(parts, styles.InfoText.Render("refreshing"))
	}
	if s.HasData {
		parts = append(parts, styles.FaintText.Render("updated "+formatAge(now, s.UpdatedAt)))
	}
	if s.Err != nil {
		label := "error: "
		if s.HasData {
			label = "stale, last fetch failed: "
		}
		parts = append(parts, styles.DangerText.Render(truncate(label+s.Err.Error(), 80)))
	}
	return strings.Join(parts, "  ")
}

// emptyBody returns the placeholder for a panel without rows.
func emptyBody[T any](styles Styles, s query.State[T], what string) string {
	switch {
	case !s.HasData && s.Err != nil:
		return styles.MutedText.Render("Could not load " + what + ".")
	case !s.HasData:
		return styles.MutedText.Render("Loading " + what + "...")
	default:
		return styles.MutedText.Render("No " + what + ".")
	}
}

func (m Model) tableHeight() int {
	return max(m.height-6, 3)
}

func (m Model) renderDashboard() string {
	styles := m.theme.Styles()
	left := m.renderBalances(styles)
	right := m.renderPrices(styles)
	if m.width < 110 {
		return left + "\n\n" + right
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
}

func (m Model) renderBalances(styles Styles) string {
	s := m.data.balances
	title := queryStatus(styles, "Balances", s, m.now)
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "balances")
	}

	cols := []column{
		{title: "Exchange", width: 8},
		{title: "Asset", width: 6},
		{title: "Free", width: 14, right: true},
		{title: "Locked", width: 14, right: true},
		{title: "Total", width: 14, right: true},
		{title: "", width: 1},
	}
	rows := make([][]string, len(s.Data))
	for i, bal := range s.Data {
		flag := ""
		if !bal.Consistent() {
			flag = "!"
		}
		rows[i] = []string{
			string(bal.ExchangeType),
			bal.Asset,
			formatQuantity(bal.FreeBalance),
			formatQuantity(bal.LockedBalance),
			formatQuantity(bal.TotalBalance),
			flag,
		}
	}
	table := renderTable(styles, cols, rows, m.selected[ViewDashboard], m.tableHeight(), func(row, col int) (lipgloss.Style, bool) {
		if col == 5 {
			return styles.WarningText, true
		}
		return lipgloss.Style{}, false
	})
	return title + "\n" + table
}

func (m Model) renderPrices(styles Styles) string {
	s := m.data.prices
	title := queryStatus(styles, "Prices", s, m.now)
	if len(m.symbols) == 0 {
		return title + "\n" + styles.MutedText.Render("Watchlist is empty. Press w to add symbols.")
	}
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "prices")
	}

	cols := []column{
		{title: "Symbol", width: 10},
		{title: "Price", width: 14, right: true},
		{title: "24h", width: 9, right: true},
		{title: "At", width: 8},
		{title: "", width: 3},
	}
	rows := make([][]string, len(s.Data))
	synthetic := 0
	for i, p := range s.Data {
		mark := ""
		if p.Synthetic {
			mark = "est"
			synthetic++
		}
		rows[i] = []string{
			p.Symbol,
			formatPrice(p.Price),
			formatChange(p.PriceChange24h),
			formatClock(p.ParsedTimestamp()),
			mark,
		}
	}
	table := renderTable(styles, cols, rows, -1, m.tableHeight(), func(row, col int) (lipgloss.Style, bool) {
		p := s.Data[row]
		switch col {
		case 2:
			if !p.PriceChange24h.Valid {
				return styles.MutedText, true
			}
			if p.PriceChange24h.Decimal.IsNegative() {
				return styles.DangerText, true
			}
			return styles.SuccessText, true
		case 4:
			return styles.WarningText, true
		}
		if p.Synthetic {
			return styles.FaintText, true
		}
		return lipgloss.Style{}, false
	})
	if synthetic > 0 {
		table += "\n" + styles.WarningText.Render(fmt.Sprintf("%d estimated price(s): upstream unavailable", synthetic))
	}
	return title + "\n" + table
}

func (m Model) renderOrders() string {
	styles := m.theme.Styles()
	s := m.data.orders
	title := queryStatus(styles, "Orders", s, m.now)
	if m.cancelOrder.IsPending() {
		title += "  " + styles.WarningText.Render("cancelling...")
	}
	if m.placeOrder.IsPending() {
		title += "  " + styles.WarningText.Render("placing...")
	}
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "orders")
	}

	cols := []column{
		{title: "ID", width: 7, right: true},
		{title: "Created", width: 14},
		{title: "Exchange", width: 8},
		{title: "Symbol", width: 10},
		{title: "Side", width: 4},
		{title: "Type", width: 6},
		{title: "Qty", width: 12, right: true},
		{title: "Price", width: 12, right: true},
		{title: "Filled", width: 6, right: true},
		{title: "Avg", width: 12, right: true},
		{title: "Status", width: 16},
	}
	rows := make([][]string, len(s.Data))
	for i, o := range s.Data {
		rows[i] = []string{
			fmt.Sprintf("%d", o.ID),
			formatStamp(o.ParsedCreatedAt()),
			string(o.ExchangeType),
			o.Symbol,
			string(o.Side),
			string(o.OrderType),
			formatQuantity(o.Quantity),
			formatNullPrice(o.Price),
			fmt.Sprintf("%.0f%%", o.FillRatio()*100),
			formatNullPrice(o.AveragePrice),
			string(o.Status),
		}
	}
	table := renderTable(styles, cols, rows, m.selected[ViewOrders], m.tableHeight(), func(row, col int) (lipgloss.Style, bool) {
		o := s.Data[row]
		switch col {
		case 4:
			return sideStyle(styles, o.Side), true
		case 10:
			return styles.StatusStyle(string(o.Status)).Padding(0), true
		}
		if !o.Status.Open() {
			return styles.MutedText, true
		}
		return lipgloss.Style{}, false
	})
	return title + "\n" + table
}

func (m Model) renderStrategies() string {
	styles := m.theme.Styles()
	s := m.data.strategies
	title := queryStatus(styles, "Strategies", s, m.now)
	if m.toggleStrategy.IsPending() || m.createStrategy.IsPending() {
		title += "  " + styles.WarningText.Render("saving...")
	}
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "strategies")
	}

	cols := []column{
		{title: "ID", width: 5, right: true},
		{title: "Name", width: 20},
		{title: "Type", width: 9},
		{title: "Symbol", width: 10},
		{title: "Status", width: 8},
		{title: "Last run", width: 14},
		{title: "Parameters", width: max(m.width-80, 20)},
	}
	rows := make([][]string, len(s.Data))
	for i, st := range s.Data {
		summary := "-"
		if st.Parameters != nil {
			summary = st.Parameters.Summary()
		}
		rows[i] = []string{
			fmt.Sprintf("%d", st.ID),
			st.Name,
			string(st.Type),
			st.Symbol,
			string(st.Status),
			formatStamp(st.ParsedLastRunAt()),
			summary,
		}
	}
	table := renderTable(styles, cols, rows, m.selected[ViewStrategies], m.tableHeight(), func(row, col int) (lipgloss.Style, bool) {
		if col == 4 {
			return styles.StatusStyle(string(s.Data[row].Status)).Padding(0), true
		}
		if col == 6 {
			return styles.MutedText, true
		}
		return lipgloss.Style{}, false
	})
	return title + "\n" + table
}

func (m Model) renderTrades() string {
	styles := m.theme.Styles()
	s := m.data.trades
	title := queryStatus(styles, "Trades", s, m.now)
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "trades")
	}

	cols := []column{
		{title: "Executed", width: 14},
		{title: "Order", width: 7, right: true},
		{title: "Exchange", width: 8},
		{title: "Symbol", width: 10},
		{title: "Side", width: 4},
		{title: "Qty", width: 12, right: true},
		{title: "Price", width: 12, right: true},
		{title: "Notional", width: 14, right: true},
		{title: "Fee", width: 14, right: true},
	}
	rows := make([][]string, len(s.Data))
	for i, tr := range s.Data {
		rows[i] = []string{
			formatStamp(tr.ParsedExecutedAt()),
			fmt.Sprintf("%d", tr.OrderID),
			string(tr.ExchangeType),
			tr.Symbol,
			string(tr.Side),
			formatQuantity(tr.Quantity),
			formatPrice(tr.Price),
			formatPrice(tr.Notional()),
			formatQuantity(tr.Fee) + " " + tr.FeeCurrency,
		}
	}
	table := renderTable(styles, cols, rows, m.selected[ViewTrades], m.tableHeight(), func(row, col int) (lipgloss.Style, bool) {
		if col == 4 {
			return sideStyle(styles, s.Data[row].Side), true
		}
		return lipgloss.Style{}, false
	})
	return title + "\n" + table
}

func (m Model) renderCandles() string {
	styles := m.theme.Styles()
	symbol := m.currentSymbol()
	if symbol == "" {
		return styles.MutedText.Render("Watchlist is empty. Press w on the dashboard to add symbols.")
	}
	s := m.data.candles
	title := queryStatus(styles, "Candles "+symbol, s, m.now)
	title += "  " + styles.FaintText.Render(fmt.Sprintf("[%d/%d]", m.candleIdx+1, len(m.symbols)))
	if len(s.Data) == 0 {
		return title + "\n" + emptyBody(styles, s, "candles")
	}

	closes := make([]float64, len(s.Data))
	for i, c := range s.Data {
		closes[i], _ = c.Close.Float64()
	}
	spark := closes
	if w := m.contentWidth(); len(spark) > w {
		spark = spark[len(spark)-w:]
	}

	cols := []column{
		{title: "Open time", width: 14},
		{title: "Open", width: 12, right: true},
		{title: "High", width: 12, right: true},
		{title: "Low", width: 12, right: true},
		{title: "Close", width: 12, right: true},
		{title: "Volume", width: 14, right: true},
	}
	// Newest first
	rows := make([][]string, len(s.Data))
	for i := range s.Data {
		c := s.Data[len(s.Data)-1-i]
		rows[i] = []string{
			formatStamp(c.OpenedAt()),
			formatPrice(c.Open),
			formatPrice(c.High),
			formatPrice(c.Low),
			formatPrice(c.Close),
			formatQuantity(c.Volume),
		}
	}
	table := renderTable(styles, cols, rows, m.selected[ViewCandles], m.tableHeight()-2, func(row, col int) (lipgloss.Style, bool) {
		c := s.Data[len(s.Data)-1-row]
		if col == 4 {
			if c.Close.LessThan(c.Open) {
				return styles.DangerText, true
			}
			return styles.SuccessText, true
		}
		return lipgloss.Style{}, false
	})
	return title + "\n" + styles.AccentText.Render(sparkline(spark)) + "\n" + table
}

func sideStyle(styles Styles, side api.OrderSide) lipgloss.Style {
	if side == api.SideSell {
		return styles.DangerText
	}
	return styles.SuccessText
}
