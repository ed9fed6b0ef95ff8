package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/logging"
	"github.com/five82/tradedeck/internal/logtail"
	"github.com/five82/tradedeck/internal/prefs"
	"github.com/five82/tradedeck/internal/query"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewOrders
	ViewStrategies
	ViewTrades
	ViewCandles
	ViewLogs
	viewCount
)

var viewNames = [viewCount]string{"Dashboard", "Orders", "Strategies", "Trades", "Candles", "Logs"}

func (v View) String() string {
	if v < 0 || v >= viewCount {
		return "Unknown"
	}
	return viewNames[v]
}

const (
	uiTick          = time.Second
	mutationTimeout = 15 * time.Second
	flashTTL        = 6 * time.Second
	logTailLines    = 1000
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    *query.Client
	UserID    int64
	Symbols   []string
	LogPath   string
	ThemeName string
	PrefsPath string
	Log       *logging.Log
}

// viewData holds the last states read from the cache for the active view.
type viewData struct {
	balances   query.State[[]api.Balance]
	orders     query.State[[]api.Order]
	strategies query.State[[]api.Strategy]
	trades     query.State[[]api.Trade]
	prices     query.State[[]api.TickerUpdate]
	candles    query.State[[]api.Candle]
}

// flash is a transient status line message.
type flash struct {
	text string
	err  bool
	at   time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    *query.Client
	userID    int64
	logPath   string
	prefsPath string
	log       *logging.Entry

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	now         time.Time

	// Data state
	subs      *subscriptions
	symbols   []string
	candleIdx int
	data      viewData
	selected  [viewCount]int

	balancesQ   *query.Query[[]api.Balance]
	ordersQ     *query.Query[[]api.Order]
	strategiesQ *query.Query[[]api.Strategy]
	tradesQ     *query.Query[[]api.Trade]
	pricesQ     *query.Query[[]api.TickerUpdate]
	candlesQ    *query.Query[[]api.Candle]

	placeOrder     *query.Mutation[api.OrderSpec, api.Order]
	cancelOrder    *query.Mutation[int64, api.Order]
	createStrategy *query.Mutation[api.StrategyDraft, api.Strategy]
	toggleStrategy *query.Mutation[query.StrategyToggle, api.Strategy]

	// Overlays
	form     *form
	showHelp bool
	flash    flash

	// Log state
	logViewport viewport.Model
	logLines    []logtail.Line
	logLevel    logrus.Level
	logErr      error
}

// New creates a new Bubble Tea model and subscribes the first view.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Midnight"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	c := opts.Client
	m := Model{
		ctx:       ctx,
		client:    c,
		userID:    opts.UserID,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		log:       logging.OrDiscard(opts.Log).WithComponent("ui"),

		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewDashboard,
		now:         time.Now(),

		subs:     newSubscriptions(),
		logLevel: logrus.InfoLevel,

		balancesQ:   c.Balances(opts.UserID),
		ordersQ:     c.Orders(opts.UserID),
		strategiesQ: c.Strategies(opts.UserID),
		tradesQ:     c.Trades(opts.UserID),

		placeOrder:     c.PlaceOrder(opts.UserID),
		cancelOrder:    c.CancelOrder(opts.UserID),
		createStrategy: c.CreateStrategy(opts.UserID),
		toggleStrategy: c.ToggleStrategy(opts.UserID),
	}
	m.setSymbols(opts.Symbols)
	m.activate()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(uiTick),
		waitForChange(m.subs),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.contentWidth(), m.contentHeight())
		}
		m.ready = true
		m.logViewport.Width = m.contentWidth()
		m.logViewport.Height = m.contentHeight()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case dataChangedMsg:
		m.refresh()
		return m, waitForChange(m.subs)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case mutationDoneMsg:
		m.handleMutationDone(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.form != nil {
		return m.renderForm()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.subs.releaseAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.refetch()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		cmd := m.switchView((m.currentView + 1) % viewCount)
		return m, cmd

	case key.Matches(msg, m.keys.ShiftTab):
		cmd := m.switchView((m.currentView + viewCount - 1) % viewCount)
		return m, cmd
	}

	if v, ok := m.viewForKey(msg); ok {
		cmd := m.switchView(v)
		return m, cmd
	}

	switch m.currentView {
	case ViewDashboard:
		if key.Matches(msg, m.keys.EditSymbols) {
			m.form = newWatchlistForm(m.symbols)
			return m, nil
		}
	case ViewOrders:
		switch {
		case key.Matches(msg, m.keys.New):
			m.form = newOrderForm(m.currentSymbol())
			return m, nil
		case key.Matches(msg, m.keys.CancelOrder):
			return m, m.cancelSelectedOrder()
		}
	case ViewStrategies:
		switch {
		case key.Matches(msg, m.keys.New):
			m.form = newStrategyForm(m.currentSymbol())
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			return m, m.toggleSelectedStrategy()
		}
	case ViewCandles:
		switch {
		case key.Matches(msg, m.keys.PrevSymbol):
			m.stepCandleSymbol(-1)
			return m, nil
		case key.Matches(msg, m.keys.NextSymbol):
			m.stepCandleSymbol(1)
			return m, nil
		}
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	m.moveSelection(msg)
	return m, nil
}

func (m Model) viewForKey(msg tea.KeyMsg) (View, bool) {
	bindings := [viewCount]key.Binding{
		m.keys.ViewDashboard,
		m.keys.ViewOrders,
		m.keys.ViewStrategies,
		m.keys.ViewTrades,
		m.keys.ViewCandles,
		m.keys.ViewLogs,
	}
	for v, b := range bindings {
		if key.Matches(msg, b) {
			return View(v), true
		}
	}
	return 0, false
}

func (m *Model) moveSelection(msg tea.KeyMsg) {
	n := m.rowCount()
	sel := &m.selected[m.currentView]
	switch {
	case key.Matches(msg, m.keys.Up):
		*sel--
	case key.Matches(msg, m.keys.Down):
		*sel++
	case key.Matches(msg, m.keys.Top):
		*sel = 0
	case key.Matches(msg, m.keys.Bottom):
		*sel = n - 1
	}
	*sel = clamp(*sel, n)
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.form = nil
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submitForm()
	case key.Matches(msg, m.keys.NextField):
		m.form.move(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.form.move(-1)
		return m, nil
	}
	m.form.err = ""
	return m, m.form.update(msg)
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	switch f.kind {
	case formOrder:
		spec, err := parseOrderForm(f.values())
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		m.form = nil
		mut := m.placeOrder
		label := fmt.Sprintf("Place %s %s %s %s", spec.OrderType, spec.Side, spec.Quantity, spec.Symbol)
		return m, m.runMutation(label, func(ctx context.Context) error {
			_, err := mut.Execute(ctx, spec)
			return err
		})

	case formStrategy:
		draft, err := parseStrategyForm(f.values())
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		m.form = nil
		mut := m.createStrategy
		return m, m.runMutation(fmt.Sprintf("Create strategy %q", draft.Name), func(ctx context.Context) error {
			_, err := mut.Execute(ctx, draft)
			return err
		})

	case formWatchlist:
		symbols := parseSymbols(f.values()[0])
		if len(symbols) == 0 {
			f.err = "at least one symbol is required"
			return m, nil
		}
		m.form = nil
		m.setSymbols(symbols)
		m.activate()
		m.savePrefs()
		return m, nil
	}
	m.form = nil
	return m, nil
}

func (m Model) cancelSelectedOrder() tea.Cmd {
	orders := m.data.orders.Data
	if len(orders) == 0 {
		return nil
	}
	order := orders[clamp(m.selected[ViewOrders], len(orders))]
	if !order.Cancellable() {
		return warnCmd(fmt.Sprintf("Order %d is %s and cannot be cancelled", order.ID, order.Status))
	}
	mut := m.cancelOrder
	return m.runMutation(fmt.Sprintf("Cancel order %d", order.ID), func(ctx context.Context) error {
		_, err := mut.Execute(ctx, order.ID)
		return err
	})
}

func (m Model) toggleSelectedStrategy() tea.Cmd {
	strategies := m.data.strategies.Data
	if len(strategies) == 0 {
		return nil
	}
	s := strategies[clamp(m.selected[ViewStrategies], len(strategies))]
	next := api.StrategyActive
	if s.Status == api.StrategyActive {
		next = api.StrategyPaused
	}
	mut := m.toggleStrategy
	in := query.StrategyToggle{StrategyID: s.ID, Status: next}
	return m.runMutation(fmt.Sprintf("Set %q %s", s.Name, next), func(ctx context.Context) error {
		_, err := mut.Execute(ctx, in)
		return err
	})
}

// switchView releases the old view's subscriptions and subscribes the new
// one. Queries nobody watches stop polling.
func (m *Model) switchView(v View) tea.Cmd {
	if v == m.currentView {
		return nil
	}
	m.currentView = v
	m.activate()
	if v == ViewLogs {
		return m.readLogs()
	}
	return nil
}

// activate subscribes to the queries the current view renders.
func (m *Model) activate() {
	m.subs.releaseAll()
	switch m.currentView {
	case ViewDashboard:
		watch(m.subs, m.balancesQ)
		watch(m.subs, m.pricesQ)
	case ViewOrders:
		watch(m.subs, m.ordersQ)
	case ViewStrategies:
		watch(m.subs, m.strategiesQ)
	case ViewTrades:
		watch(m.subs, m.tradesQ)
	case ViewCandles:
		if m.candlesQ != nil {
			watch(m.subs, m.candlesQ)
		}
	}
	m.refresh()
}

// refresh copies the current view's query states into the model.
func (m *Model) refresh() {
	switch m.currentView {
	case ViewDashboard:
		m.data.balances = m.balancesQ.State()
		m.data.prices = m.pricesQ.State()
	case ViewOrders:
		m.data.orders = m.ordersQ.State()
	case ViewStrategies:
		m.data.strategies = m.strategiesQ.State()
	case ViewTrades:
		m.data.trades = m.tradesQ.State()
	case ViewCandles:
		if m.candlesQ != nil {
			m.data.candles = m.candlesQ.State()
		} else {
			m.data.candles = query.State[[]api.Candle]{}
		}
	}
	m.selected[m.currentView] = clamp(m.selected[m.currentView], m.rowCount())
}

type refetcher interface{ Refetch() }

// refetch fetches the current view's queries now.
func (m *Model) refetch() {
	var qs []refetcher
	switch m.currentView {
	case ViewDashboard:
		qs = []refetcher{m.balancesQ, m.pricesQ}
	case ViewOrders:
		qs = []refetcher{m.ordersQ}
	case ViewStrategies:
		qs = []refetcher{m.strategiesQ}
	case ViewTrades:
		qs = []refetcher{m.tradesQ}
	case ViewCandles:
		if m.candlesQ != nil {
			qs = []refetcher{m.candlesQ}
		}
	}
	for _, q := range qs {
		q.Refetch()
	}
}

func (m *Model) rowCount() int {
	switch m.currentView {
	case ViewDashboard:
		return len(m.data.balances.Data)
	case ViewOrders:
		return len(m.data.orders.Data)
	case ViewStrategies:
		return len(m.data.strategies.Data)
	case ViewTrades:
		return len(m.data.trades.Data)
	case ViewCandles:
		return len(m.data.candles.Data)
	}
	return 0
}

// setSymbols replaces the watchlist. The caller re-activates the view.
func (m *Model) setSymbols(symbols []string) {
	m.symbols = parseSymbols(strings.Join(symbols, ","))
	m.pricesQ = m.client.Prices(m.symbols)
	m.candleIdx = clamp(m.candleIdx, len(m.symbols))
	m.candlesQ = nil
	if sym := m.currentSymbol(); sym != "" {
		m.candlesQ = m.client.Candles(sym, "", 0)
	}
}

func (m *Model) currentSymbol() string {
	if len(m.symbols) == 0 {
		return ""
	}
	return m.symbols[clamp(m.candleIdx, len(m.symbols))]
}

func (m *Model) stepCandleSymbol(delta int) {
	n := len(m.symbols)
	if n == 0 {
		return
	}
	m.candleIdx = (m.candleIdx + delta + n) % n
	m.candlesQ = m.client.Candles(m.currentSymbol(), "", 0)
	m.selected[ViewCandles] = 0
	m.activate()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Symbols: m.symbols})
	if err != nil {
		m.log.WithError(err).Warn("save preferences failed")
	}
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	if !m.flash.at.IsZero() && now.Sub(m.flash.at) > flashTTL {
		m.flash = flash{}
	}
	cmds := []tea.Cmd{tickCmd(uiTick)}
	if m.currentView == ViewLogs {
		cmds = append(cmds, m.readLogs())
	}
	return m, tea.Batch(cmds...)
}

// mutationDoneMsg reports the outcome of a write started from the UI.
type mutationDoneMsg struct {
	action string
	err    error
}

// warnCmd shows text as an error in the status line without running a write.
func warnCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{err: errors.New(text)}
	}
}

func (m Model) runMutation(action string, fn func(context.Context) error) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, mutationTimeout)
		defer cancel()
		return mutationDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m *Model) handleMutationDone(msg mutationDoneMsg) {
	now := time.Now()
	switch {
	case msg.err == nil:
		m.flash = flash{text: msg.action + ": done", at: now}
	case msg.action == "":
		m.flash = flash{text: msg.err.Error(), err: true, at: now}
	default:
		m.flash = flash{text: msg.action + ": " + msg.err.Error(), err: true, at: now}
	}
}

func (m Model) contentWidth() int {
	return max(m.width-2, 10)
}

// contentHeight leaves room for the header, command bar and table header.
func (m Model) contentHeight() int {
	return max(m.height-4, 3)
}

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the UI and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	m := New(opts)
	defer m.subs.releaseAll()

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
