package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/mutation"
)

type formKind int

const (
	formOrder formKind = iota
	formStrategy
	formWatchlist
)

// form is a modal of labeled text inputs.
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
}

type field struct {
	label, value, placeholder string
}

func newForm(kind formKind, title string, fields []field) *form {
	f := &form{kind: kind, title: title}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 32
		ti.Placeholder = fd.placeholder
		ti.SetValue(fd.value)
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, ti)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func newOrderForm(symbol string) *form {
	return newForm(formOrder, "Place order", []field{
		{"Exchange", string(api.ExchangeBybit), "BYBIT, BINANCE or KRAKEN"},
		{"Symbol", symbol, "BTCUSDT"},
		{"Side", string(api.SideBuy), "BUY or SELL"},
		{"Type", string(api.OrderTypeLimit), "LIMIT or MARKET"},
		{"Quantity", "", "0.01"},
		{"Price", "", "required for LIMIT"},
	})
}

func newStrategyForm(symbol string) *form {
	return newForm(formStrategy, "Create strategy", []field{
		{"Name", "", "BTC weekly DCA"},
		{"Symbol", symbol, "BTCUSDT"},
		{"Type", string(api.StrategyDCA), "DCA, GRID or ARBITRAGE"},
		{"API key ID", "1", ""},
		{"Parameters", "", "amount=100, frequency=1d"},
	})
}

func newWatchlistForm(symbols []string) *form {
	return newForm(formWatchlist, "Watchlist", []field{
		{"Symbols", strings.Join(symbols, ", "), "BTCUSDT, ETHUSDT"},
	})
}

func (f *form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (f *form) move(delta int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update forwards msg to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// parseOrderForm turns order form values into a validated spec. Field order
// matches newOrderForm.
func parseOrderForm(v []string) (api.OrderSpec, error) {
	if len(v) != 6 {
		return api.OrderSpec{}, fmt.Errorf("expected 6 fields, got %d", len(v))
	}
	qty, err := decimal.NewFromString(v[4])
	if err != nil {
		return api.OrderSpec{}, fmt.Errorf("quantity: %q is not a number", v[4])
	}
	var price *decimal.Decimal
	if v[5] != "" {
		p, err := decimal.NewFromString(v[5])
		if err != nil {
			return api.OrderSpec{}, fmt.Errorf("price: %q is not a number", v[5])
		}
		price = &p
	}
	spec := api.NewOrderSpec(
		api.ExchangeType(strings.ToUpper(v[0])),
		v[1],
		api.OrderSide(strings.ToUpper(v[2])),
		api.OrderType(strings.ToUpper(v[3])),
		qty,
		price,
	)
	return mutation.ValidateOrder(spec)
}

// parseStrategyForm turns strategy form values into a validated draft.
// Field order matches newStrategyForm.
func parseStrategyForm(v []string) (api.StrategyDraft, error) {
	if len(v) != 5 {
		return api.StrategyDraft{}, fmt.Errorf("expected 5 fields, got %d", len(v))
	}
	typ := api.StrategyType(strings.ToUpper(v[2]))
	if !typ.Valid() {
		return api.StrategyDraft{}, fmt.Errorf("type: unknown strategy type %q", v[2])
	}
	keyID, err := strconv.ParseInt(v[3], 10, 64)
	if err != nil || keyID <= 0 {
		return api.StrategyDraft{}, fmt.Errorf("API key ID: %q is not a positive integer", v[3])
	}
	kv, err := parseKeyValues(v[4])
	if err != nil {
		return api.StrategyDraft{}, err
	}
	params, err := api.ParseParameters(typ, kv)
	if err != nil {
		return api.StrategyDraft{}, err
	}
	return mutation.ValidateStrategy(api.StrategyDraft{
		APIKeyID:   keyID,
		Name:       v[0],
		Type:       typ,
		Symbol:     v[1],
		Parameters: params,
	})
}

// parseKeyValues parses "a=1, b=2". A value may itself hold commas when the
// next segment has no "=", so "exchanges=BYBIT,BINANCE" stays one value.
func parseKeyValues(s string) (map[string]string, error) {
	out := make(map[string]string)
	last := ""
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			if last == "" {
				return nil, fmt.Errorf("parameters: %q is not key=value", part)
			}
			out[last] += "," + part
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("parameters: %q has no key", part)
		}
		out[k] = strings.TrimSpace(v)
		last = k
	}
	return out, nil
}

// parseSymbols splits a comma or space separated list into unique
// upper-cased symbols, keeping first-seen order.
func parseSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.ToUpper(f)
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
