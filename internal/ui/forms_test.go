package ui

import (
	"errors"
	"reflect"
	"testing"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/mutation"
)

func TestParseOrderForm_Limit(t *testing.T) {
	spec, err := parseOrderForm([]string{"bybit", "ethusdt", "buy", "limit", "2.5", "3000"})
	if err != nil {
		t.Fatalf("parseOrderForm returned error: %v", err)
	}
	if spec.Symbol != "ETHUSDT" || spec.Side != api.SideBuy || spec.OrderType != api.OrderTypeLimit {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.Quantity.String() != "2.5" || !spec.Price.Valid || spec.Price.Decimal.String() != "3000" {
		t.Fatalf("quantity/price = %s/%v", spec.Quantity, spec.Price)
	}
}

func TestParseOrderForm_MarketDropsPrice(t *testing.T) {
	spec, err := parseOrderForm([]string{"BINANCE", "BTCUSDT", "SELL", "MARKET", "0.1", "50000"})
	if err != nil {
		t.Fatalf("parseOrderForm returned error: %v", err)
	}
	if spec.Price.Valid {
		t.Fatalf("MARKET order kept price %v", spec.Price)
	}
}

func TestParseOrderForm_Errors(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		validation bool
	}{
		{"bad quantity", []string{"BYBIT", "BTCUSDT", "BUY", "LIMIT", "lots", "1"}, false},
		{"bad price", []string{"BYBIT", "BTCUSDT", "BUY", "LIMIT", "1", "cheap"}, false},
		{"limit without price", []string{"BYBIT", "BTCUSDT", "BUY", "LIMIT", "1", ""}, true},
		{"zero quantity", []string{"BYBIT", "BTCUSDT", "BUY", "MARKET", "0", ""}, true},
		{"unknown exchange", []string{"FTX", "BTCUSDT", "BUY", "MARKET", "1", ""}, true},
		{"missing symbol", []string{"BYBIT", "", "BUY", "MARKET", "1", ""}, true},
		{"short", []string{"BYBIT"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOrderForm(tt.values)
			if err == nil {
				t.Fatalf("expected error")
			}
			var verr *mutation.ValidationError
			if got := errors.As(err, &verr); got != tt.validation {
				t.Fatalf("validation error = %v, want %v (%v)", got, tt.validation, err)
			}
		})
	}
}

func TestParseStrategyForm(t *testing.T) {
	draft, err := parseStrategyForm([]string{"Weekly BTC", "btcusdt", "dca", "3", "amount=100, frequency=1d"})
	if err != nil {
		t.Fatalf("parseStrategyForm returned error: %v", err)
	}
	params, ok := draft.Parameters.(api.DCAParams)
	if !ok {
		t.Fatalf("parameters = %T, want DCAParams", draft.Parameters)
	}
	if draft.Symbol != "BTCUSDT" || draft.APIKeyID != 3 || params.Amount.String() != "100" || params.Frequency != "1d" {
		t.Fatalf("draft = %+v params = %+v", draft, params)
	}

	arb, err := parseStrategyForm([]string{"Spread", "ETHUSDT", "ARBITRAGE", "1", "minSpreadPercent=0.5, amount=10, exchanges=BYBIT,BINANCE"})
	if err != nil {
		t.Fatalf("parseStrategyForm(arbitrage) returned error: %v", err)
	}
	ap := arb.Parameters.(api.ArbitrageParams)
	if !reflect.DeepEqual(ap.Exchanges, []api.ExchangeType{api.ExchangeBybit, api.ExchangeBinance}) {
		t.Fatalf("exchanges = %v", ap.Exchanges)
	}
}

func TestParseStrategyForm_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values []string
	}{
		{"unknown type", []string{"x", "BTCUSDT", "MOMENTUM", "1", "a=1"}},
		{"bad key id", []string{"x", "BTCUSDT", "DCA", "zero", "amount=1"}},
		{"missing amount", []string{"x", "BTCUSDT", "DCA", "1", "frequency=1h"}},
		{"bad grid count", []string{"x", "BTCUSDT", "GRID", "1", "lowerPrice=1, upperPrice=2, gridCount=many, amountPerGrid=1"}},
		{"missing name", []string{"", "BTCUSDT", "DCA", "1", "amount=1"}},
		{"malformed params", []string{"x", "BTCUSDT", "DCA", "1", "amount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseStrategyForm(tt.values); err == nil {
				t.Fatalf("expected error for %v", tt.values)
			}
		})
	}
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues(" a = 1 ,b=2,,exchanges=BYBIT, KRAKEN ")
	if err != nil {
		t.Fatalf("parseKeyValues returned error: %v", err)
	}
	want := map[string]string{"a": "1", "b": "2", "exchanges": "BYBIT,KRAKEN"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseKeyValues = %v, want %v", got, want)
	}
	if _, err := parseKeyValues("=5"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestParseSymbols(t *testing.T) {
	got := parseSymbols("btcusdt, ETHUSDT solusdt,,BTCUSDT")
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseSymbols = %v, want %v", got, want)
	}
	if got := parseSymbols("  "); got != nil {
		t.Fatalf("parseSymbols(blank) = %v, want nil", got)
	}
}

func TestFormMoveWraps(t *testing.T) {
	f := newOrderForm("BTCUSDT")
	f.move(-1)
	if f.focus != len(f.inputs)-1 || !f.inputs[f.focus].Focused() {
		t.Fatalf("focus = %d after moving back from first field", f.focus)
	}
	f.move(1)
	if f.focus != 0 || f.inputs[len(f.inputs)-1].Focused() {
		t.Fatalf("focus = %d after wrapping forward", f.focus)
	}
	if got := f.values()[1]; got != "BTCUSDT" {
		t.Fatalf("symbol default = %q", got)
	}
}
