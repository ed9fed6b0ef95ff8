package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStrategyUnmarshal_SelectsVariantByType(t *testing.T) {
	cases := []struct {
		name  string
		input string
		check func(t *testing.T, p StrategyParameters)
	}{
		{
			name:  "dca",
			input: `{"type":"DCA","parameters":{"amount":"25.5","frequency":"4h","note":"x"}}`,
			check: func(t *testing.T, p StrategyParameters) {
				dca, ok := p.(DCAParams)
				if !ok {
					t.Fatalf("params = %T, want DCAParams", p)
				}
				if !dca.Amount.Equal(decimal.RequireFromString("25.5")) || dca.Frequency != "4h" {
					t.Fatalf("dca = %#v", dca)
				}
				if string(dca.Extra["note"]) != `"x"` {
					t.Fatalf("unknown key not preserved: %#v", dca.Extra)
				}
			},
		},
		{
			name:  "dca backend spelling",
			input: `{"type":"DCA","parameters":{"amountUsdt":10,"intervalMinutes":1440}}`,
			check: func(t *testing.T, p StrategyParameters) {
				dca := p.(DCAParams)
				if !dca.Amount.Equal(decimal.NewFromInt(10)) || dca.Frequency != "1440m" {
					t.Fatalf("dca = %#v, want 10 every 1440m", dca)
				}
			},
		},
		{
			name:  "grid",
			input: `{"type":"GRID","parameters":{"lowerPrice":100,"upperPrice":200,"gridCount":10,"amountPerGrid":5}}`,
			check: func(t *testing.T, p StrategyParameters) {
				grid, ok := p.(GridParams)
				if !ok || grid.Grids != 10 || !grid.UpperPrice.Equal(decimal.NewFromInt(200)) {
					t.Fatalf("grid = %#v", p)
				}
			},
		},
		{
			name:  "arbitrage",
			input: `{"type":"ARBITRAGE","parameters":{"minSpreadPercent":0.4,"amount":50,"exchanges":["BYBIT","BINANCE"]}}`,
			check: func(t *testing.T, p StrategyParameters) {
				arb, ok := p.(ArbitrageParams)
				if !ok || len(arb.Exchanges) != 2 || arb.Exchanges[1] != ExchangeBinance {
					t.Fatalf("arbitrage = %#v", p)
				}
			},
		},
		{
			name:  "unknown type keeps raw values",
			input: `{"type":"MOMENTUM","parameters":{"window":14}}`,
			check: func(t *testing.T, p StrategyParameters) {
				raw, ok := p.(RawParams)
				if !ok || raw.StrategyType() != "MOMENTUM" || string(raw.Values["window"]) != "14" {
					t.Fatalf("raw = %#v", p)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s Strategy
			if err := json.Unmarshal([]byte(tc.input), &s); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			tc.check(t, s.Parameters)
		})
	}
}

func TestStrategyUnmarshal_MismatchedParametersKeepList(t *testing.T) {
	input := `[
		{"id":1,"type":"DCA","parameters":{"amount":100,"frequency":"1h"}},
		{"id":2,"type":"DCA","parameters":{"amount":100,"frequency":60}},
		{"id":3,"type":"DCA","parameters":{"amount":"abc"}}
	]`
	var list []Strategy
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if _, ok := list[0].Parameters.(DCAParams); !ok {
		t.Fatalf("strategy 1 params = %T, want DCAParams", list[0].Parameters)
	}
	for _, s := range list[1:] {
		raw, ok := s.Parameters.(RawParams)
		if !ok {
			t.Fatalf("strategy %d params = %T, want RawParams", s.ID, s.Parameters)
		}
		if raw.StrategyType() != StrategyDCA {
			t.Fatalf("strategy %d type = %s, want DCA", s.ID, raw.StrategyType())
		}
	}
	if got := list[1].Parameters.Summary(); !strings.Contains(got, "frequency=60") {
		t.Fatalf("summary = %q, want raw frequency", got)
	}
}

func TestStrategyDraftMarshal_RoundTripsExtra(t *testing.T) {
	var s Strategy
	if err := json.Unmarshal([]byte(`{"type":"DCA","parameters":{"amount":1,"frequency":"1d","note":"keep"}}`), &s); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	draft := StrategyDraft{Name: "n", Type: s.Type, Symbol: "BTCUSDT", Parameters: s.Parameters}
	raw, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	var body struct {
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("Unmarshal body: %v", err)
	}
	if body.Parameters["note"] != "keep" || body.Parameters["amount"] != 1.0 {
		t.Fatalf("parameters = %v", body.Parameters)
	}
}

func TestParseParameters(t *testing.T) {
	p, err := ParseParameters(StrategyDCA, map[string]string{"amount": " 100 "})
	if err != nil {
		t.Fatalf("ParseParameters returned error: %v", err)
	}
	if dca := p.(DCAParams); dca.Frequency != "1h" || !dca.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("dca = %#v, want 100 every 1h", dca)
	}

	if _, err := ParseParameters(StrategyDCA, map[string]string{"amount": "lots"}); err == nil {
		t.Fatalf("ParseParameters accepted non-numeric amount")
	}

	p, err = ParseParameters(StrategyGrid, map[string]string{"lowerPrice": "1", "upperPrice": "2", "gridCount": "4", "amountPerGrid": "0.5"})
	if err != nil {
		t.Fatalf("ParseParameters grid returned error: %v", err)
	}
	if p.StrategyType() != StrategyGrid {
		t.Fatalf("type = %s, want GRID", p.StrategyType())
	}

	if _, err := ParseParameters(StrategyArbitrage, map[string]string{"minSpreadPercent": "1", "amount": "1", "exchanges": "bybit, ftx"}); err == nil {
		t.Fatalf("ParseParameters accepted unknown exchange")
	}
	if _, err := ParseParameters("MOMENTUM", nil); err == nil {
		t.Fatalf("ParseParameters accepted unknown type")
	}
}
