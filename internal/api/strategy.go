package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy is an automated trading strategy owned by a user.
type Strategy struct {
	ID         int64
	UserID     int64
	APIKeyID   int64
	Name       string
	Type       StrategyType
	Status     StrategyStatus
	Symbol     string
	Parameters StrategyParameters
	CreatedAt  string
	UpdatedAt  string
	LastRunAt  string
}

func (s Strategy) ParsedCreatedAt() time.Time { return parseTime(s.CreatedAt) }
func (s Strategy) ParsedLastRunAt() time.Time { return parseTime(s.LastRunAt) }

type strategyWire struct {
	ID         int64                      `json:"id"`
	UserID     int64                      `json:"userId"`
	APIKeyID   int64                      `json:"apiKeyId"`
	Name       string                     `json:"name"`
	Type       StrategyType               `json:"type"`
	Status     StrategyStatus             `json:"status"`
	Symbol     string                     `json:"symbol"`
	Parameters map[string]json.RawMessage `json:"parameters"`
	CreatedAt  string                     `json:"createdAt"`
	UpdatedAt  string                     `json:"updatedAt"`
	LastRunAt  string                     `json:"lastRunAt,omitempty"`
}

// UnmarshalJSON decodes the open parameter map into the variant selected by type.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var wire strategyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	params, err := decodeParameters(wire.Type, wire.Parameters)
	if err != nil {
		// The server stores an open map; keep what does not fit the variant.
		params = RawParams{Type: wire.Type, Values: wire.Parameters}
	}
	*s = Strategy{
		ID:         wire.ID,
		UserID:     wire.UserID,
		APIKeyID:   wire.APIKeyID,
		Name:       wire.Name,
		Type:       wire.Type,
		Status:     wire.Status,
		Symbol:     wire.Symbol,
		Parameters: params,
		CreatedAt:  wire.CreatedAt,
		UpdatedAt:  wire.UpdatedAt,
		LastRunAt:  wire.LastRunAt,
	}
	return nil
}

// StrategyDraft is a strategy before the server assigns id and timestamps.
type StrategyDraft struct {
	APIKeyID   int64
	Name       string
	Type       StrategyType
	Status     StrategyStatus
	Symbol     string
	Parameters StrategyParameters
}

// MarshalJSON flattens the parameter variant back into the open map.
func (d StrategyDraft) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"apiKeyId": d.APIKeyID,
		"name":     d.Name,
		"type":     d.Type,
		"symbol":   d.Symbol,
	}
	if d.Status != "" {
		body["status"] = d.Status
	}
	if d.Parameters != nil {
		body["parameters"] = d.Parameters.values()
	} else {
		body["parameters"] = map[string]any{}
	}
	return json.Marshal(body)
}

// StrategyParameters is the closed set of per-type parameter variants:
// DCAParams, GridParams, ArbitrageParams, and RawParams for types this
// client does not model.
type StrategyParameters interface {
	StrategyType() StrategyType
	// Summary renders the parameters for display.
	Summary() string
	values() map[string]any
}

// DCAParams buys a fixed amount on a fixed cadence.
type DCAParams struct {
	Amount    decimal.Decimal
	Frequency string
	Extra     map[string]json.RawMessage
}

func (DCAParams) StrategyType() StrategyType { return StrategyDCA }

func (p DCAParams) Summary() string {
	return fmt.Sprintf("%s every %s", p.Amount.String(), p.Frequency)
}

func (p DCAParams) values() map[string]any {
	out := extraValues(p.Extra)
	out["amount"] = jsonNumber(p.Amount)
	out["frequency"] = p.Frequency
	return out
}

// GridParams places orders across a price band.
type GridParams struct {
	LowerPrice    decimal.Decimal
	UpperPrice    decimal.Decimal
	Grids         int
	AmountPerGrid decimal.Decimal
	Extra         map[string]json.RawMessage
}

func (GridParams) StrategyType() StrategyType { return StrategyGrid }

func (p GridParams) Summary() string {
	return fmt.Sprintf("%d grids %s-%s, %s each", p.Grids, p.LowerPrice, p.UpperPrice, p.AmountPerGrid)
}

func (p GridParams) values() map[string]any {
	out := extraValues(p.Extra)
	out["lowerPrice"] = jsonNumber(p.LowerPrice)
	out["upperPrice"] = jsonNumber(p.UpperPrice)
	out["gridCount"] = p.Grids
	out["amountPerGrid"] = jsonNumber(p.AmountPerGrid)
	return out
}

// ArbitrageParams trades a spread between exchanges.
type ArbitrageParams struct {
	MinSpreadPercent decimal.Decimal
	Amount           decimal.Decimal
	Exchanges        []ExchangeType
	Extra            map[string]json.RawMessage
}

func (ArbitrageParams) StrategyType() StrategyType { return StrategyArbitrage }

func (p ArbitrageParams) Summary() string {
	names := make([]string, 0, len(p.Exchanges))
	for _, ex := range p.Exchanges {
		names = append(names, string(ex))
	}
	return fmt.Sprintf("spread >= %s%% on %s, %s", p.MinSpreadPercent, strings.Join(names, "/"), p.Amount)
}

func (p ArbitrageParams) values() map[string]any {
	out := extraValues(p.Extra)
	out["minSpreadPercent"] = jsonNumber(p.MinSpreadPercent)
	out["amount"] = jsonNumber(p.Amount)
	out["exchanges"] = p.Exchanges
	return out
}

// RawParams carries parameters of a strategy type this client does not know,
// or of a known type whose values do not fit its variant.
type RawParams struct {
	Type   StrategyType
	Values map[string]json.RawMessage
}

func (p RawParams) StrategyType() StrategyType { return p.Type }

func (p RawParams) Summary() string {
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+string(p.Values[k]))
	}
	return strings.Join(parts, " ")
}

func (p RawParams) values() map[string]any { return extraValues(p.Values) }

func decodeParameters(t StrategyType, raw map[string]json.RawMessage) (StrategyParameters, error) {
	rest := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		rest[k] = v
	}
	switch t {
	case StrategyDCA:
		var p DCAParams
		var err error
		if p.Amount, err = takeDecimal(rest, "amount", "amountUsdt"); err != nil {
			return nil, err
		}
		if p.Frequency, err = takeString(rest, "frequency"); err != nil {
			return nil, err
		}
		if p.Frequency == "" {
			minutes, err := takeDecimal(rest, "intervalMinutes")
			if err != nil {
				return nil, err
			}
			if !minutes.IsZero() {
				p.Frequency = minutes.String() + "m"
			}
		}
		p.Extra = nilIfEmpty(rest)
		return p, nil
	case StrategyGrid:
		var p GridParams
		var err error
		if p.LowerPrice, err = takeDecimal(rest, "lowerPrice"); err != nil {
			return nil, err
		}
		if p.UpperPrice, err = takeDecimal(rest, "upperPrice"); err != nil {
			return nil, err
		}
		grids, err := takeDecimal(rest, "gridCount", "grids")
		if err != nil {
			return nil, err
		}
		p.Grids = int(grids.IntPart())
		if p.AmountPerGrid, err = takeDecimal(rest, "amountPerGrid"); err != nil {
			return nil, err
		}
		p.Extra = nilIfEmpty(rest)
		return p, nil
	case StrategyArbitrage:
		var p ArbitrageParams
		var err error
		if p.MinSpreadPercent, err = takeDecimal(rest, "minSpreadPercent"); err != nil {
			return nil, err
		}
		if p.Amount, err = takeDecimal(rest, "amount"); err != nil {
			return nil, err
		}
		if v, ok := rest["exchanges"]; ok {
			delete(rest, "exchanges")
			if err := json.Unmarshal(v, &p.Exchanges); err != nil {
				return nil, fmt.Errorf("exchanges: %w", err)
			}
		}
		p.Extra = nilIfEmpty(rest)
		return p, nil
	default:
		return RawParams{Type: t, Values: rest}, nil
	}
}

// ParseParameters coerces operator input into the variant for t. Numeric
// fields must parse as decimals; anything else about the values is left to
// the backend.
func ParseParameters(t StrategyType, input map[string]string) (StrategyParameters, error) {
	get := func(key string) string { return strings.TrimSpace(input[key]) }
	num := func(key string) (decimal.Decimal, error) {
		raw := get(key)
		if raw == "" {
			return decimal.Zero, fmt.Errorf("%s is required", key)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, raw)
		}
		return d, nil
	}

	switch t {
	case StrategyDCA:
		amount, err := num("amount")
		if err != nil {
			return nil, err
		}
		freq := get("frequency")
		if freq == "" {
			freq = "1h"
		}
		return DCAParams{Amount: amount, Frequency: freq}, nil
	case StrategyGrid:
		lower, err := num("lowerPrice")
		if err != nil {
			return nil, err
		}
		upper, err := num("upperPrice")
		if err != nil {
			return nil, err
		}
		grids, err := strconv.Atoi(get("gridCount"))
		if err != nil {
			return nil, fmt.Errorf("gridCount: %q is not an integer", get("gridCount"))
		}
		per, err := num("amountPerGrid")
		if err != nil {
			return nil, err
		}
		return GridParams{LowerPrice: lower, UpperPrice: upper, Grids: grids, AmountPerGrid: per}, nil
	case StrategyArbitrage:
		spread, err := num("minSpreadPercent")
		if err != nil {
			return nil, err
		}
		amount, err := num("amount")
		if err != nil {
			return nil, err
		}
		var exchanges []ExchangeType
		for _, part := range strings.Split(get("exchanges"), ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			ex := ExchangeType(part)
			if !ex.Valid() {
				return nil, fmt.Errorf("exchanges: unknown exchange %q", part)
			}
			exchanges = append(exchanges, ex)
		}
		return ArbitrageParams{MinSpreadPercent: spread, Amount: amount, Exchanges: exchanges}, nil
	default:
		return nil, fmt.Errorf("unsupported strategy type %q", t)
	}
}

func takeDecimal(m map[string]json.RawMessage, keys ...string) (decimal.Decimal, error) {
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		delete(m, key)
		if string(raw) == "null" {
			return decimal.Zero, nil
		}
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw); err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	}
	return decimal.Zero, nil
}

func takeString(m map[string]json.RawMessage, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", nil
	}
	delete(m, key)
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

func extraValues(extra map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func nilIfEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}

func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
