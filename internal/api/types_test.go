package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBalanceConsistent(t *testing.T) {
	b := Balance{
		FreeBalance:   decimal.RequireFromString("1.5"),
		LockedBalance: decimal.RequireFromString("0.5"),
		TotalBalance:  decimal.RequireFromString("2.0"),
	}
	if !b.Consistent() {
		t.Fatalf("Consistent() = false, want true")
	}
	b.TotalBalance = decimal.NewFromInt(3)
	if b.Consistent() {
		t.Fatalf("Consistent() = true for mismatched total")
	}
	if !b.TotalBalance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("Consistent must not correct the total")
	}
}

func TestOrderHelpers(t *testing.T) {
	var o Order
	if err := json.Unmarshal([]byte(`{"status":"PARTIALLY_FILLED","quantity":"4","filledQuantity":"1"}`), &o); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !o.Cancellable() {
		t.Fatalf("partially filled order should be cancellable")
	}
	if !o.FillConsistent() || o.FillRatio() != 0.25 {
		t.Fatalf("fill = %v consistent=%v", o.FillRatio(), o.FillConsistent())
	}
	for _, status := range []OrderStatus{OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected} {
		o.Status = status
		if o.Cancellable() {
			t.Fatalf("%s should not be cancellable", status)
		}
	}
	o.FilledQuantity = decimal.NewFromInt(5)
	if o.FillConsistent() {
		t.Fatalf("overfilled order reported consistent")
	}
	if (Order{}).FillRatio() != 0 {
		t.Fatalf("zero quantity should have zero ratio")
	}
}

func TestEnumValidity(t *testing.T) {
	if !ExchangeKraken.Valid() || ExchangeType("FTX").Valid() {
		t.Fatalf("ExchangeType.Valid mismatch")
	}
	if !SideSell.Valid() || OrderSide("HOLD").Valid() {
		t.Fatalf("OrderSide.Valid mismatch")
	}
	if !OrderTypeLimit.Valid() || OrderType("STOP").Valid() {
		t.Fatalf("OrderType.Valid mismatch")
	}
	if !StrategyArbitrage.Valid() || StrategyType("X").Valid() {
		t.Fatalf("StrategyType.Valid mismatch")
	}
	if !StrategyStopped.Valid() || StrategyStatus("DONE").Valid() {
		t.Fatalf("StrategyStatus.Valid mismatch")
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if parseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("parseTime should parse RFC3339")
	}
	got := parseTime("2025-12-13T10:11:12.123456")
	if got.IsZero() || got.Year() != 2025 || got.Month() != time.December {
		t.Fatalf("parseTime local = %v, want 2025-12-13", got)
	}
	if !parseTime("not a time").IsZero() || !parseTime(" ").IsZero() {
		t.Fatalf("parseTime should return zero for invalid input")
	}
}
