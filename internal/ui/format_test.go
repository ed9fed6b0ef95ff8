package ui

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"43250.5", "43250.50"},
		{"0.00012345", "0.000123"},
		{"0", "0.00"},
		{"1", "1.00"},
	}
	for _, tt := range tests {
		if got := formatPrice(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Fatalf("formatPrice(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		in   decimal.NullDecimal
		want string
	}{
		{decimal.NullDecimal{}, "-"},
		{decimal.NewNullDecimal(decimal.RequireFromString("2.5")), "+2.50%"},
		{decimal.NewNullDecimal(decimal.RequireFromString("-1.234")), "-1.23%"},
		{decimal.NewNullDecimal(decimal.Zero), "0.00%"},
	}
	for _, tt := range tests {
		if got := formatChange(tt.in); got != tt.want {
			t.Fatalf("formatChange(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now, "now"},
		{now.Add(-12 * time.Second), "12s ago"},
		{now.Add(-3 * time.Minute), "3m ago"},
		{now.Add(-2 * time.Hour), "2h ago"},
	}
	for _, tt := range tests {
		if got := formatAge(now, tt.then); got != tt.want {
			t.Fatalf("formatAge(%v) = %q, want %q", tt.then, got, tt.want)
		}
	}
}
