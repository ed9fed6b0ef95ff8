package ui

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// formatPrice shows two places for prices of one or more and six below.
func formatPrice(d decimal.Decimal) string {
	if d.Abs().LessThan(one) && !d.IsZero() {
		return d.StringFixed(6)
	}
	return d.StringFixed(2)
}

func formatNullPrice(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return formatPrice(d.Decimal)
}

// formatQuantity shows a quantity without trailing zeros.
func formatQuantity(d decimal.Decimal) string {
	return d.String()
}

// formatChange renders a 24h change with an explicit sign.
func formatChange(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	if d.Decimal.IsPositive() {
		return "+" + d.Decimal.StringFixed(2) + "%"
	}
	return d.Decimal.StringFixed(2) + "%"
}

// formatClock renders a wall-clock time or "-" for the zero time.
func formatClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

// formatStamp renders a date and time or "-" for the zero time.
func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("01-02 15:04:05")
}

// formatAge describes how long ago t was, relative to now.
func formatAge(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
