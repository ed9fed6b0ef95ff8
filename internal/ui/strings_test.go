package ui

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"BTCUSDT", 10, "BTCUSDT"},
		{"BTCUSDT", 7, "BTCUSDT"},
		{"BTCUSDT", 6, "BTC..."},
		{"BTCUSDT", 3, "BTC"},
		{"  padded  ", 0, "padded"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	got := truncateMiddle("/home/trader/.local/state/tradedeck/tradedeck.log", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("len = %d, want 20 (%q)", len([]rune(got)), got)
	}
	if got[len(got)-6:] != "ck.log" {
		t.Fatalf("truncateMiddle lost the file name: %q", got)
	}
	if got := truncateMiddle("short", 20); got != "short" {
		t.Fatalf("truncateMiddle(short) = %q", got)
	}
}

func TestPadding(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padLeft("ab", 4); got != "  ab" {
		t.Fatalf("padLeft = %q", got)
	}
	if got := padLeft("abcdef", 4); got != "abcdef" {
		t.Fatalf("padLeft overflow = %q", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, n, want int }{
		{-1, 5, 0},
		{0, 0, 0},
		{3, 5, 3},
		{9, 5, 4},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, tt.n); got != tt.want {
			t.Fatalf("clamp(%d, %d) = %d, want %d", tt.v, tt.n, got, tt.want)
		}
	}
}
