package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 || names[0] != "Midnight" {
		t.Fatalf("ThemeNames() = %v", names)
	}
	names[0] = "changed"
	if ThemeNames()[0] != "Midnight" {
		t.Fatalf("ThemeNames returned shared slice")
	}
}

func TestNextTheme(t *testing.T) {
	tests := []struct{ current, want string }{
		{"Midnight", "Paper"},
		{"Paper", "Terminal"},
		{"Terminal", "Midnight"},
		{"Unknown", "Midnight"},
	}
	for _, tt := range tests {
		if got := NextTheme(tt.current); got != tt.want {
			t.Fatalf("NextTheme(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestGetTheme_FallsBack(t *testing.T) {
	if got := GetTheme("Paper").Name; got != "Paper" {
		t.Fatalf("GetTheme(Paper).Name = %q", got)
	}
	if got := GetTheme("Dracula").Name; got != "Midnight" {
		t.Fatalf("GetTheme(Dracula).Name = %q, want Midnight", got)
	}
}

func TestThemesCoverStatuses(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, status := range []string{"NEW", "PARTIALLY_FILLED", "FILLED", "CANCELLED", "REJECTED", "ACTIVE", "PAUSED", "STOPPED"} {
			if th.StatusColors[status] == "" {
				t.Fatalf("%s has no color for %s", name, status)
			}
		}
	}
}
