package ui

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Checking", 20, "Checking"},
		{"Checking", 5, "Chec…"},
		{"Checking", 0, ""},
		{"日本語テキスト", 5, "日本…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestPadding(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padLeft("ab", 4); got != "  ab" {
		t.Errorf("padLeft = %q", got)
	}
	if got := padLeft("abcdef", 4); got != "abcdef" {
		t.Errorf("padLeft should not cut, got %q", got)
	}
}

func TestCompactValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{50, "50"},
		{-25.5, "-25.5"},
		{1234.567, "1234.57"},
		{12500, "12.5k"},
		{3_000_000, "3M"},
		{-2_460_000, "-2.5M"},
		{7e9, "7B"},
	}
	for _, tt := range tests {
		if got := compactValue(tt.in); got != tt.want {
			t.Errorf("compactValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
