package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{42.5, "$42.50"},
		{1234567.891, "$1,234,567.89"},
		{-42.5, "-$42.50"},
		{-0.001, "$0.00"},
		{999.999, "$1,000.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Fatalf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"1000", "$1,000.00"},
		{"850.5", "$850.50"},
		{"-1234.567", "-$1,234.57"},
	}
	for _, tt := range tests {
		if got := FormatDecimal(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Fatalf("FormatDecimal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Fatalf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	if got := FormatCompact(2_500_000); got != "$2.5M" {
		t.Fatalf("FormatCompact(2.5M) = %q", got)
	}
	if got := FormatCompact(950); got != "$950.00" {
		t.Fatalf("FormatCompact(950) = %q", got)
	}
}

func TestFormatPercentAndSigned(t *testing.T) {
	if got := FormatPercent(85); got != "85.0%" {
		t.Fatalf("FormatPercent(85) = %q", got)
	}
	if got := FormatFraction(0.25); got != "25.0%" {
		t.Fatalf("FormatFraction(0.25) = %q", got)
	}
	if got := FormatSigned(10); got != "+$10.00" {
		t.Fatalf("FormatSigned(10) = %q", got)
	}
	if got := FormatSigned(-10); got != "-$10.00" {
		t.Fatalf("FormatSigned(-10) = %q", got)
	}
}

func TestRenderTableAlignsRows(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Category", "Spent"},
		Rows: [][]string{
			{"food", "$850.00"},
			{Separator},
			{"rent", "$1,200.00"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// top, header, header rule, row, separator, row, bottom
	if len(lines) != 7 {
		t.Fatalf("table has %d lines, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "food") || !strings.Contains(out, "$1,200.00") {
		t.Fatalf("table missing cells:\n%s", out)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline(nil); got != "" {
		t.Fatalf("empty sparkline = %q", got)
	}
	got := []rune(RenderSparkline([]float64{0, 50, 100, -10}))
	if len(got) != 4 || got[0] != '▁' || got[2] != '█' || got[3] != '▁' {
		t.Fatalf("sparkline = %q", string(got))
	}
}
