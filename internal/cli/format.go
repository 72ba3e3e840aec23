// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount with two decimals and thousands separators.
// e.g., 1234567.891 -> "$1,234,567.89", -42.5 -> "-$42.50"
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	s := "$" + FormatNumber(cents/100) + fmt.Sprintf(".%02d", cents%100)
	if neg && cents != 0 {
		return "-" + s
	}
	return s
}

// FormatDecimal formats a decimal amount like FormatMoney without going
// through float64 for the integer part.
func FormatDecimal(d decimal.Decimal) string {
	r := d.Round(2)
	neg := r.IsNegative()
	if neg {
		r = r.Neg()
	}
	whole := r.Truncate(0)
	frac := r.Sub(whole).Shift(2).IntPart()
	s := "$" + groupDigits(whole.String()) + fmt.Sprintf(".%02d", frac)
	if neg {
		return "-" + s
	}
	return s
}

// FormatCompact formats large amounts with a suffix.
// e.g., 1234 -> "$1.2K", 2500000 -> "$2.5M"
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%s$%.1fB", sign, abs/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, abs/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%s$%.1fK", sign, abs/1_000)
	default:
		return FormatMoney(v)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	return groupDigits(strconv.FormatInt(n, 10))
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value already expressed in percent.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatFraction formats a 0-1 float as a percentage string.
func FormatFraction(f float64) string {
	return FormatPercent(f * 100)
}

// FormatSigned formats an amount with an explicit sign.
func FormatSigned(v float64) string {
	if v >= 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatScore formats a 0-100 score.
func FormatScore(s float64) string {
	return fmt.Sprintf("%.1f", s)
}

// FormatDays formats a day count.
func FormatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
