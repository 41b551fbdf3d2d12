package money

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseMoney converts a user or form supplied amount into a rounded float.
// Currency symbols and whitespace are ignored. When both '.' and ',' are
// present the dot is the thousands separator and the comma the decimal one;
// a lone comma is a decimal separator. Anything unparseable yields 0.
func ParseMoney(s string) float64 {
	v, ok := parseDecimal(s)
	if !ok || v <= 0 {
		return 0
	}
	return Round(v)
}

// ParseMoneyOK behaves like ParseMoney but also reports whether the input was
// understood, so callers can log a warning for garbage input.
func ParseMoneyOK(s string) (float64, bool) {
	v, ok := parseDecimal(s)
	if !ok {
		return 0, strings.TrimSpace(s) == ""
	}
	if v <= 0 {
		return 0, true
	}
	return Round(v), true
}

// ParsePercent parses "7.5", "7,5" or "7,5 %" into 7.5. Unparseable or
// negative input yields 0.
func ParsePercent(s string) float64 {
	v, ok := parseDecimal(strings.ReplaceAll(s, "%", ""))
	if !ok || v <= 0 {
		return 0
	}
	return v
}

func parseDecimal(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		case unicode.IsSpace(r):
			return -1
		default:
			// currency symbols, letters, apostrophes used as grouping
			return -1
		}
	}, s)
	if cleaned == "" {
		return 0, false
	}
	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
