package money

import (
	"math"
	"strconv"
	"strings"
)

// ExternalSeparator is the decimal separator expected by the coupon engine's
// percent fields.
const ExternalSeparator = ","

// FormatPercent renders p with the given decimal separator. Integral values
// render without a fractional part so "7.5" is never misread as "75".
func FormatPercent(p float64, sep string) string {
	if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return "0"
	}
	if sep == "" {
		sep = ExternalSeparator
	}
	r := Round(p)
	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	out := strconv.FormatFloat(r, 'f', 2, 64)
	out = strings.TrimRight(out, "0")
	return strings.Replace(out, ".", sep, 1)
}

// FormatPercentForExternal formats p for the external coupon engine.
func FormatPercentForExternal(p float64) string {
	return FormatPercent(p, ExternalSeparator)
}
