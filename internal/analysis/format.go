package analysis

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FormatNumber renders a value for display. Precision depends on how many
// integer digits the value has: three or more digits are rounded to a whole
// number, two digits keep one decimal and smaller values keep two. Trailing
// zeros are dropped. Exact halves round away from zero.
func FormatNumber(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	}

	digits := integerDigits(value)
	if digits >= 3 {
		// Half rounds toward +Inf, so -100.5 becomes -100.
		return strconv.FormatFloat(math.Floor(value+0.5), 'f', 0, 64)
	}

	precision := 2
	if digits == 2 {
		precision = 1
	}
	return trimZeros(toFixed(value, precision))
}

// toFixed formats value with precision decimals. strconv rounds exact
// binary halves to even; those are rounded away from zero instead.
func toFixed(value float64, precision int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	scaled := new(big.Float).SetPrec(256).SetFloat64(value)
	scaled.Mul(scaled, new(big.Float).SetPrec(256).SetInt(scale))

	twice := new(big.Float).SetPrec(256).Mul(scaled, big.NewFloat(2))
	if scaled.IsInt() || !twice.IsInt() {
		return strconv.FormatFloat(value, 'f', precision, 64)
	}

	n, _ := scaled.Int(nil)
	if scaled.Sign() > 0 {
		n.Add(n, big.NewInt(1))
	} else {
		n.Sub(n, big.NewInt(1))
	}

	sign := ""
	if n.Sign() < 0 {
		sign = "-"
		n.Neg(n)
	}
	digits := n.String()
	if len(digits) <= precision {
		digits = strings.Repeat("0", precision-len(digits)+1) + digits
	}
	cut := len(digits) - precision
	return sign + digits[:cut] + "." + digits[cut:]
}

func integerDigits(value float64) int {
	return len(strconv.FormatFloat(math.Floor(math.Abs(value)), 'f', 0, 64))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FormatPercent is FormatNumber with a trailing percent sign.
func FormatPercent(value float64) string {
	return FormatNumber(value) + "%"
}
