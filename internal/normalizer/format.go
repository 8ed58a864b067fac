package normalizer

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

// ToFixed formats v with exactly digits decimals. Exact binary ties round
// away from zero, and magnitudes of 1e21 or more fall back to exponent form.
func ToFixed(v float64, digits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.Abs(v) >= 1e21:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	const prec = 256
	x := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(v))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	x.Mul(x, new(big.Float).SetPrec(prec).SetInt(scale))

	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(x, new(big.Float).SetPrec(prec).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	s := decimal.NewFromBigInt(n, int32(-digits)).StringFixed(int32(digits))
	if v < 0 {
		s = "-" + s
	}
	return s
}

// ParseValue reads a metric value that may already carry a "%" suffix.
func ParseValue(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return models.ToFloat(v)
}

// Percentage renders v as "<n.nn>%".
func Percentage(v float64) string {
	return ToFixed(v, 2) + "%"
}
