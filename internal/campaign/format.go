package campaign

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ratHundred = big.NewRat(100, 1)
	ratZero    = new(big.Rat)
)

// Percent renders r as a percentage with prec decimals, rounding half away from zero.
// The value is not clamped.
func Percent(r *big.Rat, prec int) string {
	if r == nil {
		r = ratZero
	}
	return new(big.Rat).Mul(r, ratHundred).FloatString(prec)
}

// ClampedPercent is Percent limited to [0, 100], for progress bars.
func ClampedPercent(r *big.Rat, prec int) string {
	return Percent(clampUnit(r), prec)
}

// PercentFloat returns r*100 clamped to [0, 100] as a float64 for layout widths.
func PercentFloat(r *big.Rat) float64 {
	f, _ := new(big.Rat).Mul(clampUnit(r), ratHundred).Float64()
	return f
}

func clampUnit(r *big.Rat) *big.Rat {
	switch {
	case r == nil || r.Sign() < 0:
		return ratZero
	case r.Cmp(big.NewRat(1, 1)) > 0:
		return big.NewRat(1, 1)
	default:
		return r
	}
}

// FormatAmount renders a base-unit amount with the given number of token
// decimals, fixed to places digits after the point.
func FormatAmount(amount *big.Int, decimals, places int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(places)
}

// FormatTimeLeft renders a TimeLeft the way campaign cards display it.
func FormatTimeLeft(tl TimeLeft) string {
	if tl.Expired {
		return "Expired"
	}

	s := tl.RemainingSeconds
	switch {
	case s >= 86400:
		return plural(s/86400, "day") + " left"
	case s >= 3600:
		return plural(s/3600, "hour") + " left"
	case s >= 60:
		return plural(s/60, "minute") + " left"
	default:
		return plural(s, "second") + " left"
	}
}

// DaysLeft returns the whole days remaining, 0 once expired.
func DaysLeft(tl TimeLeft) int64 {
	if tl.Expired {
		return 0
	}
	return tl.RemainingSeconds / 86400
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
