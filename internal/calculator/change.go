package calculator

import (
	"math"

	"github.com/guregu/null/v6"
)

// PctChange returns (cur - prev) / prev * 100. ok is false when either price
// is non-positive or not a finite number.
func PctChange(prev, cur float64) (pct float64, ok bool) {
	if !positive(prev) || !positive(cur) {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}

// DailyChanges computes the close-to-close percent change of every bar.
// Index 0 and changes with an undefined price are null.
func DailyChanges(closes []float64) []null.Float {
	out := make([]null.Float, len(closes))
	for i := 1; i < len(closes); i++ {
		if pct, ok := PctChange(closes[i-1], closes[i]); ok {
			out[i] = null.FloatFrom(pct)
		}
	}
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
