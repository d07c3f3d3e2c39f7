package fall

import (
	"iter"

	"FallScope/internal/calculator"
	"FallScope/internal/model"
)

// DefaultThresholdPct is the single-session decline, in percent, that
// counts as a fall.
const DefaultThresholdPct = 5.0

// Detect lazily yields a FallEvent for every bar whose close-to-close change
// is at or below -thresholdPct, in date order. Bars whose change is
// undefined are skipped. The series is never modified.
func Detect(series *model.PriceSeries, thresholdPct float64) iter.Seq[model.FallEvent] {
	return func(yield func(model.FallEvent) bool) {
		if series.Len() < 2 {
			return
		}
		bars := series.Bars
		for i, pct := range calculator.DailyChanges(series.Closes()) {
			if !pct.Valid || pct.Float64 > -thresholdPct {
				continue
			}
			evt := model.FallEvent{
				Symbol:      series.Symbol,
				Index:       i,
				Date:        bars[i].Date,
				CloseOnFall: bars[i].Close,
				FallPct:     pct.Float64,
			}
			if !yield(evt) {
				return
			}
		}
	}
}
