package fall

import (
	"errors"
	"fmt"

	"github.com/guregu/null/v6"

	"FallScope/internal/calculator"
	"FallScope/internal/model"
)

// DefaultHorizonDays is the caller-selectable forward horizon used when none
// is configured.
const DefaultHorizonDays = 7

// FixedHorizons are reported for every fall ahead of the caller's horizon.
var FixedHorizons = []int{1, 3, 5}

var (
	ErrEventOutOfRange   = errors.New("fall event index outside series")
	ErrNonPositiveClose  = errors.New("fall close is not positive")
	ErrInvalidHorizonDay = errors.New("forward horizon must be positive")
)

// Horizons returns the fixed horizons followed by n. A duplicate of a fixed
// horizon is kept so both output columns are filled.
func Horizons(n int) []int {
	out := make([]int, 0, len(FixedHorizons)+1)
	out = append(out, FixedHorizons...)
	return append(out, n)
}

// Analyze computes the aftermath of one fall over the suffix of the series
// starting at the fall bar.
func Analyze(series *model.PriceSeries, event model.FallEvent, horizonDays int) (model.FallRecord, error) {
	if horizonDays <= 0 {
		return model.FallRecord{}, fmt.Errorf("%w: %d", ErrInvalidHorizonDay, horizonDays)
	}
	i := event.Index
	if i < 0 || i >= series.Len() {
		return model.FallRecord{}, fmt.Errorf("%w: index %d, %d bars", ErrEventOutOfRange, i, series.Len())
	}

	closes := series.Closes()
	ref := closes[i]
	if ref <= 0 {
		return model.FallRecord{}, fmt.Errorf("%w: %v on %s", ErrNonPositiveClose, ref, event.Date.Format(model.DateLayout))
	}
	suffix := closes[i:]

	rec := model.FallRecord{FallEvent: event}
	rec.MaxDaysBelowFall = calculator.LongestRun(calculator.BelowFlags(suffix, ref))

	// suffix always holds ref itself, so the undershoot is never positive.
	low, _ := calculator.Min(suffix)
	rec.PercentBelowFall = (low - ref) / ref * 100

	for _, h := range Horizons(horizonDays) {
		hr := model.HorizonReturn{Days: h}
		if j := i + h; j < len(closes) {
			hr.Price = null.FloatFrom(closes[j])
			hr.Pct = null.FloatFrom((closes[j] - ref) / ref * 100)
		}
		rec.Forward = append(rec.Forward, hr)
	}
	return rec, nil
}

// AnalyzeSeries validates the series, drops bars without a close, detects
// the falls and returns one record per fall in date order. Event indexes
// refer to the series returned by PricedBars. A series with fewer than two
// priced bars has no falls and is not an error.
func AnalyzeSeries(series *model.PriceSeries, thresholdPct float64, horizonDays int) ([]model.FallRecord, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	series = series.PricedBars()

	var records []model.FallRecord
	for evt := range Detect(series, thresholdPct) {
		rec, err := Analyze(series, evt, horizonDays)
		if err != nil {
			return nil, fmt.Errorf("analyze fall on %s: %w", evt.Date.Format(model.DateLayout), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
