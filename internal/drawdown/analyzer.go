package drawdown

import (
	"errors"
	"fmt"
	"math"

	"FallScope/internal/calculator"
	"FallScope/internal/model"
)

// ErrNonPositivePeakOpen is returned when the peak session's open cannot
// anchor a percentage.
var ErrNonPositivePeakOpen = errors.New("peak open is missing or not positive")

// Analyze finds the largest peak-to-trough window of the series.
//
// The peak is the highest close (first on ties). The window ends at the last
// bar from the peak onward that closes below the peak session's open, or at
// the final bar when none does. The decline is measured from that open.
// Bars without a close are dropped first and indexes refer to the series
// returned by PricedBars.
func Analyze(series *model.PriceSeries) (model.DrawdownRecord, error) {
	if err := series.Validate(); err != nil {
		return model.DrawdownRecord{}, err
	}
	series = series.PricedBars()

	closes := series.Closes()
	peak, err := calculator.ArgMax(closes)
	if err != nil {
		return model.DrawdownRecord{}, err
	}
	peakBar := series.Bars[peak]
	if !(peakBar.Open > 0) || math.IsInf(peakBar.Open, 1) {
		return model.DrawdownRecord{}, fmt.Errorf("%w: %v on %s",
			ErrNonPositivePeakOpen, peakBar.Open, peakBar.Date.Format(model.DateLayout))
	}

	end := calculator.LastBelow(closes, peak, peakBar.Open)
	if end < 0 {
		end = len(closes) - 1
	}
	endBar := series.Bars[end]
	stats := calculator.CountCandles(series.Bars[peak : end+1])

	return model.DrawdownRecord{
		Symbol:       series.Symbol,
		MaxFallPct:   (endBar.Close - peakBar.Open) / peakBar.Open * 100,
		PeakOpen:     peakBar.Open,
		StartIndex:   peak,
		StartDate:    peakBar.Date,
		StartPrice:   peakBar.Close,
		EndIndex:     end,
		EndDate:      endBar.Date,
		EndPrice:     endBar.Close,
		RedCandles:   stats.Red,
		GreenCandles: stats.Green,
		MaxRedStreak: stats.MaxRedStreak,
	}, nil
}
