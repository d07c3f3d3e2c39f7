package drawdown

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FallScope/internal/model"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(opens, closes []float64) *model.PriceSeries {
	bars := make([]model.PriceBar, len(closes))
	for i := range closes {
		bars[i] = model.PriceBar{Date: day0.AddDate(0, 0, i), Open: opens[i], Close: closes[i]}
	}
	return model.NewPriceSeries("TCS.NS", bars)
}

func TestAnalyze_Example(t *testing.T) {
	s := series(
		[]float64{100, 100, 96, 94, 98, 90, 85},
		[]float64{100, 96, 94, 98, 90, 85, 95},
	)
	rec, err := Analyze(s)
	require.NoError(t, err)

	assert.Equal(t, "TCS.NS", rec.Symbol)
	assert.Equal(t, 0, rec.StartIndex)
	assert.Equal(t, 6, rec.EndIndex)
	assert.Equal(t, 100.0, rec.StartPrice)
	assert.Equal(t, 95.0, rec.EndPrice)
	assert.Equal(t, day0, rec.StartDate)
	assert.Equal(t, day0.AddDate(0, 0, 6), rec.EndDate)
	assert.InDelta(t, -5.0, rec.MaxFallPct, 1e-9)

	assert.Equal(t, 4, rec.RedCandles)
	assert.Equal(t, 2, rec.GreenCandles)
	assert.Equal(t, 2, rec.MaxRedStreak)
}

func TestAnalyze_AnchorsOnPeakOpen(t *testing.T) {
	// Peak close 110 opened at 105; the last close below 105 is index 4 (104),
	// not index 5 (106), even though 106 is below the peak close.
	s := series(
		[]float64{100, 105, 108, 103, 101, 104},
		[]float64{101, 110, 102, 100, 104, 106},
	)
	rec, err := Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.StartIndex)
	assert.Equal(t, 4, rec.EndIndex)
	assert.InDelta(t, (104.0-105.0)/105.0*100, rec.MaxFallPct, 1e-9)
	assert.Equal(t, 110.0, rec.StartPrice)
}

func TestAnalyze_NoCloseBelowPeakOpen(t *testing.T) {
	// Peak opened low; nothing afterwards closes below that open.
	s := series(
		[]float64{50, 60, 95, 100},
		[]float64{52, 90, 120, 110},
	)
	rec, err := Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.StartIndex)
	assert.Equal(t, 3, rec.EndIndex, "defaults to the final bar")
	assert.InDelta(t, (110.0-95.0)/95.0*100, rec.MaxFallPct, 1e-9)
}

func TestAnalyze_PeakOnLastBar(t *testing.T) {
	s := series([]float64{10, 11, 12}, []float64{11, 12, 13})
	rec, err := Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.StartIndex)
	assert.Equal(t, 2, rec.EndIndex)
	assert.Equal(t, 1, rec.WindowLen())
	assert.Equal(t, 1, rec.GreenCandles)
}

func TestAnalyze_SingleBar(t *testing.T) {
	rec, err := Analyze(series([]float64{10}, []float64{9}))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.StartIndex)
	assert.Equal(t, 0, rec.EndIndex)
	assert.Equal(t, 1, rec.RedCandles)
	assert.InDelta(t, -10.0, rec.MaxFallPct, 1e-9)
}

func TestAnalyze_Invariants(t *testing.T) {
	s := series(
		[]float64{20, 21, 25, 24, 22, 23, 19, 18, 21, 20},
		[]float64{21, 25, 24, 22, 23, 19, 18, 21, 20, 24},
	)
	rec, err := Analyze(s)
	require.NoError(t, err)

	assert.LessOrEqual(t, rec.StartIndex, rec.EndIndex)
	for _, c := range s.Closes() {
		assert.LessOrEqual(t, c, rec.StartPrice)
	}
	assert.LessOrEqual(t, rec.RedCandles+rec.GreenCandles, rec.WindowLen())
	assert.LessOrEqual(t, rec.MaxRedStreak, rec.RedCandles)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(model.NewPriceSeries("X", nil))
	assert.ErrorIs(t, err, model.ErrEmptySeries)

	_, err = Analyze(series([]float64{math.NaN(), math.NaN()}, []float64{1, 2}))
	assert.ErrorIs(t, err, model.ErrMissingOpen)

	_, err = Analyze(series([]float64{1, math.NaN()}, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrNonPositivePeakOpen)

	_, err = Analyze(series([]float64{1, 0}, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrNonPositivePeakOpen)
}

func TestAnalyze_MissingPricesOffPeak(t *testing.T) {
	s := series(
		[]float64{100, 100, 96, math.NaN(), 98, 90, 85},
		[]float64{100, 96, 94, 98, 90, 85, 95},
	)
	s.Bars[2].Close = math.NaN()

	rec, err := Analyze(s)
	require.NoError(t, err)
	// Priced bars: 100 96 98 90 85 95; the NaN-open bar at 98 is neutral.
	assert.Equal(t, 0, rec.StartIndex)
	assert.Equal(t, 5, rec.EndIndex)
	assert.InDelta(t, -5.0, rec.MaxFallPct, 1e-9)
	assert.Equal(t, 3, rec.RedCandles)
	assert.Equal(t, 1, rec.GreenCandles)
}
