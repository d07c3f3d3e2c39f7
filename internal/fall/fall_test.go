package fall

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FallScope/internal/model"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(symbol string, closes ...float64) *model.PriceSeries {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = model.PriceBar{Date: day0.AddDate(0, 0, i), Open: open, Close: c}
	}
	return model.NewPriceSeries(symbol, bars)
}

func collect(series *model.PriceSeries, threshold float64) []model.FallEvent {
	var out []model.FallEvent
	for evt := range Detect(series, threshold) {
		out = append(out, evt)
	}
	return out
}

func TestDetect_Example(t *testing.T) {
	s := seriesFromCloses("RELIANCE.NS", 100, 96, 94, 98, 90, 85, 95)
	events := collect(s, DefaultThresholdPct)
	require.Len(t, events, 2)

	assert.Equal(t, 4, events[0].Index)
	assert.Equal(t, 90.0, events[0].CloseOnFall)
	assert.InDelta(t, -8.1633, events[0].FallPct, 1e-3)
	assert.Equal(t, day0.AddDate(0, 0, 4), events[0].Date)
	assert.Equal(t, "RELIANCE.NS", events[0].Symbol)

	assert.Equal(t, 5, events[1].Index)
	assert.Equal(t, 85.0, events[1].CloseOnFall)
	assert.InDelta(t, -5.5556, events[1].FallPct, 1e-3)

	for _, evt := range events {
		assert.LessOrEqual(t, evt.FallPct, -DefaultThresholdPct)
	}
}

func TestDetect_ShortSeries(t *testing.T) {
	assert.Empty(t, collect(seriesFromCloses("A"), 5))
	assert.Empty(t, collect(seriesFromCloses("A", 100), 5))
	assert.Empty(t, collect(nil, 5))
}

func TestDetect_ExactThresholdCounts(t *testing.T) {
	events := collect(seriesFromCloses("A", 100, 95), 5)
	require.Len(t, events, 1)
	assert.InDelta(t, -5.0, events[0].FallPct, 1e-9)
}

func TestDetect_SkipsNonPositivePrices(t *testing.T) {
	// 100 -> 0 and 0 -> 50 are undefined; 50 -> 40 is a real fall.
	events := collect(seriesFromCloses("A", 100, 0, 50, 40), 5)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Index)
}

func TestDetect_StopsEarly(t *testing.T) {
	s := seriesFromCloses("A", 100, 90, 80, 70)
	n := 0
	for range Detect(s, 5) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestDetect_DoesNotMutate(t *testing.T) {
	s := seriesFromCloses("A", 100, 90, 80)
	before := append([]model.PriceBar(nil), s.Bars...)
	collect(s, 5)
	assert.Equal(t, before, s.Bars)
}

func TestAnalyze_Example(t *testing.T) {
	s := seriesFromCloses("A", 100, 96, 94, 98, 90, 85, 95)
	events := collect(s, DefaultThresholdPct)
	require.Len(t, events, 2)

	rec, err := Analyze(s, events[0], DefaultHorizonDays)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.MaxDaysBelowFall)
	assert.Equal(t, rec.MaxDaysBelowFall, rec.ContinuousFallDays())
	assert.InDelta(t, -5.5556, rec.PercentBelowFall, 1e-3)

	one, ok := rec.After(1)
	require.True(t, ok)
	assert.True(t, one.Price.Valid)
	assert.Equal(t, 85.0, one.Price.Float64)
	assert.InDelta(t, -5.5556, one.Pct.Float64, 1e-3)

	three, ok := rec.After(3)
	require.True(t, ok)
	assert.False(t, three.Price.Valid, "index 7 is out of bounds")
	assert.False(t, three.Pct.Valid)

	seven, ok := rec.After(7)
	require.True(t, ok)
	assert.False(t, seven.Price.Valid)
}

func TestAnalyze_LastBar(t *testing.T) {
	s := seriesFromCloses("A", 100, 90)
	events := collect(s, 5)
	require.Len(t, events, 1)

	rec, err := Analyze(s, events[0], 1)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.MaxDaysBelowFall)
	assert.Equal(t, 0.0, rec.PercentBelowFall)
	for _, h := range rec.Forward {
		assert.False(t, h.Price.Valid, "horizon %d", h.Days)
	}
}

func TestAnalyze_ZeroReturnIsNotMissing(t *testing.T) {
	s := seriesFromCloses("A", 100, 90, 90)
	events := collect(s, 5)
	require.Len(t, events, 1)

	rec, err := Analyze(s, events[0], 1)
	require.NoError(t, err)
	one, _ := rec.After(1)
	require.True(t, one.Pct.Valid)
	assert.Equal(t, 0.0, one.Pct.Float64)
}

func TestAnalyze_DuplicateHorizon(t *testing.T) {
	s := seriesFromCloses("A", 100, 90, 91, 92, 93, 94, 95)
	events := collect(s, 5)
	require.Len(t, events, 1)

	rec, err := Analyze(s, events[0], 5)
	require.NoError(t, err)
	require.Len(t, rec.Forward, 4)
	assert.Equal(t, rec.Forward[2], rec.Forward[3])
	assert.Equal(t, 95.0, rec.Forward[3].Price.Float64)
}

func TestAnalyze_RunNeedNotStartAtFall(t *testing.T) {
	// After the fall to 90 the price recovers, then sinks below 90 for three days.
	s := seriesFromCloses("A", 100, 90, 92, 89.5, 88, 87, 91, 89)
	events := collect(s, 5)
	require.Len(t, events, 1)

	rec, err := Analyze(s, events[0], 7)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.MaxDaysBelowFall)
	assert.InDelta(t, (87.0-90.0)/90.0*100, rec.PercentBelowFall, 1e-9)
}

func TestAnalyze_Errors(t *testing.T) {
	s := seriesFromCloses("A", 100, 90)
	_, err := Analyze(s, model.FallEvent{Index: 5}, 7)
	assert.ErrorIs(t, err, ErrEventOutOfRange)

	_, err = Analyze(s, model.FallEvent{Index: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizonDay)

	neg := seriesFromCloses("A", 100, -1)
	_, err = Analyze(neg, model.FallEvent{Index: 1}, 1)
	assert.ErrorIs(t, err, ErrNonPositiveClose)
}

func TestAnalyzeSeries(t *testing.T) {
	s := seriesFromCloses("A", 100, 96, 94, 98, 90, 85, 95)
	records, err := AnalyzeSeries(s, 5, 7)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Date.Before(records[1].Date))

	for _, r := range records {
		assert.LessOrEqual(t, r.PercentBelowFall, 0.0)
		for _, h := range r.Forward {
			inBounds := r.Index+h.Days < s.Len()
			assert.Equal(t, inBounds, h.Price.Valid, "horizon %d", h.Days)
			assert.Equal(t, inBounds, h.Pct.Valid, "horizon %d", h.Days)
		}
	}
}

func TestAnalyzeSeries_Invalid(t *testing.T) {
	_, err := AnalyzeSeries(model.NewPriceSeries("A", nil), 5, 7)
	assert.ErrorIs(t, err, model.ErrEmptySeries)

	s := seriesFromCloses("A", 100, 90)
	s.Bars[0].Close = math.NaN()
	s.Bars[1].Close = math.NaN()
	_, err = AnalyzeSeries(s, 5, 7)
	assert.ErrorIs(t, err, model.ErrMissingClose)
}

func TestAnalyzeSeries_TooShort(t *testing.T) {
	recs, err := AnalyzeSeries(seriesFromCloses("A", 100), 5, 7)
	require.NoError(t, err)
	assert.Empty(t, recs)

	s := seriesFromCloses("A", 100, 90)
	s.Bars[1].Close = math.NaN()
	recs, err = AnalyzeSeries(s, 5, 7)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAnalyzeSeries_SkipsMissingClose(t *testing.T) {
	s := seriesFromCloses("A", 100, 96, 94, 98, 90, 85, 95)
	s.Bars[2].Close = math.NaN()

	recs, err := AnalyzeSeries(s, 5, 7)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 90.0, recs[0].CloseOnFall)
	assert.Equal(t, 3, recs[0].Index)
	assert.InDelta(t, -8.1633, recs[0].FallPct, 1e-3)
	assert.Equal(t, 85.0, recs[1].CloseOnFall)
	assert.Equal(t, 4, recs[1].Index)
}
