package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar-date format used in logs, reports and the cache.
const DateLayout = "2006-01-02"

var (
	ErrEmptySeries   = errors.New("series has no bars")
	ErrMissingOpen   = errors.New("series is missing open prices")
	ErrMissingClose  = errors.New("series is missing close prices")
	ErrUnorderedBars = errors.New("bars are not strictly ordered by date")
)

// PriceBar represents a single trading day. A price the provider did not
// report is NaN.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IsRed reports whether the bar closed below its own open.
func (b PriceBar) IsRed() bool { return b.Close < b.Open }

// IsGreen reports whether the bar closed above its own open.
func (b PriceBar) IsGreen() bool { return b.Close > b.Open }

// PriceSeries holds the ordered daily bars of one symbol.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// NewPriceSeries copies bars into a new series sorted by date.
func NewPriceSeries(symbol string, bars []PriceBar) *PriceSeries {
	cp := make([]PriceBar, len(bars))
	copy(cp, bars)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })
	return &PriceSeries{Symbol: symbol, Bars: cp}
}

// Len returns the number of bars; a nil series has none.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Validate checks the series can be analyzed: at least one bar, some finite
// open and some finite close, strictly increasing dates. A single bar missing
// a price does not invalidate the series; see PricedBars. Non-positive prices
// are accepted here; they only leave individual changes undefined.
func (s *PriceSeries) Validate() error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	var hasOpen, hasClose bool
	for i, b := range s.Bars {
		hasOpen = hasOpen || finite(b.Open)
		hasClose = hasClose || finite(b.Close)
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: %s follows %s", ErrUnorderedBars,
				b.Date.Format(DateLayout), s.Bars[i-1].Date.Format(DateLayout))
		}
	}
	if !hasClose {
		return fmt.Errorf("%w: none of %d bars has a close", ErrMissingClose, len(s.Bars))
	}
	if !hasOpen {
		return fmt.Errorf("%w: none of %d bars has an open", ErrMissingOpen, len(s.Bars))
	}
	return nil
}

// PricedBars returns a copy of the series without the bars whose close is
// missing. A missing open is kept: such a bar counts as neither red nor green.
func (s *PriceSeries) PricedBars() *PriceSeries {
	out := &PriceSeries{Bars: make([]PriceBar, 0, s.Len())}
	if s == nil {
		return out
	}
	out.Symbol = s.Symbol
	for _, b := range s.Bars {
		if finite(b.Close) {
			out.Bars = append(out.Bars, b)
		}
	}
	return out
}

// Day truncates t to midnight UTC of its calendar date in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
