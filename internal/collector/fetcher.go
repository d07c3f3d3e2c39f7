package collector

import (
	"context"
	"errors"
	"time"

	"FallScope/internal/model"
)

// ErrNoData is returned when a provider has no bars for the requested range.
var ErrNoData = errors.New("no data found")

// Fetcher loads daily bars for one symbol over the inclusive date range
// [start, end]. Bars are returned in date order.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
	Name() string
}

// clip keeps the bars dated within [start, end] and sorts them.
func clip(bars []model.PriceBar, start, end time.Time) []model.PriceBar {
	lo, hi := model.Day(start, time.UTC), model.Day(end, time.UTC)
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(lo) || b.Date.After(hi) {
			continue
		}
		out = append(out, b)
	}
	return model.NewPriceSeries("", out).Bars
}
