package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FallScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols with neither fixed bars nor an error get generated bars when
// Price is set, and ErrNoData otherwise.
type MockFetcher struct {
	Price  float64
	Bars   map[string][]model.PriceBar
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		cp := make([]model.PriceBar, len(bars))
		copy(cp, bars)
		if out := clip(cp, start, end); len(out) > 0 {
			return out, nil
		}
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	if m.Price > 0 {
		return generateMockBars(m.Price, start, end), nil
	}
	return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
}

// Calls reports how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockBars yields one bar per weekday with a slow sawtooth that
// drops 6% every twentieth session.
func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	var bars []model.PriceBar
	p := basePrice
	n := 0
	for d := model.Day(start, time.UTC); !d.After(model.Day(end, time.UTC)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := p
		if n > 0 && n%20 == 0 {
			p *= 0.94
		} else {
			p *= 1.002
		}
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   open,
			High:   max(open, p) * 1.005,
			Low:    min(open, p) * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		n++
	}
	return bars
}
