package report

import (
	"errors"
	"fmt"
	"math"

	charts "github.com/vicanso/go-charts/v2"

	"FallScope/internal/model"
)

var ErrEventNotInSeries = errors.New("event date not found in series")

// window returns the bar range [lo, hi] of displayRangeDays sessions either
// side of [from, to].
func window(n, from, to, displayRangeDays int) (int, int) {
	lo := max(from-displayRangeDays, 0)
	hi := min(to+displayRangeDays, n-1)
	return lo, hi
}

func indexOf(s *model.PriceSeries, rec model.FallEvent) (int, bool) {
	if rec.Index >= 0 && rec.Index < s.Len() && s.Bars[rec.Index].Date.Equal(rec.Date) {
		return rec.Index, true
	}
	for i, b := range s.Bars {
		if b.Date.Equal(rec.Date) {
			return i, true
		}
	}
	return 0, false
}

// FallChart draws closes around a fall with the fall close as a flat
// reference line. Bars without a close are left out, matching the indexes
// the analysis reports.
func FallChart(s *model.PriceSeries, rec model.FallRecord, displayRangeDays int) ([]byte, error) {
	s = s.PricedBars()
	i, ok := indexOf(s, rec.FallEvent)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrEventNotInSeries, rec.Symbol, rec.Date.Format(model.DateLayout))
	}
	lo, hi := window(s.Len(), i, i, displayRangeDays)
	title := fmt.Sprintf("%s • fall %.2f%% on %s", rec.Symbol, rec.FallPct, rec.Date.Format(model.DateLayout))
	return lineChart(s, lo, hi, rec.CloseOnFall, title, []string{"Close", "Close on Fall"})
}

// DrawdownChart draws closes from before the peak to after the trough with
// the peak open as a flat reference line.
func DrawdownChart(s *model.PriceSeries, rec model.DrawdownRecord, displayRangeDays int) ([]byte, error) {
	s = s.PricedBars()
	if rec.StartIndex < 0 || rec.EndIndex >= s.Len() || rec.StartIndex > rec.EndIndex {
		return nil, fmt.Errorf("%w: %s drawdown window", ErrEventNotInSeries, rec.Symbol)
	}
	lo, hi := window(s.Len(), rec.StartIndex, rec.EndIndex, displayRangeDays)
	title := fmt.Sprintf("%s • max drawdown %.2f%% (%s → %s)", rec.Symbol, rec.MaxFallPct,
		rec.StartDate.Format(model.DateLayout), rec.EndDate.Format(model.DateLayout))
	return lineChart(s, lo, hi, rec.PeakOpen, title, []string{"Close", "Peak Open"})
}

func lineChart(s *model.PriceSeries, lo, hi int, ref float64, title string, legend []string) ([]byte, error) {
	n := hi - lo + 1
	closes := make([]float64, 0, n)
	refLine := make([]float64, 0, n)
	labels := make([]string, 0, n)
	yMin, yMax := ref, ref
	for _, b := range s.Bars[lo : hi+1] {
		closes = append(closes, b.Close)
		refLine = append(refLine, ref)
		labels = append(labels, b.Date.Format("01-02"))
		yMin = math.Min(yMin, b.Close)
		yMax = math.Max(yMax, b.Close)
	}
	pad := (yMax - yMin) * 0.05
	yMin, yMax = yMin-pad, yMax+pad

	split := max(n/8, 1)
	p, err := charts.LineRender(
		[][]float64{closes, refLine},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: split,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: legend,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(900),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("chart bytes: %w", err)
	}
	return buf, nil
}

// Chart is a rendered PNG ready to save or send.
type Chart struct {
	Name    string
	Caption string
	PNG     []byte
}

// TopCharts renders the n steepest falls and the deepest drawdown of a run.
// Symbols missing from series are skipped; render failures are returned
// beside the charts that did render.
func TopCharts(res *model.BatchResult, series map[string]*model.PriceSeries, n, displayRangeDays int) ([]Chart, []error) {
	var (
		out  []Chart
		errs []error
	)
	for _, rec := range DeepestFalls(res.Falls, n) {
		s, ok := series[rec.Symbol]
		if !ok {
			continue
		}
		png, err := FallChart(s, rec, displayRangeDays)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, Chart{
			Name:    fmt.Sprintf("fall_%s_%s.png", rec.Symbol, rec.Date.Format(model.DateLayout)),
			Caption: fmt.Sprintf("%s fall %.2f%% on %s", rec.Symbol, rec.FallPct, rec.Date.Format(model.DateLayout)),
			PNG:     png,
		})
	}

	if n > 0 && !res.Drawdowns.Empty() {
		deepest := res.Drawdowns.Records[0]
		for _, r := range res.Drawdowns.Records[1:] {
			if r.MaxFallPct < deepest.MaxFallPct {
				deepest = r
			}
		}
		if s, ok := series[deepest.Symbol]; ok {
			png, err := DrawdownChart(s, deepest, displayRangeDays)
			if err != nil {
				errs = append(errs, err)
			} else {
				out = append(out, Chart{
					Name:    fmt.Sprintf("drawdown_%s.png", deepest.Symbol),
					Caption: fmt.Sprintf("%s max drawdown %.2f%%", deepest.Symbol, deepest.MaxFallPct),
					PNG:     png,
				})
			}
		}
	}
	return out, errs
}
