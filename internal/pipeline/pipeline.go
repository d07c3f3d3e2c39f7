// Package pipeline runs one analysis end to end: fetch the universe, then
// analyze every series.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"FallScope/internal/batch"
	"FallScope/internal/model"
)

// Source provides the price series of a universe.
type Source interface {
	Collect(ctx context.Context, symbols []string, start, end time.Time) (map[string]*model.PriceSeries, []model.Warning, error)
}

// Window returns the date range of a run.
type Window func() (start, end time.Time)

// FixedWindow always returns the same range.
func FixedWindow(start, end time.Time) Window {
	return func() (time.Time, time.Time) { return start, end }
}

// TrailingWindow returns the last days calendar days ending today.
func TrailingWindow(days int, now func() time.Time) Window {
	return func() (time.Time, time.Time) {
		end := model.Day(now(), time.Local)
		return end.AddDate(0, 0, -days), end
	}
}

// Outcome is a finished run plus the series it analyzed, for charting.
type Outcome struct {
	Result *model.BatchResult
	Series map[string]*model.PriceSeries
}

// Pipeline wires a Source to a batch.Runner.
type Pipeline struct {
	Source  Source
	Runner  *batch.Runner
	Symbols []string
	Window  Window
	Log     *zap.Logger
}

// Run fetches and analyzes the universe. Fetch failures join the analysis
// warnings; only cancellation returns an error.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	start, end := p.Window()
	log.Info("analysis started",
		zap.Int("symbols", len(p.Symbols)),
		zap.String("start", start.Format(model.DateLayout)),
		zap.String("end", end.Format(model.DateLayout)))

	series, fetchWarnings, err := p.Source.Collect(ctx, p.Symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	res := p.Runner.Run(series)
	res.Warnings = append(fetchWarnings, res.Warnings...)
	sort.SliceStable(res.Warnings, func(i, j int) bool { return res.Warnings[i].Symbol < res.Warnings[j].Symbol })

	for _, w := range res.Warnings {
		log.Warn("symbol skipped",
			zap.String("symbol", w.Symbol),
			zap.String("kind", string(w.Kind)),
			zap.String("stage", string(w.Stage)),
			zap.Error(w.Err))
	}
	log.Info("analysis finished",
		zap.String("run_id", res.RunID),
		zap.Int("falls", len(res.Falls.Records)),
		zap.Int("drawdowns", len(res.Drawdowns.Records)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))

	return &Outcome{Result: res, Series: series}, nil
}
