package batch

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FallScope/internal/drawdown"
	"FallScope/internal/fall"
	"FallScope/internal/model"
)

// MaxHorizonDays is the largest forward horizon a run accepts.
const MaxHorizonDays = 30

var ErrInvalidOptions = errors.New("invalid analysis options")

// Options tunes one run.
type Options struct {
	FallThresholdPct   float64
	ForwardHorizonDays int
	// Workers bounds how many symbols are analyzed at once; 0 means GOMAXPROCS.
	Workers int
}

// DefaultOptions returns a 5% threshold and a 7-day horizon.
func DefaultOptions() Options {
	return Options{
		FallThresholdPct:   fall.DefaultThresholdPct,
		ForwardHorizonDays: fall.DefaultHorizonDays,
	}
}

// Validate rejects options no run could use.
func (o Options) Validate() error {
	if !(o.FallThresholdPct > 0) {
		return fmt.Errorf("%w: fall threshold %v must be positive", ErrInvalidOptions, o.FallThresholdPct)
	}
	if o.ForwardHorizonDays < 1 || o.ForwardHorizonDays > MaxHorizonDays {
		return fmt.Errorf("%w: horizon %d outside 1..%d", ErrInvalidOptions, o.ForwardHorizonDays, MaxHorizonDays)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// Params converts the options to the parameters recorded on a result.
func (o Options) Params() model.AnalysisParams {
	return model.AnalysisParams{
		FallThresholdPct:   o.FallThresholdPct,
		ForwardHorizonDays: o.ForwardHorizonDays,
	}
}

// Runner applies the fall and drawdown analyses to every symbol of a batch.
// A failing symbol becomes a warning; it never aborts the batch.
type Runner struct {
	opts Options
	now  func() time.Time
}

func NewRunner(opts Options) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{opts: opts, now: time.Now}, nil
}

// Options returns the effective options of the runner.
func (r *Runner) Options() Options { return r.opts }

type symbolResult struct {
	falls    []model.FallRecord
	drawdown *model.DrawdownRecord
	warnings []model.Warning
}

// Run analyzes every series. The map key is the symbol reported in the
// output; the input series are not modified.
func (r *Runner) Run(series map[string]*model.PriceSeries) *model.BatchResult {
	res := &model.BatchResult{
		RunID:     uuid.NewString(),
		Params:    r.opts.Params(),
		StartedAt: r.now(),
	}

	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var (
		mu      sync.Mutex
		results = make(map[string]symbolResult, len(symbols))
	)
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for _, sym := range symbols {
		s := series[sym]
		g.Go(func() error {
			out := r.analyzeSymbol(sym, s)
			mu.Lock()
			results[sym] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, sym := range symbols {
		out := results[sym]
		res.Falls.Records = append(res.Falls.Records, out.falls...)
		if out.drawdown != nil {
			res.Drawdowns.Records = append(res.Drawdowns.Records, *out.drawdown)
		}
		res.Warnings = append(res.Warnings, out.warnings...)
	}
	res.FinishedAt = r.now()
	return res
}

func (r *Runner) analyzeSymbol(symbol string, src *model.PriceSeries) (out symbolResult) {
	if src == nil {
		out.warnings = append(out.warnings, warn(symbol, model.WarnInvalidSeries, model.StageValidate, model.ErrEmptySeries))
		return out
	}
	s := *src
	s.Symbol = symbol

	if err := s.Validate(); err != nil {
		out.warnings = append(out.warnings, warn(symbol, model.WarnInvalidSeries, model.StageValidate, err))
		return out
	}

	falls, w := guard(symbol, model.StageFall, func() ([]model.FallRecord, error) {
		return fall.AnalyzeSeries(&s, r.opts.FallThresholdPct, r.opts.ForwardHorizonDays)
	})
	if w != nil {
		out.warnings = append(out.warnings, *w)
	}
	out.falls = falls

	dd, w := guard(symbol, model.StageDrawdown, func() (model.DrawdownRecord, error) {
		return drawdown.Analyze(&s)
	})
	if w != nil {
		out.warnings = append(out.warnings, *w)
	} else {
		out.drawdown = &dd
	}
	return out
}

// guard runs one analysis stage and turns its error or panic into a warning.
func guard[T any](symbol string, stage model.Stage, fn func() (T, error)) (v T, w *model.Warning) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v = zero
			ww := warn(symbol, model.WarnAnalysisFailed, stage, fmt.Errorf("panic: %v", p))
			w = &ww
		}
	}()
	v, err := fn()
	if err != nil {
		ww := warn(symbol, classify(err), stage, err)
		return v, &ww
	}
	return v, nil
}

func classify(err error) model.WarningKind {
	switch {
	case errors.Is(err, drawdown.ErrNonPositivePeakOpen),
		errors.Is(err, model.ErrEmptySeries),
		errors.Is(err, model.ErrMissingOpen),
		errors.Is(err, model.ErrMissingClose),
		errors.Is(err, model.ErrUnorderedBars):
		return model.WarnInvalidSeries
	default:
		return model.WarnAnalysisFailed
	}
}

func warn(symbol string, kind model.WarningKind, stage model.Stage, err error) model.Warning {
	return model.Warning{Symbol: symbol, Kind: kind, Stage: stage, Err: err}
}
