package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"FallScope/internal/model"
	"FallScope/internal/pipeline"
	"FallScope/internal/report"
)

var ErrRunInProgress = errors.New("an analysis run is already in progress")

// Notifier delivers run summaries and charts.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhoto(caption, name string, png []byte) error
}

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Outcome, error)
}

// Options tunes what a run delivers.
type Options struct {
	MaxCharts        int
	DisplayRangeDays int
	SendRetries      int
}

// Scheduler runs analyses on a cron schedule and answers chat commands from
// the most recent result held in memory.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	notifier Notifier
	opts     Options
	log      *zap.Logger
	ctx      context.Context

	running atomic.Bool
	async   sync.WaitGroup
	mu      sync.RWMutex
	last    *pipeline.Outcome
}

// NewScheduler creates a new Scheduler. ctx bounds every scheduled run.
func NewScheduler(ctx context.Context, runner Runner, n Notifier, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SendRetries == 0 {
		opts.SendRetries = 3
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		runner:   runner,
		notifier: n,
		opts:     opts,
		log:      log,
		ctx:      ctx,
	}
}

// Register adds the analysis task under a six-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.scheduledRun); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	s.log.Info("analysis task registered", zap.String("cron", spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks, including
// those started by RunAsync.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.async.Wait()
	s.log.Info("scheduler stopped")
}

// Last returns the most recent outcome, or nil before the first run.
func (s *Scheduler) Last() *pipeline.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunNow runs an analysis, keeps the outcome and delivers it. Only one run
// executes at a time.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.Outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	out, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("analysis run failed", zap.Error(err))
		s.trySend(ctx, fmt.Sprintf("❌ Analysis failed: %v", err))
		return nil, err
	}

	s.mu.Lock()
	s.last = out
	s.mu.Unlock()

	s.deliver(ctx, out)
	return out, nil
}

// RunAsync starts RunNow in the background. Stop waits for it to finish.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.async.Add(1)
	go func() {
		defer s.async.Done()
		if _, err := s.RunNow(ctx); errors.Is(err, ErrRunInProgress) {
			s.trySend(ctx, "⏳ "+ErrRunInProgress.Error())
		}
	}()
}

func (s *Scheduler) scheduledRun() {
	s.log.Info("running scheduled analysis")
	if _, err := s.RunNow(s.ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
		s.log.Error("scheduled analysis", zap.Error(err))
	}
}

func (s *Scheduler) deliver(ctx context.Context, out *pipeline.Outcome) {
	s.trySend(ctx, report.FormatSummary(out.Result, s.opts.MaxCharts))

	charts, errs := report.TopCharts(out.Result, out.Series, s.opts.MaxCharts, s.opts.DisplayRangeDays)
	for _, err := range errs {
		s.log.Warn("render chart", zap.Error(err))
	}
	for _, c := range charts {
		if err := s.notifier.SendPhoto(c.Caption, c.Name, c.PNG); err != nil {
			s.log.Error("send chart", zap.String("chart", c.Name), zap.Error(err))
		}
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Group chats address commands as /cmd@botname.
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/run":
		s.RunAsync(ctx)
		return "🚀 Analysis started"
	case "/falls":
		res := s.lastResult()
		if res == nil {
			return noResultText
		}
		return report.FormatFalls(res, 10)
	case "/drawdowns":
		res := s.lastResult()
		if res == nil {
			return noResultText
		}
		return report.FormatDrawdowns(res)
	case "/summary":
		res := s.lastResult()
		if res == nil {
			return noResultText
		}
		return report.FormatSummary(res, s.opts.MaxCharts)
	default:
		return helpText
	}
}

const (
	helpText = "Available commands:\n" +
		"• /run - run the analysis now\n" +
		"• /summary - summary of the last run\n" +
		"• /falls - steepest falls of the last run\n" +
		"• /drawdowns - max drawdown per symbol"
	noResultText = "No analysis has run yet. Send /run to start one."
)

func (s *Scheduler) lastResult() *model.BatchResult {
	if out := s.Last(); out != nil {
		return out.Result
	}
	return nil
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if err := s.notifier.SendWithRetry(ctx, text, s.opts.SendRetries); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
