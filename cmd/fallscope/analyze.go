package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"FallScope/internal/config"
	"FallScope/internal/model"
	"FallScope/internal/notifier"
	"FallScope/internal/pipeline"
	"FallScope/internal/report"
)

type analyzeFlags struct {
	threshold float64
	horizon   int
	symbols   string
	start     string
	end       string
	provider  string
	csvDir    string
	chartDir  string
	notify    bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch the universe and print fall and drawdown tables",
		Long: `Fetch daily bars for the configured universe, detect single-day falls at or
beyond the threshold, measure their aftermath and each symbol's max drawdown.
Example: fallscope analyze --symbols INFY.NS,TCS.NS --threshold 4 --horizon 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalyze(ctx, cmd.OutOrStdout(), a.cfg, a.log, f)
		},
	}

	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Fall threshold in percent (default from config, 5)")
	cmd.Flags().IntVar(&f.horizon, "horizon", 0, "Caller forward horizon in sessions, 1-30 (default from config, 7)")
	cmd.Flags().StringVar(&f.symbols, "symbols", "", "Comma separated symbols (default from config)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "End date YYYY-MM-DD, inclusive")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Data provider: yahoo, financego, alpaca or mock")
	cmd.Flags().StringVar(&f.csvDir, "csv-dir", "", "Write falls and drawdowns CSV files into this directory")
	cmd.Flags().StringVar(&f.chartDir, "chart-dir", "", "Write PNG charts of the steepest falls into this directory")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "Send the summary and charts to Telegram")
	return cmd
}

// apply overrides config values with the flags the user set.
func (f *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Analysis.FallThresholdPct = f.threshold
	}
	if flags.Changed("horizon") {
		cfg.Analysis.ForwardHorizonDays = f.horizon
	}
	if flags.Changed("symbols") {
		cfg.Universe.Symbols = config.SplitSymbols(f.symbols)
	}
	if flags.Changed("start") {
		cfg.Universe.Start = f.start
	}
	if flags.Changed("end") {
		cfg.Universe.End = f.end
	}
	if flags.Changed("provider") {
		cfg.DataSource.Provider = f.provider
	}
	if flags.Changed("csv-dir") {
		cfg.Output.CSVDir = f.csvDir
	}
	if flags.Changed("chart-dir") {
		cfg.Output.ChartDir = f.chartDir
	}
}

func runAnalyze(ctx context.Context, w io.Writer, cfg *config.Config, log *zap.Logger, f *analyzeFlags) error {
	start, end, err := cfg.Window()
	if err != nil {
		return err
	}
	p, store, err := newPipeline(cfg, log, pipeline.FixedWindow(start, end))
	if err != nil {
		return err
	}
	defer closeStore(store, log)

	out, err := p.Run(ctx)
	if err != nil {
		return err
	}
	res := out.Result
	printResult(w, res)

	if dir := cfg.Output.CSVDir; dir != "" {
		paths, err := report.SaveCSV(dir, res)
		if err != nil {
			return fmt.Errorf("save csv: %w", err)
		}
		for _, path := range paths {
			log.Info("csv written", zap.String("path", path))
		}
	}

	charts, errs := report.TopCharts(res, out.Series, cfg.Telegram.MaxCharts, cfg.Analysis.DisplayRangeDays)
	for _, err := range errs {
		log.Warn("render chart", zap.Error(err))
	}
	if dir := cfg.Output.ChartDir; dir != "" {
		if err := saveCharts(dir, charts); err != nil {
			return err
		}
		log.Info("charts written", zap.String("dir", dir), zap.Int("charts", len(charts)))
	}

	if f.notify {
		if err := cfg.ValidateTelegram(); err != nil {
			return err
		}
		tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Named("telegram"))
		if err != nil {
			return err
		}
		if err := tn.SendWithRetry(ctx, report.FormatSummary(res, cfg.Telegram.MaxCharts), 3); err != nil {
			return fmt.Errorf("send summary: %w", err)
		}
		for _, c := range charts {
			if err := tn.SendPhoto(c.Caption, c.Name, c.PNG); err != nil {
				log.Error("send chart", zap.String("chart", c.Name), zap.Error(err))
			}
		}
	}
	return nil
}

func printResult(w io.Writer, res *model.BatchResult) {
	fmt.Fprintf(w, "Falls of %.1f%% or more in one session (horizon %d days)\n",
		res.Params.FallThresholdPct, res.Params.ForwardHorizonDays)
	fmt.Fprintln(w, report.RenderFallTable(res.Falls, res.Params.ForwardHorizonDays))
	if !res.Falls.Empty() {
		fmt.Fprintln(w, "\nFalls per symbol")
		fmt.Fprintln(w, report.RenderFrequency(res.Falls))
	}
	fmt.Fprintln(w, "\nMax drawdown per symbol")
	fmt.Fprintln(w, report.RenderDrawdownTable(res.Drawdowns))
	if warn := report.RenderWarnings(res.Warnings); warn != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, warn)
	}
}

func saveCharts(dir string, charts []report.Chart) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	for _, c := range charts {
		if err := os.WriteFile(filepath.Join(dir, c.Name), c.PNG, 0o644); err != nil {
			return fmt.Errorf("write chart %s: %w", c.Name, err)
		}
	}
	return nil
}
