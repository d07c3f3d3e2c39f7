package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"FallScope/internal/notifier"
	"FallScope/internal/pipeline"
	"FallScope/internal/scheduler"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		runOnStart   bool
		trailingDays int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run analyses on the cron schedule and answer Telegram commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := a.cfg, a.log
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.ValidateTelegram(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var window pipeline.Window
			if trailingDays > 0 {
				window = pipeline.TrailingWindow(trailingDays, time.Now)
			} else {
				start, end, err := cfg.Window()
				if err != nil {
					return err
				}
				window = pipeline.FixedWindow(start, end)
			}
			p, store, err := newPipeline(cfg, log, window)
			if err != nil {
				return err
			}
			defer closeStore(store, log)

			tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Named("telegram"))
			if err != nil {
				return err
			}

			sched := scheduler.NewScheduler(ctx, p, tn, scheduler.Options{
				MaxCharts:        cfg.Telegram.MaxCharts,
				DisplayRangeDays: cfg.Analysis.DisplayRangeDays,
			}, log.Named("scheduler"))
			if err := sched.Register(cfg.Schedule.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info("telegram polling started")

			if runOnStart {
				log.Info("run-on-start enabled, executing analysis now")
				sched.RunAsync(ctx)
			}

			log.Info("FallScope is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Run one analysis immediately")
	cmd.Flags().IntVar(&trailingDays, "trailing-days", 0, "Analyze the last N calendar days instead of the configured range")
	return cmd
}
