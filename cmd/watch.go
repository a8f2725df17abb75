// File: cmd/watch.go
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mpadilha/redcollect/internal/notify"
	"github.com/mpadilha/redcollect/internal/observability"
	"github.com/mpadilha/redcollect/internal/schedule"
	"github.com/mpadilha/redcollect/internal/store"
	"github.com/mpadilha/redcollect/internal/workflow"
)

// watchCmd keeps the process alive and runs the collection pass at the
// configured times of day.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the collection pass on the configured schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner, err := workflow.NewRunner(
			appCfg,
			store.New(appCfg.Store.Path, logger),
			notify.NewTelegram(appCfg.Telegram, logger),
			logger,
		)
		if err != nil {
			return err
		}

		job := func(jobCtx context.Context) {
			if err := runner.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Scheduled collection pass failed", zap.Error(err))
			}
		}

		scheduler, err := schedule.New(appCfg.Schedule, job, logger)
		if err != nil {
			return err
		}

		if err := scheduler.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("Shutting down on signal.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
