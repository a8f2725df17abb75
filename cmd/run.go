// File: cmd/run.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpadilha/redcollect/internal/notify"
	"github.com/mpadilha/redcollect/internal/observability"
	"github.com/mpadilha/redcollect/internal/store"
	"github.com/mpadilha/redcollect/internal/workflow"
)

// runCmd performs one collection pass over every configured site.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all configured sites once and send the value report.",
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
		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
