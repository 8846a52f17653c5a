package carenote

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func LogsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream logs from the carenote server",
		Long: `Stream all logs from the carenote server in real-time.

This includes:
- Upload and import jobs
- AI evaluation requests and retries
- Weekly analysis refreshes
- Settings changes

The logs are streamed until interrupted (Ctrl+C).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ui.Info("Streaming all logs... (Press Ctrl+C to stop)")
			err = api.StreamLogs(ctx, ui.DisplayGeneralLogEntry)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	return cmd
}
