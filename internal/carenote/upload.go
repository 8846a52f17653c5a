package carenote

import (
	"context"
	"fmt"

	"github.com/ameistad/carenote/internal/logging"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func UploadCmd(flags *globalFlags) *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a care record PDF to the server and follow the import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
			defer cancel()

			jobID, err := api.UploadRecords(ctx, args[0])
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			ui.Info("Import job %s started", jobID)
			if detach {
				return nil
			}

			// No timeout here, the stream ends with the job.
			streamCtx, stopStream := context.WithCancel(context.Background())
			defer stopStream()
			final, err := api.StreamJobLogs(streamCtx, jobID, ui.DisplayJobLogEntry)
			if err != nil {
				return err
			}
			return jobResult(final)
		},
	}

	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Do not wait for the import to finish")
	return cmd
}

// jobResult turns the last entry of a job stream into the command's error.
func jobResult(final logging.LogEntry) error {
	if final.IsJobFailed {
		return fmt.Errorf("job %s failed: %s", final.JobID, final.Message)
	}
	return nil
}
