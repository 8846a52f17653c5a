package carenote

import (
	"context"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

// VersionCmd prints the CLI version and, when reachable, the server version.
func VersionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of carenote and of the server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ui.Basic("carenote %s", constants.Version)

			api, err := newAPIClient(flags)
			if err != nil {
				ui.Warn("Server version unavailable: %v", err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			response, err := api.Version(ctx)
			if err != nil {
				ui.Warn("Server version unavailable: %v", err)
				return
			}
			ui.Basic("carenoted %s", response.Version)
		},
	}

	return cmd
}
