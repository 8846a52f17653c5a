package carenote

import (
	"os"

	"github.com/ameistad/carenote/internal/carenoted"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the carenote API server in the foreground",
		Long: `Run the carenote API server and the weekly refresh scheduler until interrupted.

The server reads its configuration from the config directory (default: ~/.config/carenote/carenote.yaml).
Create one with 'carenote init'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return carenoted.RunWithSignals(carenoted.Options{
				ConfigPath: configPath,
				Debug:      debug || os.Getenv(constants.EnvVarDebug) == "true",
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the server config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}
