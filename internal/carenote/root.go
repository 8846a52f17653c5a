package carenote

import (
	"github.com/ameistad/carenote/internal/config"
	"github.com/spf13/cobra"
)

// globalFlags holds the values of the persistent flags shared by all server-bound commands.
type globalFlags struct {
	server string
	json   bool
}

func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "carenote",
		Short: "carenote parses long-term care records and reviews them with AI",
		Long: `carenote turns the daily care record PDFs of a day care center into structured records,
checks required items, grades the written notes with an AI provider and builds weekly reports.

Run 'carenote serve' on the server and use the other commands to talk to it.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles() // load environment variables in .env for all commands.
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&flags.server, "server", "s", "", "carenote server URL (default: configured default server)")
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Print results as JSON")

	cmd.AddCommand(
		ServeCmd(),
		InitCmd(),
		HealthCheckCmd(),
		ParseCmd(flags),
		UploadCmd(flags),
		CustomersCmd(flags),
		EmployeesCmd(flags),
		EvaluateCmd(flags),
		WeeklyCmd(flags),
		DashboardCmd(flags),
		SettingsCmd(flags),
		LogsCmd(flags),
		VersionCmd(flags),

		SecretsCmd(),
		ServerCmd(),
		CompletionCmd(),
	)

	return cmd
}
