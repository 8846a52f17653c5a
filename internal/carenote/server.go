package carenote

import (
	"context"
	"fmt"

	"github.com/ameistad/carenote/internal/apiclient"
	"github.com/ameistad/carenote/internal/config"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/spf13/cobra"
)

func ServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage carenote servers",
		Long:  "Add, remove, and manage connections to carenote servers",
	}

	cmd.AddCommand(ServerAddCmd())
	cmd.AddCommand(ServerDeleteCmd())
	cmd.AddCommand(ServerListCmd())
	cmd.AddCommand(ServerDefaultCmd())

	return cmd
}

func loadClientConfig() (*config.ClientConfig, string, error) {
	path, err := config.ClientConfigFilePath()
	if err != nil {
		return nil, "", fmt.Errorf("failed to determine client config path: %w", err)
	}
	clientConfig, err := config.LoadClientConfig(path)
	if err != nil {
		return nil, "", err
	}
	return clientConfig, path, nil
}

func ServerAddCmd() *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "add <url> <token>",
		Short: "Add a carenote server",
		Long:  "Add a carenote server. The first server added becomes the default.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, token := args[0], args[1]
			clientConfig, path, err := loadClientConfig()
			if err != nil {
				return err
			}
			clientConfig.AddServer(url, token)
			resolved, _ := clientConfig.Resolve(url)

			if !skipCheck {
				api, err := apiclient.New(resolved, token)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
				defer cancel()
				if _, err := api.HealthCheck(ctx); err != nil {
					return fmt.Errorf("server %s is not reachable, use --skip-check to add it anyway: %w", resolved, err)
				}
			}

			if err := clientConfig.Save(path); err != nil {
				return fmt.Errorf("failed to save client config: %w", err)
			}
			ui.Success("Added server %s", resolved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Do not check that the server is reachable")
	return cmd
}

func ServerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <url>",
		Aliases: []string{"remove"},
		Short:   "Remove a carenote server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientConfig, path, err := loadClientConfig()
			if err != nil {
				return err
			}
			if err := clientConfig.RemoveServer(args[0]); err != nil {
				return err
			}
			if err := clientConfig.Save(path); err != nil {
				return fmt.Errorf("failed to save client config: %w", err)
			}
			ui.Success("Removed server %s", args[0])
			return nil
		},
	}
}

func ServerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientConfig, _, err := loadClientConfig()
			if err != nil {
				return err
			}
			rows := make([][]any, 0, len(clientConfig.Servers))
			for _, url := range clientConfig.ListServers() {
				marker := ""
				if url == clientConfig.Default {
					marker = "*"
				}
				rows = append(rows, []any{marker, url})
			}
			ui.Table([]string{"Default", "URL"}, rows)
			return nil
		},
	}
}

func ServerDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <url>",
		Short: "Use a configured server by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientConfig, path, err := loadClientConfig()
			if err != nil {
				return err
			}
			if err := clientConfig.SetDefault(args[0]); err != nil {
				return err
			}
			if err := clientConfig.Save(path); err != nil {
				return fmt.Errorf("failed to save client config: %w", err)
			}
			ui.Success("Default server is now %s", clientConfig.Default)
			return nil
		},
	}
}
