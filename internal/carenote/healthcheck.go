package carenote

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ameistad/carenote/internal/apiclient"
	"github.com/ameistad/carenote/internal/config"
	"github.com/spf13/cobra"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheckCmd probes the unauthenticated health endpoint. It prints nothing and only sets the exit code,
// so it can serve as a container HEALTHCHECK.
func HealthCheckCmd() *cobra.Command {
	var url string
	var configPath string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit with status 0 when the server answers its health probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				local, err := localServerURL(configPath)
				if err != nil {
					return err
				}
				url = local
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
			defer cancel()
			return apiclient.Probe(ctx, url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base URL to probe (default: the address of the local server config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the server config file")
	return cmd
}

// localServerURL resolves the address the local server listens on the same way the server does.
// CARENOTE_PORT takes precedence over the port in the config file.
func localServerURL(configPath string) (string, error) {
	if configPath == "" {
		path, err := config.ServerConfigFilePath()
		if err != nil {
			return "", fmt.Errorf("failed to determine config path: %w", err)
		}
		configPath = path
	}
	loaded, err := config.LoadServerConfig(configPath)
	if err != nil {
		return "", err
	}
	cfg, err := loaded.Normalize()
	if err != nil {
		return "", err
	}

	host := cfg.ListenAddress
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, cfg.Port.String()), nil
}
