package carenote

import (
	"fmt"
	"os"

	"github.com/ameistad/carenote/internal/config"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/embed"
	"github.com/ameistad/carenote/internal/secrets"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var force bool
	var port string
	var dataDir string
	var provider string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the server config, the data directory and the secrets",
		Long: `Initialize carenote on this machine.

This command will:
- Write a default server config to the config directory (default: ~/.config/carenote)
- Create the data directory (default: ~/.local/share/carenote)
- Generate an API token and an encryption key in the config .env file, unless they exist
- Register the local server as the default server for the CLI

The data directory can be customized by setting the CARENOTE_DATA_DIR environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.ServerConfigFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s, use --force to overwrite it", configPath)
			}

			content, err := embed.RenderInitConfig(embed.ConfigTemplateData{
				Port:       port,
				DataDir:    dataDir,
				AIProvider: provider,
				LogLevel:   "info",
			})
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			if err := os.WriteFile(configPath, content, constants.ModeFileDefault); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			resolvedDataDir, err := config.EnsureDataDirs(dataDir)
			if err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			envPath, err := config.ConfigEnvFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine .env path: %w", err)
			}
			apiToken, err := ensureEnvValue(envPath, constants.EnvVarAPIToken, generateAPIToken)
			if err != nil {
				return err
			}
			if _, err := ensureEnvValue(envPath, constants.EnvVarAgeIdentity, secrets.GenerateIdentity); err != nil {
				return err
			}

			clientConfigPath, err := config.ClientConfigFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine client config path: %w", err)
			}
			clientConfig, err := config.LoadClientConfig(clientConfigPath)
			if err != nil {
				return err
			}
			serverURL := fmt.Sprintf("http://localhost:%s", port)
			clientConfig.AddServer(serverURL, apiToken)
			if err := clientConfig.Save(clientConfigPath); err != nil {
				return fmt.Errorf("failed to save client config: %w", err)
			}

			ui.Success("carenote initialized successfully!")
			ui.Section("Locations", []string{
				fmt.Sprintf("Config:  %s", configPath),
				fmt.Sprintf("Secrets: %s", envPath),
				fmt.Sprintf("Data:    %s", resolvedDataDir),
				fmt.Sprintf("Server:  %s", serverURL),
			})
			ui.Info("Set the AI key with 'carenote settings set %s <key>' once the server runs, or put it in %s.",
				providerKeyName(provider), envPath)
			ui.Info("Start the server with 'carenote serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing server config")
	cmd.Flags().StringVar(&port, "port", constants.DefaultPort, "Port the server listens on")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.local/share/carenote)")
	cmd.Flags().StringVar(&provider, "provider", constants.DefaultAIProvider, "AI provider: gemini or openai")
	return cmd
}

// ensureEnvValue returns the value of key in the .env file at path, generating and storing one when missing.
func ensureEnvValue(path, key string, generate func() (string, error)) (string, error) {
	if existing, err := godotenv.Read(path); err == nil && existing[key] != "" {
		return existing[key], nil
	}
	value, err := generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", key, err)
	}
	if err := config.SetEnvValue(path, key, value); err != nil {
		return "", err
	}
	return value, nil
}

func providerKeyName(provider string) string {
	if provider == "openai" {
		return constants.EnvVarOpenAIKey
	}
	return constants.EnvVarGeminiKey
}
