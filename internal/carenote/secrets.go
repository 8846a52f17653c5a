package carenote

import (
	"fmt"

	"filippo.io/age"
	"github.com/ameistad/carenote/internal/config"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/secrets"
	"github.com/ameistad/carenote/internal/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func SecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the API token and the settings encryption key",
	}
	cmd.AddCommand(
		SecretsInitCmd(),
		SecretsTokenCmd(),
		SecretsRollCmd(),
	)
	return cmd
}

func SecretsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the settings encryption key into the config .env file",
		Long: `Generate an age identity and store it as ` + constants.EnvVarAgeIdentity + ` in the config .env file.
An existing key is kept. Use 'carenote secrets roll' to replace it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, err := config.ConfigEnvFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine .env path: %w", err)
			}
			if env, err := godotenv.Read(envFile); err == nil && env[constants.EnvVarAgeIdentity] != "" {
				ui.Info("Encryption key already set in %s, use 'carenote secrets roll' to replace it", envFile)
				return nil
			}
			if _, err := ensureEnvValue(envFile, constants.EnvVarAgeIdentity, secrets.GenerateIdentity); err != nil {
				return err
			}
			ui.Success("Generated encryption key in %s", envFile)
			return nil
		},
	}
}

func SecretsTokenCmd() *cobra.Command {
	var raw bool
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show the API token of this server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, err := config.ConfigEnvFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine .env path: %w", err)
			}

			if regenerate {
				token, err := generateAPIToken()
				if err != nil {
					return err
				}
				if err := config.SetEnvValue(envFile, constants.EnvVarAPIToken, token); err != nil {
					return err
				}
				ui.Warn("Generated a new API token. Restart the server and update your clients.")
			}

			env, err := godotenv.Read(envFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", envFile, err)
			}
			token := env[constants.EnvVarAPIToken]
			if token == "" {
				return fmt.Errorf("%s is not set in %s, run 'carenote init' first", constants.EnvVarAPIToken, envFile)
			}
			if raw {
				ui.Basic("%s", token)
				return nil
			}
			ui.Info("API token: %s", token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Output only the token value")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Generate a new token first")
	return cmd
}

func SecretsRollCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Generate a new encryption key and re-encrypt all settings",
		Long: `Generate a new encryption key, re-encrypt all stored settings with it and write the key
to the config .env file. Restart the server afterwards so it picks up the new key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, err := config.ConfigEnvFilePath()
			if err != nil {
				return fmt.Errorf("failed to determine .env path: %w", err)
			}
			env, err := godotenv.Read(envFile)
			if err != nil {
				return fmt.Errorf("failed to read environment variables from %s: %w", envFile, err)
			}
			oldKey := env[constants.EnvVarAgeIdentity]
			if oldKey == "" {
				return fmt.Errorf("%s is not set in %s", constants.EnvVarAgeIdentity, envFile)
			}
			oldIdentity, err := age.ParseX25519Identity(oldKey)
			if err != nil {
				return fmt.Errorf("failed to parse age identity from %s: %w", constants.EnvVarAgeIdentity, err)
			}
			newIdentity, err := age.GenerateX25519Identity()
			if err != nil {
				return fmt.Errorf("failed to generate new encryption key: %w", err)
			}

			resolvedDataDir, err := config.EnsureDataDirs(dataDir)
			if err != nil {
				return err
			}
			store, err := db.New(resolvedDataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(); err != nil {
				return err
			}

			count, err := rollSettings(store, oldIdentity, newIdentity)
			if err != nil {
				return err
			}
			if err := config.SetEnvValue(envFile, constants.EnvVarAgeIdentity, newIdentity.String()); err != nil {
				return err
			}
			ui.Success("Re-encrypted %d settings with the new key", count)
			ui.Warn("Restart the server so it uses the new key.")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.local/share/carenote)")
	return cmd
}

// rollSettings re-encrypts every stored setting from oldIdentity to newIdentity and returns how many changed.
func rollSettings(store *db.DB, oldIdentity age.Identity, newIdentity *age.X25519Identity) (int, error) {
	settings, err := store.ListSettings()
	if err != nil {
		return 0, err
	}
	rolled := make([]db.Setting, 0, len(settings))
	for _, s := range settings {
		value, err := secrets.Decrypt(s.EncryptedValue, oldIdentity)
		if err != nil {
			return 0, fmt.Errorf("failed to decrypt setting %s: %w", s.Name, err)
		}
		encrypted, err := secrets.Encrypt(value, newIdentity.Recipient())
		if err != nil {
			return 0, fmt.Errorf("failed to re-encrypt setting %s: %w", s.Name, err)
		}
		rolled = append(rolled, db.Setting{Name: s.Name, EncryptedValue: encrypted})
	}
	if len(rolled) == 0 {
		return 0, nil
	}
	if err := store.ReplaceEncryptedSettings(rolled); err != nil {
		return 0, err
	}
	return len(rolled), nil
}
