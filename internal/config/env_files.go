package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/joho/godotenv"
)

// LoadEnvFiles attempts to load .env files from the working directory and the config dir.
// Values already present in the environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(constants.ConfigEnvFileName)

	if configDir, err := ConfigDir(); err == nil {
		configEnvPath := filepath.Join(configDir, constants.ConfigEnvFileName)
		_ = godotenv.Load(configEnvPath)
	}
}

// LoadAPIToken loads the API token from the environment or .env files.
func LoadAPIToken() (string, error) {
	LoadEnvFiles()

	token := os.Getenv(constants.EnvVarAPIToken)
	if token == "" {
		return "", fmt.Errorf("API token not found. Please set %s environment variable or create a %s file", constants.EnvVarAPIToken, constants.ConfigEnvFileName)
	}
	return token, nil
}

// ConfigEnvFilePath returns the path to the .env file in the carenote config directory.
func ConfigEnvFilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, constants.ConfigEnvFileName), nil
}

// SetEnvValue writes or replaces key in the .env file at path, keeping other values.
func SetEnvValue(path, key, value string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		env = existing
	}
	env[key] = value

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Chmod(path, constants.ModeFileSecret)
}
