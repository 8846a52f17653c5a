package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ameistad/carenote/internal/constants"
)

func ensureDir(dirPath string) error {
	return os.MkdirAll(dirPath, constants.ModeDirPrivate)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// DataDir returns the directory holding the database and uploads.
// If CARENOTE_DATA_DIR is set, it will use that instead.
func DataDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarDataDir); ok && envPath != "" {
		return expandHome(envPath)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "carenote"), nil
}

// ConfigDir returns the carenote configuration directory, creating it if needed.
func ConfigDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarConfigDir); ok && envPath != "" {
		expanded, err := expandHome(envPath)
		if err != nil {
			return "", err
		}
		if err := ensureDir(expanded); err != nil {
			return "", err
		}
		return expanded, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(home, ".config", "carenote")
	if err := ensureDir(path); err != nil {
		return "", err
	}
	return path, nil
}

func ServerConfigFilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, constants.ServerConfigFileName), nil
}

// EnsureDataDirs creates the data directory layout and returns the resolved data dir.
// An explicit dataDir from the config file takes precedence over the environment.
func EnsureDataDirs(dataDir string) (string, error) {
	if dataDir == "" {
		var err error
		dataDir, err = DataDir()
		if err != nil {
			return "", err
		}
	}
	dataDir, err := expandHome(dataDir)
	if err != nil {
		return "", err
	}
	for _, dir := range []string{
		dataDir,
		filepath.Join(dataDir, constants.UploadsDirName),
		filepath.Join(dataDir, constants.LogsDirName),
	} {
		if err := ensureDir(dir); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

func UploadsDir(dataDir string) string {
	return filepath.Join(dataDir, constants.UploadsDirName)
}

func LogsDir(dataDir string) string {
	return filepath.Join(dataDir, constants.LogsDirName)
}
