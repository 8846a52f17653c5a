package constants

import "os"

const (
	Version = "0.1.0"

	DefaultListenAddress = "0.0.0.0"
	DefaultPort          = "8501"
	DefaultServerURL     = "http://localhost:8501" // Default URL for the carenote API server
	HealthCheckPath      = "/_stcore/health"

	DefaultAIProvider     = "gemini"
	DefaultAITemperature  = 0.7
	DefaultAIMaxAttempts  = 5
	DefaultRefreshCron    = "0 2 * * 1"
	DefaultRetentionDays  = 14
	DefaultRecordYear     = 2025
	EmployeeEvalUndoLimit = 10 // seconds

	// Environment variables
	EnvVarAgeIdentity = "CARENOTE_ENCRYPTION_KEY"
	EnvVarAPIToken    = "CARENOTE_API_TOKEN"
	EnvVarDataDir     = "CARENOTE_DATA_DIR"
	EnvVarConfigDir   = "CARENOTE_CONFIG_DIR"
	EnvVarPort        = "CARENOTE_PORT"
	EnvVarDebug       = "CARENOTE_DEBUG"
	EnvVarGeminiKey   = "GEMINI_API_KEY"
	EnvVarOpenAIKey   = "OPENAI_API_KEY"
	EnvVarServerURL   = "CARENOTE_SERVER"

	// File names
	ServerConfigFileName = "carenote.yaml"
	ClientConfigFileName = "client.yaml"
	ConfigEnvFileName    = ".env"
	DBFileName           = "carenote.db"
	UploadsDirName       = "uploads"
	LogsDirName          = "logs"
)

// File and directory permissions
const (
	ModeFileSecret  os.FileMode = 0o600 // secrets: .env, keys
	ModeFileDefault os.FileMode = 0o644 // non-secret configs
	ModeFileExec    os.FileMode = 0o755 // scripts/binaries
	ModeDirPrivate  os.FileMode = 0o700 // private dirs
)
