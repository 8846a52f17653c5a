package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jinzhu/copier"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type AIConfig struct {
	Provider    string        `yaml:"provider" json:"provider" toml:"provider" koanf:"provider"`
	Model       string        `yaml:"model,omitempty" json:"model,omitempty" toml:"model,omitempty" koanf:"model"`
	// Temperature is nil when unset. 0 is a valid setting.
	Temperature *float64      `yaml:"temperature,omitempty" json:"temperature,omitempty" toml:"temperature,omitempty" koanf:"temperature"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" toml:"timeout,omitempty" koanf:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts" toml:"maxAttempts" koanf:"maxAttempts"`
	// BaseURL overrides the provider endpoint, mainly for proxies.
	BaseURL string `yaml:"baseURL,omitempty" json:"baseURL,omitempty" toml:"baseURL,omitempty" koanf:"baseURL"`
}

// TemperatureOrDefault returns the configured sampling temperature.
func (c AIConfig) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return constants.DefaultAITemperature
	}
	return *c.Temperature
}

type WeeklyConfig struct {
	RefreshSchedule string `yaml:"refreshSchedule" json:"refreshSchedule" toml:"refreshSchedule" koanf:"refreshSchedule"`
}

type LogsConfig struct {
	RetentionDays int `yaml:"retentionDays" json:"retentionDays" toml:"retentionDays" koanf:"retentionDays"`
}

type ParserConfig struct {
	// RecordYear is used for sheets that only print month/day.
	RecordYear int `yaml:"recordYear" json:"recordYear" toml:"recordYear" koanf:"recordYear"`
}

type ServerConfig struct {
	ListenAddress string       `yaml:"listenAddress" json:"listenAddress" toml:"listenAddress" koanf:"listenAddress"`
	Port          Port         `yaml:"port" json:"port" toml:"port" koanf:"port"`
	DataDir       string       `yaml:"dataDir,omitempty" json:"dataDir,omitempty" toml:"dataDir,omitempty" koanf:"dataDir"`
	LogLevel      string       `yaml:"logLevel" json:"logLevel" toml:"logLevel" koanf:"logLevel"`
	AI            AIConfig     `yaml:"ai" json:"ai" toml:"ai" koanf:"ai"`
	Weekly        WeeklyConfig `yaml:"weekly" json:"weekly" toml:"weekly" koanf:"weekly"`
	Logs          LogsConfig   `yaml:"logs" json:"logs" toml:"logs" koanf:"logs"`
	Parser        ParserConfig `yaml:"parser" json:"parser" toml:"parser" koanf:"parser"`
}

// Normalize returns a copy of the config with defaults applied.
func (sc *ServerConfig) Normalize() (*ServerConfig, error) {
	normalized := &ServerConfig{}
	if err := copier.CopyWithOption(normalized, sc, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy server config: %w", err)
	}

	if normalized.ListenAddress == "" {
		normalized.ListenAddress = constants.DefaultListenAddress
	}
	if port := os.Getenv(constants.EnvVarPort); port != "" {
		normalized.Port = Port(port)
	}
	if normalized.Port == "" {
		normalized.Port = Port(constants.DefaultPort)
	}
	if normalized.LogLevel == "" {
		normalized.LogLevel = "info"
	}
	if os.Getenv(constants.EnvVarDebug) == "true" {
		normalized.LogLevel = "debug"
	}
	if normalized.AI.Provider == "" {
		normalized.AI.Provider = constants.DefaultAIProvider
	}
	normalized.AI.Provider = strings.ToLower(normalized.AI.Provider)
	if normalized.AI.Temperature == nil {
		temperature := constants.DefaultAITemperature
		normalized.AI.Temperature = &temperature
	}
	if normalized.AI.MaxAttempts == 0 {
		normalized.AI.MaxAttempts = constants.DefaultAIMaxAttempts
	}
	if normalized.AI.Timeout == 0 {
		normalized.AI.Timeout = 2 * time.Minute
	}
	if normalized.Weekly.RefreshSchedule == "" {
		normalized.Weekly.RefreshSchedule = constants.DefaultRefreshCron
	}
	if normalized.Logs.RetentionDays == 0 {
		normalized.Logs.RetentionDays = constants.DefaultRetentionDays
	}
	if normalized.Parser.RecordYear == 0 {
		normalized.Parser.RecordYear = constants.DefaultRecordYear
	}
	return normalized, nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port != "" {
		if err := sc.Port.Validate(); err != nil {
			return err
		}
	}

	switch strings.ToLower(sc.AI.Provider) {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("unsupported ai provider: %s", sc.AI.Provider)
	}

	if t := sc.AI.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("ai temperature must be between 0 and 2, got %v", *t)
	}
	if sc.AI.MaxAttempts < 0 {
		return fmt.Errorf("ai maxAttempts cannot be negative")
	}
	if sc.Logs.RetentionDays < 0 {
		return fmt.Errorf("logs retentionDays cannot be negative")
	}
	if sc.Parser.RecordYear != 0 && (sc.Parser.RecordYear < 2000 || sc.Parser.RecordYear > 2100) {
		return fmt.Errorf("parser recordYear out of range: %d", sc.Parser.RecordYear)
	}

	if _, err := logging.ParseLogLevel(sc.LogLevel); err != nil {
		return err
	}

	return nil
}

// Address returns the host:port the server listens on.
func (sc *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", sc.ListenAddress, sc.Port)
}

// LoadServerConfig loads the config file at configPath. A missing file yields an empty config.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	var serverConfig ServerConfig
	if configPath == "" {
		return &serverConfig, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &serverConfig, nil
	}

	k := koanf.New(".")
	parser, err := getConfigParser(configPath)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configPath), parser); err != nil {
		return nil, fmt.Errorf("failed to load server config file: %w", err)
	}

	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			PortDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &serverConfig,
		TagName:          "koanf",
	}
	if err := k.UnmarshalWithConf("", &serverConfig, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: decoderConfig}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	if err := serverConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", configPath, err)
	}
	return &serverConfig, nil
}

func SaveServerConfig(config *ServerConfig, configPath string) error {
	return writeConfigFile(configPath, config, constants.ModeFileDefault)
}
