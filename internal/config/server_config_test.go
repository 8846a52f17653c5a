package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeTestConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadServerConfig(t *testing.T) {
	tests := []struct {
		name         string
		fileName     string
		content      string
		wantPort     Port
		wantProvider string
		wantTimeout  time.Duration
		wantErr      bool
	}{
		{
			name:     "yaml with integer port",
			fileName: "carenote.yaml",
			content: `
port: 8501
ai:
  provider: openai
  timeout: 30s
`,
			wantPort:     Port("8501"),
			wantProvider: "openai",
			wantTimeout:  30 * time.Second,
		},
		{
			name:         "json with string port",
			fileName:     "carenote.json",
			content:      `{"port": "9000", "ai": {"provider": "gemini"}}`,
			wantPort:     Port("9000"),
			wantProvider: "gemini",
		},
		{
			name:     "toml",
			fileName: "carenote.toml",
			content: `
port = 8600
[ai]
provider = "gemini"
timeout = "1m"
`,
			wantPort:     Port("8600"),
			wantProvider: "gemini",
			wantTimeout:  time.Minute,
		},
		{
			name:     "unsupported provider",
			fileName: "carenote.yaml",
			content:  "ai:\n  provider: claude-local\n",
			wantErr:  true,
		},
		{
			name:     "invalid log level",
			fileName: "carenote.yaml",
			content:  "logLevel: chatty\n",
			wantErr:  true,
		},
		{
			name:     "unsupported extension",
			fileName: "carenote.ini",
			content:  "port=8501",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfigFile(t, tt.fileName, tt.content)
			cfg, err := LoadServerConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tt.wantPort, cfg.Port)
			assert.Equal(t, tt.wantProvider, cfg.AI.Provider)
			assert.Equal(t, tt.wantTimeout, cfg.AI.Timeout)
		})
	}
}

func TestLoadServerConfig_MissingFile(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, Port(""), cfg.Port)
}

func TestServerConfig_Normalize(t *testing.T) {
	t.Setenv("CARENOTE_PORT", "")
	t.Setenv("CARENOTE_DEBUG", "")

	original := &ServerConfig{AI: AIConfig{Provider: "OpenAI"}}
	normalized, err := original.Normalize()
	assert.NoError(t, err)

	assert.Equal(t, "0.0.0.0", normalized.ListenAddress)
	assert.Equal(t, Port("8501"), normalized.Port)
	assert.Equal(t, "info", normalized.LogLevel)
	assert.Equal(t, "openai", normalized.AI.Provider)
	assert.Equal(t, 0.7, normalized.AI.TemperatureOrDefault())
	assert.Equal(t, 5, normalized.AI.MaxAttempts)
	assert.Equal(t, "0 2 * * 1", normalized.Weekly.RefreshSchedule)
	assert.Equal(t, 14, normalized.Logs.RetentionDays)
	assert.Equal(t, 2025, normalized.Parser.RecordYear)
	assert.Equal(t, "0.0.0.0:8501", normalized.Address())

	// the original is left untouched
	assert.Equal(t, Port(""), original.Port)
	assert.Equal(t, "OpenAI", original.AI.Provider)
}

func TestServerConfig_Temperature(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr bool
	}{
		{name: "unset uses default", content: "ai:\n  provider: gemini\n", want: 0.7},
		{name: "zero is kept", content: "ai:\n  temperature: 0\n", want: 0},
		{name: "explicit value", content: "ai:\n  temperature: 1.2\n", want: 1.2},
		{name: "out of range", content: "ai:\n  temperature: 2.5\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadServerConfig(writeTestConfigFile(t, "carenote.yaml", tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			normalized, err := cfg.Normalize()
			if !assert.NoError(t, err) {
				return
			}
			if assert.NotNil(t, normalized.AI.Temperature) {
				assert.Equal(t, tt.want, *normalized.AI.Temperature)
			}
		})
	}
}

func TestServerConfig_NormalizeEnvOverrides(t *testing.T) {
	t.Setenv("CARENOTE_PORT", "9999")
	t.Setenv("CARENOTE_DEBUG", "true")

	normalized, err := (&ServerConfig{Port: "8501"}).Normalize()
	assert.NoError(t, err)
	assert.Equal(t, Port("9999"), normalized.Port)
	assert.Equal(t, "debug", normalized.LogLevel)
}

func TestSaveServerConfig(t *testing.T) {
	t.Setenv("CARENOTE_PORT", "")
	dir := t.TempDir()
	for _, name := range []string{"carenote.yaml", "carenote.json", "carenote.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := &ServerConfig{Port: "8501", LogLevel: "warn", AI: AIConfig{Provider: "openai", Model: "gpt-4o-mini"}}
			path := filepath.Join(dir, name)
			assert.NoError(t, SaveServerConfig(cfg, path))

			loaded, err := LoadServerConfig(path)
			assert.NoError(t, err)
			assert.Equal(t, "openai", loaded.AI.Provider)
			assert.Equal(t, "gpt-4o-mini", loaded.AI.Model)
			assert.Equal(t, "warn", loaded.LogLevel)
		})
	}
}
