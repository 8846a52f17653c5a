package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	jsonparser "github.com/knadh/koanf/parsers/json"
	tomlparser "github.com/knadh/koanf/parsers/toml"
	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config files may be written as YAML, JSON or TOML; the extension decides.

func getConfigParser(configFile string) (koanf.Parser, error) {
	switch ext := filepath.Ext(configFile); ext {
	case ".json":
		return jsonparser.Parser(), nil
	case ".yaml", ".yml":
		return yamlparser.Parser(), nil
	case ".toml":
		return tomlparser.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type: %s", ext)
	}
}

// writeConfigFile encodes v in the format matching path's extension, defaulting to YAML.
func writeConfigFile(path string, v any, mode os.FileMode) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(v, "", "  ")
	case ".toml":
		data, err = toml.Marshal(v)
	default:
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, mode)
}
