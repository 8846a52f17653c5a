package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ClientConfig holds the carenote servers the CLI knows about and their API tokens.
type ClientConfig struct {
	Default string            `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty" koanf:"default"`
	Servers map[string]string `json:"servers" yaml:"servers" toml:"servers" koanf:"servers"`
}

func normalizeServerURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url != "" && !strings.Contains(url, "://") {
		url = "http://" + url
	}
	return url
}

// AddServer stores the token for url. The first server added becomes the default.
func (cc *ClientConfig) AddServer(url, token string) {
	if cc.Servers == nil {
		cc.Servers = make(map[string]string)
	}
	url = normalizeServerURL(url)
	cc.Servers[url] = token
	if cc.Default == "" {
		cc.Default = url
	}
}

func (cc *ClientConfig) RemoveServer(url string) error {
	url = normalizeServerURL(url)
	if _, exists := cc.Servers[url]; !exists {
		return fmt.Errorf("server %s not found", url)
	}
	delete(cc.Servers, url)
	if cc.Default == url {
		cc.Default = ""
	}
	return nil
}

// SetDefault makes an already added server the default.
func (cc *ClientConfig) SetDefault(url string) error {
	url = normalizeServerURL(url)
	if _, exists := cc.Servers[url]; !exists {
		return fmt.Errorf("server %s not found, add it first", url)
	}
	cc.Default = url
	return nil
}

func (cc *ClientConfig) ListServers() []string {
	urls := make([]string, 0, len(cc.Servers))
	for url := range cc.Servers {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Resolve picks the server to talk to and its token. An explicit url wins, then
// CARENOTE_SERVER, then the configured default, then the local default server.
// The token comes from the config, falling back to CARENOTE_API_TOKEN.
func (cc *ClientConfig) Resolve(url string) (string, string) {
	if url == "" {
		url = os.Getenv(constants.EnvVarServerURL)
	}
	if url == "" && cc != nil {
		url = cc.Default
	}
	if url == "" {
		url = constants.DefaultServerURL
	}
	url = normalizeServerURL(url)

	var token string
	if cc != nil {
		token = cc.Servers[url]
	}
	if token == "" {
		token, _ = LoadAPIToken()
	}
	return url, token
}

func ClientConfigFilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, constants.ClientConfigFileName), nil
}

// LoadClientConfig loads the client config at path. A missing file yields an empty config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	clientConfig := &ClientConfig{Servers: map[string]string{}}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return clientConfig, nil
	}

	parser, err := getConfigParser(path)
	if err != nil {
		return nil, err
	}

	// Server URLs contain dots, so keys are split on a character URLs never hold.
	k := koanf.New("|")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load client config file: %w", err)
	}

	if err := k.UnmarshalWithConf("", clientConfig, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}
	if clientConfig.Servers == nil {
		clientConfig.Servers = map[string]string{}
	}
	return clientConfig, nil
}

func (cc *ClientConfig) Save(path string) error {
	// tokens live in this file
	return writeConfigFile(path, cc, constants.ModeFileSecret)
}
