package aiclient

import (
	"os"
	"sync"
)

// SettingsStore provides encrypted settings such as stored API keys.
type SettingsStore interface {
	GetSettingDecrypted(name string) (string, error)
}

// Resolver builds the provider client on demand. The API key comes from the environment
// first and from the settings store second. A client set with SetClient always wins.
type Resolver struct {
	provider string
	store    SettingsStore
	opts     []Option

	mu    sync.Mutex
	fixed Client
}

func NewResolver(provider string, store SettingsStore, opts ...Option) *Resolver {
	return &Resolver{provider: provider, store: store, opts: opts}
}

func (r *Resolver) Provider() string {
	return r.provider
}

// SetClient injects a fixed client. Passing nil restores key-based resolution.
func (r *Resolver) SetClient(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixed = c
}

func (r *Resolver) Client() (Client, error) {
	r.mu.Lock()
	fixed := r.fixed
	r.mu.Unlock()
	if fixed != nil {
		return fixed, nil
	}

	key, err := r.apiKey()
	if err != nil {
		return nil, err
	}
	return New(r.provider, key, r.opts...)
}

func (r *Resolver) apiKey() (string, error) {
	envVar := APIKeyEnvVar(r.provider)
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	if r.store != nil {
		if key, err := r.store.GetSettingDecrypted(envVar); err == nil && key != "" {
			return key, nil
		}
	}
	return APIKeyFromEnv(r.provider)
}
