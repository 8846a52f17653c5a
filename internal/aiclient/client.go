// Package aiclient talks to the chat-completion APIs of OpenAI and Gemini.
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ameistad/carenote/internal/constants"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-3-flash-preview"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

var (
	// ErrRateLimited is returned when the provider answers 429 Too Many Requests.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrEmptyResponse is returned when the provider answers without any content.
	ErrEmptyResponse = errors.New("empty response from provider")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	// Model falls back to the client's default when empty.
	Model       string
	Messages    []Message
	Temperature float64
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Client is implemented by every provider and by test fakes.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

type options struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	minInterval time.Duration
	maxInterval time.Duration
}

type Option func(*options)

func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithRetryInterval sets the minimum and maximum wait between attempts.
func WithRetryInterval(min, max time.Duration) Option {
	return func(o *options) {
		o.minInterval = min
		o.maxInterval = max
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		logger:      slog.Default(),
		maxAttempts: constants.DefaultAIMaxAttempts,
		minInterval: time.Second,
		maxInterval: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}
	return o
}

// New returns the client for provider.
func New(provider, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is empty", provider)
	}
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(apiKey, opts...), nil
	case ProviderGemini:
		return NewGemini(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", provider)
	}
}

// APIKeyEnvVar returns the environment variable holding the provider's API key.
func APIKeyEnvVar(provider string) string {
	if strings.ToLower(provider) == ProviderOpenAI {
		return constants.EnvVarOpenAIKey
	}
	return constants.EnvVarGeminiKey
}

// APIKeyFromEnv reads the provider's API key from the environment.
func APIKeyFromEnv(provider string) (string, error) {
	envVar := APIKeyEnvVar(provider)
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s api key is not set, set %s or store it with 'carenote settings set %s'", provider, envVar, envVar)
}
