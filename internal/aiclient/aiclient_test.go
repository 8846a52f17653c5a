package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry() []Option {
	return []Option{WithRetryInterval(time.Millisecond, 5*time.Millisecond), WithMaxAttempts(3)}
}

func TestOpenAIChatCompletion(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAI("sk-test", append(fastRetry(), WithBaseURL(server.URL))...)
	out, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.7,
		JSON:        true,
	})
	assert.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, DefaultOpenAIModel, got.Model)
	if assert.NotNil(t, got.ResponseFormat) {
		assert.Equal(t, "json_object", got.ResponseFormat.Type)
	}
	assert.Len(t, got.Messages, 2)
}

func TestOpenAIRetriesOnlyRateLimits(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   error
	}{
		{"rate limited then ok", []int{http.StatusTooManyRequests, http.StatusOK}, 2, nil},
		{"always rate limited", []int{429, 429, 429, 429}, 3, ErrRateLimited},
		{"server error is not retried", []int{http.StatusInternalServerError, http.StatusOK}, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[n-1]
				if status != http.StatusOK {
					w.WriteHeader(status)
					w.Write([]byte(`{"error":{"message":"nope"}}`))
					return
				}
				w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
			}))
			defer server.Close()

			client := NewOpenAI("k", append(fastRetry(), WithBaseURL(server.URL))...)
			_, err := client.ChatCompletion(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.name == "server error is not retried" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "nope")
			}
		})
	}
}

func TestOpenAIEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAI("k", append(fastRetry(), WithBaseURL(server.URL))...)
	_, err := client.ChatCompletion(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiChatCompletion(t *testing.T) {
	var got geminiRequest
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`))
	}))
	defer server.Close()

	client := NewGemini("g-key", append(fastRetry(), WithBaseURL(server.URL), WithModel("gemini-test"))...)
	out, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
		Temperature: 0.5,
		JSON:        true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, int32(2), calls.Load(), "gemini retries any failure")

	if assert.NotNil(t, got.SystemInstruction) {
		assert.Equal(t, "be brief", got.SystemInstruction.Parts[0].Text)
	}
	if assert.Len(t, got.Contents, 2) {
		assert.Equal(t, "user", got.Contents[0].Role)
		assert.Equal(t, "model", got.Contents[1].Role)
	}
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 0.5, got.GenerationConfig.Temperature)
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantErr  bool
	}{
		{"openai", "k", false},
		{"Gemini", "k", false},
		{"gemini", "", true},
		{"claude", "k", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.key, func(t *testing.T) {
			c, err := New(tt.provider, tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

type fakeStore map[string]string

func (f fakeStore) GetSettingDecrypted(name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

type staticClient string

func (s staticClient) ChatCompletion(context.Context, ChatRequest) (string, error) {
	return string(s), nil
}

func TestResolver(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	r := NewResolver(ProviderOpenAI, fakeStore{})
	_, err := r.Client()
	assert.Error(t, err)

	r = NewResolver(ProviderOpenAI, fakeStore{"OPENAI_API_KEY": "stored"})
	c, err := r.Client()
	assert.NoError(t, err)
	if assert.IsType(t, &OpenAIClient{}, c) {
		assert.Equal(t, "stored", c.(*OpenAIClient).apiKey)
	}

	t.Setenv("OPENAI_API_KEY", "from-env")
	c, err = r.Client()
	assert.NoError(t, err)
	assert.Equal(t, "from-env", c.(*OpenAIClient).apiKey)

	r.SetClient(staticClient("fixed"))
	c, err = r.Client()
	assert.NoError(t, err)
	out, _ := c.ChatCompletion(context.Background(), ChatRequest{})
	assert.Equal(t, "fixed", out)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := APIKeyFromEnv("gemini")
	assert.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "abc")
	key, err := APIKeyFromEnv("gemini")
	assert.NoError(t, err)
	assert.Equal(t, "abc", key)
}
