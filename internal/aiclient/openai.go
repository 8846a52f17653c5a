package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type OpenAIClient struct {
	apiKey string
	opts   options
}

func NewOpenAI(apiKey string, opts ...Option) *OpenAIClient {
	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = defaultOpenAIBaseURL
	}
	if o.model == "" {
		o.model = DefaultOpenAIModel
	}
	return &OpenAIClient{apiKey: apiKey, opts: o}
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion sends the conversation to /chat/completions. Only rate limiting is retried.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	body := openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if body.Model == "" {
		body.Model = c.opts.model
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	err = withRetry(ctx, c.opts, ProviderOpenAI, isRateLimited, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		var resp openAIResponse
		if err := doJSON(c.opts.httpClient, httpReq, &resp); err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return ErrEmptyResponse
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	return content, nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// doJSON sends req and decodes a successful JSON response into v.
func doJSON(client *http.Client, req *http.Request, v any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorBody
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
