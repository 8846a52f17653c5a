package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type GeminiClient struct {
	apiKey string
	opts   options
}

func NewGemini(apiKey string, opts ...Option) *GeminiClient {
	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = defaultGeminiBaseURL
	}
	if o.model == "" {
		o.model = DefaultGeminiModel
	}
	return &GeminiClient{apiKey: apiKey, opts: o}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// toGeminiRequest moves the system message into systemInstruction and maps assistant turns to "model".
func toGeminiRequest(req ChatRequest) geminiRequest {
	out := geminiRequest{
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature},
	}
	if req.JSON {
		out.GenerationConfig.ResponseMimeType = "application/json"
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case RoleUser:
			out.Contents = append(out.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		case RoleAssistant:
			out.Contents = append(out.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	return out
}

// ChatCompletion calls generateContent. Every failure is retried.
func (c *GeminiClient) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.opts.model
	}
	payload, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.opts.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))

	var content string
	retryAll := func(error) bool { return true }
	err = withRetry(ctx, c.opts, ProviderGemini, retryAll, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		var resp geminiResponse
		if err := doJSON(c.opts.httpClient, httpReq, &resp); err != nil {
			return err
		}
		var text strings.Builder
		if len(resp.Candidates) > 0 {
			for _, part := range resp.Candidates[0].Content.Parts {
				text.WriteString(part.Text)
			}
		}
		if strings.TrimSpace(text.String()) == "" {
			return ErrEmptyResponse
		}
		content = text.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini chat completion failed: %w", err)
	}
	return content, nil
}
