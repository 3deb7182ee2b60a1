package ai

import (
	"context"
	"fmt"
	"strings"

	"binarybets/internal/httpx"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// AnthropicProvider talks to the Anthropic messages API
type AnthropicProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *httpx.Client
}

func NewAnthropicProvider(name, baseURL, apiKey, model string, opts httpx.Options) *AnthropicProvider {
	return &AnthropicProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httpx.New(opts),
	}
}

func (p *AnthropicProvider) Name() string { return p.name }

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/messages", headers, req, &resp); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, p.name, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text content", ErrProviderUnavailable)
	}
	return sb.String(), nil
}
