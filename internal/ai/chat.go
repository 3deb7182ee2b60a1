package ai

import (
	"context"
	"fmt"
	"strings"

	"binarybets/internal/httpx"
)

const systemPrompt = "You resolve prediction markets. Answer only with the JSON object requested."

// ChatProvider talks to an OpenAI-compatible /chat/completions endpoint
type ChatProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *httpx.Client
}

func NewChatProvider(name, baseURL, apiKey, model string, opts httpx.Options) *ChatProvider {
	return &ChatProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httpx.New(opts),
	}
}

func (p *ChatProvider) Name() string { return p.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *ChatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrProviderUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
