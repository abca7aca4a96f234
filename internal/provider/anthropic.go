package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	httpClient *http.Client
	maxRetries int
}

type AnthropicOption func(*AnthropicClient)

func WithAnthropicHTTPClient(c *http.Client) AnthropicOption {
	return func(p *AnthropicClient) { p.httpClient = c }
}

func WithAnthropicMaxRetries(n int) AnthropicOption {
	return func(p *AnthropicClient) { p.maxRetries = n }
}

func NewAnthropicClient(opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *AnthropicClient) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	reqOpts := []option.RequestOption{option.WithMaxRetries(c.maxRetries)}
	if req.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(req.APIKey))
	}
	if req.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(req.BaseURL)))
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}
	client := anthropic.NewClient(reqOpts...)

	// System messages travel separately; the rest alternate user/assistant.
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic %s: %w", req.Model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic %s: %w", req.Model, ErrEmptyReply)
	}
	return &CallResponse{
		Reply: sb.String(),
		Model: string(resp.Model),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
