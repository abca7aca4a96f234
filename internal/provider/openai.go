package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, DeepSeek, Mistral, Ollama, vLLM and similar).
type OpenAIClient struct {
	httpClient *http.Client
	maxRetries int
}

type OpenAIOption func(*OpenAIClient)

func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIClient) { p.httpClient = c }
}

func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIClient) { p.maxRetries = n }
}

func NewOpenAIClient(opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *OpenAIClient) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
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
	client := openai.NewClient(reqOpts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai %s: %w", req.Model, ErrEmptyReply)
	}
	return &CallResponse{
		Reply: resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
