// Package provider performs agent calls against text-generation services.
package provider

import "context"

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

// CallRequest is one agent invocation. API and Provider come from the
// routing table; an empty API means OpenAI-compatible.
type CallRequest struct {
	Model       string    `json:"model"`
	APIKey      string    `json:"-"`
	BaseURL     string    `json:"baseUrl,omitempty"`
	API         string    `json:"api,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
	Messages    []Message `json:"messages"`
}

type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

type CallResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Caller is the agent-call contract the engine depends on.
type Caller interface {
	Call(ctx context.Context, req *CallRequest) (*CallResponse, error)
}

type CallerFunc func(ctx context.Context, req *CallRequest) (*CallResponse, error)

func (f CallerFunc) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	return f(ctx, req)
}
