// Package tools implements the tool-call protocol agents use inside their
// replies: a scanner for [TOOL_CALL: name({...})] markup, a registry of tool
// handlers and an interpreter that executes calls and splices results back
// into the text.
package tools

import "context"

type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Required    bool   `yaml:"required" json:"required"`
}

// Tool describes a callable tool. ID is the name used in call markup.
type Tool struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Parameters  []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Handler executes one tool call. The returned value must be JSON encodable.
type Handler interface {
	Execute(ctx context.Context, params map[string]any) (any, error)
}

type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

func (f HandlerFunc) Execute(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// Call is one parsed invocation and the exact text span it came from.
type Call struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
	Raw    string         `json:"raw"`
}

type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}
