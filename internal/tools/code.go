package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/venke07/conductor/internal/lua"
)

// CodeRunner implements executeCode on the restricted Lua sandbox.
type CodeRunner struct {
	opts lua.Options
}

func NewCodeRunner(opts lua.Options) *CodeRunner {
	return &CodeRunner{opts: opts}
}

func (c *CodeRunner) Execute(ctx context.Context, params map[string]any) (any, error) {
	code, err := stringParam(params, "code", true)
	if err != nil {
		return nil, err
	}
	language, err := stringParam(params, "language", false)
	if err != nil {
		return nil, err
	}
	if language != "" && !strings.EqualFold(language, "lua") {
		return nil, fmt.Errorf("unsupported language %q: only lua is available", language)
	}
	return lua.Run(ctx, code, c.opts)
}
