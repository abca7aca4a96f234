package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Execution is the outcome of post-processing one response.
type Execution struct {
	Text     string   `json:"text"`
	HasCalls bool     `json:"hasToolCalls"`
	Calls    []Call   `json:"toolCalls,omitempty"`
	Results  []Result `json:"results,omitempty"`
}

type Interpreter struct {
	registry *Registry
	guard    *Guard
	logger   *zap.Logger
}

type Option func(*Interpreter)

func WithGuard(g *Guard) Option {
	return func(in *Interpreter) { in.guard = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

func NewInterpreter(reg *Registry, opts ...Option) *Interpreter {
	in := &Interpreter{registry: reg, guard: NewGuard(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Interpreter) Registry() *Registry {
	return in.registry
}

// Execute runs every call in text from left to right and replaces each call
// span with its rendered result. Text without calls is returned unchanged.
// Identical spans are executed and rendered independently.
func (in *Interpreter) Execute(ctx context.Context, text string) Execution {
	segs := parse(text, func(raw string, err error) {
		in.logger.Debug("ignoring malformed tool call", zap.String("raw", raw), zap.Error(err))
	})

	exec := Execution{}
	var sb strings.Builder
	for _, seg := range segs {
		if seg.Kind == SegmentText {
			sb.WriteString(seg.Text)
			continue
		}
		res := in.Call(ctx, *seg.Call)
		exec.Calls = append(exec.Calls, *seg.Call)
		exec.Results = append(exec.Results, res)
		sb.WriteString(in.render(res))
	}
	if len(exec.Calls) == 0 {
		exec.Text = text
		return exec
	}
	exec.HasCalls = true
	exec.Text = sb.String()
	return exec
}

// Call runs a single tool and returns only after its handler has returned.
// Handler errors and panics become failed results. With a guard timeout the
// handler's context is cancelled at the deadline and the call reports the
// timeout, but the handler is still awaited so later calls never overlap it.
func (in *Interpreter) Call(ctx context.Context, call Call) Result {
	h, ok := in.registry.Handler(call.Tool)
	if !ok {
		in.logger.Warn("unknown tool", zap.String("tool", call.Tool))
		return Result{Error: fmt.Sprintf("unknown tool %q", call.Tool)}
	}
	params := call.Params
	if params == nil {
		params = map[string]any{}
	}

	callCtx := ctx
	if in.guard.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, in.guard.Timeout)
		defer cancel()
	}

	res := invoke(callCtx, call.Tool, h, params)
	if in.guard.Timeout > 0 && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		res = Result{Error: fmt.Sprintf("tool %q: timed out after %s", call.Tool, in.guard.Timeout)}
	}
	if !res.Success {
		in.logger.Info("tool call failed", zap.String("tool", call.Tool), zap.String("error", res.Error))
	}
	return res
}

func invoke(ctx context.Context, tool string, h Handler, params map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Error: fmt.Sprintf("tool %q panicked: %v", tool, r)}
		}
	}()
	value, err := h.Execute(ctx, params)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true, Result: value}
}

func (in *Interpreter) render(res Result) string {
	if !res.Success {
		return errorPrefix + in.guard.Sanitize(res.Error) + "]"
	}
	data, err := json.Marshal(res.Result)
	if err != nil {
		return errorPrefix + in.guard.Sanitize("encoding result: "+err.Error()) + "]"
	}
	return resultPrefix + in.guard.Sanitize(string(data)) + "]"
}
