// Package orchestrator executes agent workflows: static sequential chains,
// parallel fan-out and autonomous classify-plan-execute runs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/venke07/conductor/internal/actor"
	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/planner"
	"github.com/venke07/conductor/internal/provider"
	"github.com/venke07/conductor/internal/router"
	"github.com/venke07/conductor/internal/state"
	"github.com/venke07/conductor/internal/state/store"
	"github.com/venke07/conductor/internal/tools"
	"go.uber.org/zap"
)

var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrEmptyWorkflow  = errors.New("workflow has no agents")
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrAllStepsFailed = errors.New("all workflow steps failed")
)

// Archive stores summaries of finished runs.
type Archive interface {
	SaveRun(ctx context.Context, r store.Run) error
}

type Engine struct {
	registry   *capability.Registry
	caller     provider.Caller
	classifier *router.Classifier
	planner    *planner.Planner
	sessions   state.Store
	routes     *router.ProviderRouter
	keyLookup  func(string) string
	tools      *tools.Interpreter
	toolRules  *tools.Rules
	archive    Archive
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Engine)

func WithClassifier(c *router.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

func WithPlanner(p *planner.Planner) Option {
	return func(e *Engine) { e.planner = p }
}

func WithContextStore(s state.Store) Option {
	return func(e *Engine) { e.sessions = s }
}

func WithRoutes(r *router.ProviderRouter) Option {
	return func(e *Engine) { e.routes = r }
}

// WithKeyLookup replaces os.Getenv for resolving a route's API key variable.
func WithKeyLookup(fn func(string) string) Option {
	return func(e *Engine) { e.keyLookup = fn }
}

// WithTools post-processes every agent reply through in and documents the
// registered tools in system prompts using rules (default rules when nil).
func WithTools(in *tools.Interpreter, rules *tools.Rules) Option {
	return func(e *Engine) {
		e.tools = in
		e.toolRules = rules
	}
}

func WithArchive(a Archive) Option {
	return func(e *Engine) { e.archive = a }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine over registry that performs agent calls with caller.
// Collaborators not supplied through options get in-process defaults.
func New(registry *capability.Registry, caller provider.Caller, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		caller:    caller,
		keyLookup: os.Getenv,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = router.NewClassifier()
	}
	if e.planner == nil {
		e.planner = planner.New(registry)
	}
	if e.sessions == nil {
		e.sessions = state.NewMemoryStore(state.DefaultCapacity, state.DefaultTTL)
	}
	if e.routes == nil {
		e.routes = router.NewDefaultProviderRouter()
	}
	if e.tools != nil && e.toolRules == nil {
		e.toolRules = tools.NewRules(nil)
	}
	return e
}

func (e *Engine) Registry() *capability.Registry { return e.registry }

func (e *Engine) Sessions() state.Store { return e.sessions }

// Classify exposes the intent classifier.
func (e *Engine) Classify(text string) router.Classification {
	return e.classifier.Classify(text)
}

// PlanTask analyzes text and builds an execution plan restricted to
// availableIDs when non-empty.
func (e *Engine) PlanTask(text string, availableIDs []string) (*planner.Plan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}
	var available []capability.Agent
	if len(availableIDs) > 0 {
		agents, err := e.resolveAgents(availableIDs)
		if err != nil {
			return nil, err
		}
		available = agents
	}
	return e.planner.Plan(e.planner.Analyze(text), available)
}

func (e *Engine) resolveAgents(ids []string) ([]capability.Agent, error) {
	agents := make([]capability.Agent, 0, len(ids))
	for _, id := range ids {
		a, ok := e.registry.Agent(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, id)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// run carries the bookkeeping of one workflow execution.
type run struct {
	result   *Result
	prompt   string
	started  time.Time
	observer Observer
	obsMu    sync.Mutex
	logger   *zap.Logger
}

func (e *Engine) startRun(ctx context.Context, mode Mode, sessionID, prompt, intent string, obs Observer) (*run, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, err := e.sessions.Init(ctx, sessionID, state.Data{Prompt: prompt, Intent: intent}); err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}
	r := &run{
		result: &Result{
			WorkflowID:   uuid.NewString(),
			SessionID:    sessionID,
			Mode:         mode,
			Intent:       intent,
			AgentOutputs: make(map[string]string),
		},
		prompt:   prompt,
		started:  e.now(),
		observer: obs,
	}
	r.logger = e.logger.With(
		zap.String("workflow_id", r.result.WorkflowID),
		zap.String("session_id", sessionID),
		zap.String("mode", string(mode)),
	)
	if who := actor.Actor(ctx); who != "" {
		r.logger = r.logger.With(zap.String("actor", who))
	}
	e.record(ctx, r, state.Event{Type: state.EventWorkflowStarted, Message: prompt})
	r.logger.Info("workflow started")
	return r, nil
}

func (r *run) emit(ev StepEvent) {
	if r.observer == nil {
		return
	}
	ev.WorkflowID = r.result.WorkflowID
	ev.SessionID = r.result.SessionID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observer(ev)
}

// record appends to the session history. Store failures are logged and do
// not fail the run.
func (e *Engine) record(ctx context.Context, r *run, ev state.Event) {
	if err := state.AddEvent(ctx, e.sessions, r.result.SessionID, ev); err != nil {
		r.logger.Warn("recording session event", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

func (e *Engine) systemPrompt(a capability.Agent, planned string) string {
	var sb strings.Builder
	if planned != "" {
		sb.WriteString(planned)
	} else {
		fmt.Fprintf(&sb, "You are %s, acting as %s.\n", a.Name, a.Role)
		if a.Prompt != "" {
			sb.WriteString(a.Prompt)
			sb.WriteString("\n")
		}
		if a.OutputFormat != "" && a.OutputFormat != capability.DefaultOutputFormat {
			fmt.Fprintf(&sb, "Respond in %s.\n", a.OutputFormat)
		}
	}
	if e.tools != nil {
		if section := e.toolRules.PromptSection(e.tools.Registry().Tools()); section != "" {
			sb.WriteString("\n")
			sb.WriteString(section)
		}
	}
	return sb.String()
}

// callAgent performs one step: records it, calls the agent, post-processes
// the reply and stores the output under the agent's display name.
func (e *Engine) callAgent(ctx context.Context, r *run, number int, a capability.Agent, planned, input string) (string, error) {
	logger := r.logger.With(zap.String("agent", a.ID), zap.Int("step", number))
	e.record(ctx, r, state.Event{Type: state.EventStepStarted, Agent: a.Name, Step: number})
	r.emit(StepEvent{Type: EventStepStarted, Step: number, Agent: a.Name})

	route := e.routes.Resolve(a.Model)
	var key string
	if route.APIKeyEnv != "" {
		key = e.keyLookup(route.APIKeyEnv)
	}

	start := time.Now()
	resp, err := e.caller.Call(ctx, &provider.CallRequest{
		Model:       a.Model,
		APIKey:      key,
		BaseURL:     route.BaseURL,
		API:         route.API,
		Provider:    route.Provider,
		Temperature: a.SamplingTemperature(),
		MaxTokens:   a.MaxTokens,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: e.systemPrompt(a, planned)},
			{Role: provider.RoleUser, Content: input},
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		class := provider.ErrorClass(err)
		e.metrics.observeStep(a.ID, StatusFailed, elapsed)
		e.metrics.observeFailure(a.ID, class)
		logger.Warn("agent step failed", zap.Error(err), zap.String("error_class", class), zap.Duration("elapsed", elapsed))
		e.record(ctx, r, state.Event{Type: state.EventStepFailed, Agent: a.Name, Step: number, Message: err.Error(), Reason: class})
		r.emit(StepEvent{Type: EventStepFailed, Step: number, Agent: a.Name, Error: err.Error(), Reason: class})
		return "", err
	}

	output := resp.Reply
	if e.tools != nil {
		exec := e.tools.Execute(ctx, output)
		for i, call := range exec.Calls {
			e.metrics.observeTool(call.Tool, exec.Results[i].Success)
		}
		if exec.HasCalls {
			logger.Debug("tool calls executed", zap.Int("count", len(exec.Calls)))
		}
		output = exec.Text
	}

	e.metrics.observeStep(a.ID, StatusCompleted, elapsed)
	logger.Info("agent step completed", zap.Duration("elapsed", elapsed), zap.Int("output_bytes", len(output)))
	if err := state.SetOutput(ctx, e.sessions, r.result.SessionID, a.Name, output); err != nil {
		logger.Warn("storing agent output", zap.Error(err))
	}
	e.record(ctx, r, state.Event{Type: state.EventStepCompleted, Agent: a.Name, Step: number})
	r.emit(StepEvent{Type: EventStepCompleted, Step: number, Agent: a.Name, Output: output})
	return output, nil
}

// finish stores the final result, archives the run and records metrics.
func (e *Engine) finish(ctx context.Context, r *run) {
	res := r.result
	res.ExecutionTime = e.now().Sub(r.started)
	res.ExecutionMillis = res.ExecutionTime.Milliseconds()

	if err := state.SetFinalResult(ctx, e.sessions, res.SessionID, res.FinalResult); err != nil {
		r.logger.Warn("storing final result", zap.Error(err))
	}
	e.record(ctx, r, state.Event{Type: state.EventWorkflowCompleted})
	r.emit(StepEvent{Type: EventWorkflowCompleted, Output: res.FinalResult})

	failed := len(res.Steps) - res.Succeeded()
	status := store.RunStatus(len(res.Steps), failed)
	e.metrics.observeRun(res.Mode, status)
	r.logger.Info("workflow finished",
		zap.String("status", status),
		zap.Int("steps", len(res.Steps)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", res.ExecutionTime))

	if e.archive == nil {
		return
	}
	err := e.archive.SaveRun(context.WithoutCancel(ctx), store.Run{
		ID:          res.WorkflowID,
		SessionID:   res.SessionID,
		Mode:        string(res.Mode),
		Intent:      res.Intent,
		Prompt:      r.prompt,
		FinalResult: res.FinalResult,
		Status:      status,
		StepsTotal:  len(res.Steps),
		StepsFailed: failed,
		Outputs:     res.AgentOutputs,
		StartedAt:   r.started,
		Duration:    res.ExecutionTime,
	})
	if err != nil {
		r.logger.Warn("archiving run", zap.Error(err))
	}
}
