package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/provider"
	"github.com/venke07/conductor/internal/state"
	"go.uber.org/zap"
)

// RunWorkflow executes the agents one after another. Each successful output
// becomes the next agent's input; a failed step is recorded and the chained
// input stays as it was. Step failures never fail the call.
func (e *Engine) RunWorkflow(ctx context.Context, req WorkflowRequest) (*Result, error) {
	agents, err := e.validate(req.Prompt, req.AgentIDs)
	if err != nil {
		return nil, err
	}
	r, err := e.startRun(ctx, ModeSequential, req.SessionID, req.Prompt, "", req.Observer)
	if err != nil {
		return nil, err
	}
	steps := make([]plannedStep, len(agents))
	for i, a := range agents {
		steps[i] = plannedStep{agent: a}
	}
	e.runChain(ctx, r, steps)
	e.finish(ctx, r)
	return r.result, nil
}

// RunParallel sends the prompt to every agent concurrently and waits for all
// of them. A failed agent contributes its error text as its output.
func (e *Engine) RunParallel(ctx context.Context, req ParallelRequest) (*Result, error) {
	agents, err := e.validate(req.Prompt, req.AgentIDs)
	if err != nil {
		return nil, err
	}
	r, err := e.startRun(ctx, ModeParallel, req.SessionID, req.Prompt, "", req.Observer)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		output string
		err    error
		at     time.Time
	}
	outcomes := make([]outcome, len(agents))
	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.callAgent(ctx, r, i+1, a, "", req.Prompt)
			outcomes[i] = outcome{output: out, err: err, at: time.Now().UTC()}
		}()
	}
	wg.Wait()

	res := r.result
	var sections []string
	for i, a := range agents {
		o := outcomes[i]
		st := StepState{Number: i + 1, AgentID: a.ID, Agent: a.Name, Status: StatusCompleted}
		if o.err != nil {
			st.Status = StatusFailed
			st.Error = o.err.Error()
			st.Reason = provider.ErrorClass(o.err)
			res.AgentOutputs[a.Name] = o.err.Error()
			res.Steps = append(res.Steps, st)
			continue
		}
		res.Steps = append(res.Steps, st)
		res.AgentOutputs[a.Name] = o.output
		res.IntermediateSteps = append(res.IntermediateSteps, IntermediateStep{
			StepNumber: i + 1,
			Agent:      a.Name,
			Input:      req.Prompt,
			Output:     o.output,
			Timestamp:  o.at,
		})
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", a.Name, o.output))
	}
	res.FinalResult = strings.Join(sections, "\n\n")
	e.finish(ctx, r)
	return res, nil
}

// RunAutonomous classifies and plans the prompt, then executes the plan like
// RunWorkflow. It fails only when no step succeeded.
func (e *Engine) RunAutonomous(ctx context.Context, req AutonomousRequest) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	var available []capability.Agent
	if len(req.AvailableAgents) > 0 {
		agents, err := e.resolveAgents(req.AvailableAgents)
		if err != nil {
			return nil, err
		}
		available = agents
	}

	class := e.classifier.Classify(req.Prompt)
	analysis := e.planner.Analyze(req.Prompt)
	plan, err := e.planner.Plan(analysis, available)
	if err != nil {
		return nil, fmt.Errorf("planning task: %w", err)
	}

	r, err := e.startRun(ctx, ModeAutonomous, req.SessionID, req.Prompt, string(class.Intent), req.Observer)
	if err != nil {
		return nil, err
	}
	r.result.Classification = &class
	r.result.Plan = plan
	r.logger.Info("plan created",
		zap.String("intent", string(class.Intent)),
		zap.String("pattern", plan.Pattern),
		zap.Int("steps", len(plan.Steps)))

	steps := make([]plannedStep, len(plan.Steps))
	for i, s := range plan.Steps {
		steps[i] = plannedStep{agent: s.Agent, prompt: e.planner.SystemPrompt(plan, i)}
	}
	e.runChain(ctx, r, steps)
	e.finish(ctx, r)

	if r.result.Succeeded() == 0 {
		return nil, fmt.Errorf("workflow %s: %w", r.result.WorkflowID, ErrAllStepsFailed)
	}
	return r.result, nil
}

type plannedStep struct {
	agent  capability.Agent
	prompt string
}

// runChain runs steps in order, carrying the last successful output forward.
func (e *Engine) runChain(ctx context.Context, r *run, steps []plannedStep) {
	res := r.result
	input := r.prompt
	for i, s := range steps {
		n := i + 1
		st := StepState{Number: n, AgentID: s.agent.ID, Agent: s.agent.Name, Status: StatusPending}
		out, err := e.callAgent(ctx, r, n, s.agent, s.prompt, input)
		if err != nil {
			st.Status = StatusFailed
			st.Error = err.Error()
			st.Reason = provider.ErrorClass(err)
			res.Steps = append(res.Steps, st)
			continue
		}
		st.Status = StatusCompleted
		res.Steps = append(res.Steps, st)
		res.AgentOutputs[s.agent.Name] = out
		res.IntermediateSteps = append(res.IntermediateSteps, IntermediateStep{
			StepNumber: n,
			Agent:      s.agent.Name,
			Input:      input,
			Output:     out,
			Timestamp:  time.Now().UTC(),
		})
		input = out
	}
	res.FinalResult = input
}

func (e *Engine) validate(prompt string, ids []string) ([]capability.Agent, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if len(ids) == 0 {
		return nil, ErrEmptyWorkflow
	}
	return e.resolveAgents(ids)
}

// Session returns the stored context for a session id.
func (e *Engine) Session(ctx context.Context, id string) (*state.SessionContext, error) {
	return e.sessions.Get(ctx, id)
}

// ClearSession drops a session's context.
func (e *Engine) ClearSession(ctx context.Context, id string) error {
	return e.sessions.Clear(ctx, id)
}
