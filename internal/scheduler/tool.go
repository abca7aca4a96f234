package scheduler

import (
	"context"
	"fmt"

	"github.com/venke07/conductor/internal/tools"
)

const ToolName = "scheduledJobs"

// SchedulerTool exposes the scheduler to agents as a tool so they can inspect
// and steer maintenance jobs from inside a workflow.
type SchedulerTool struct {
	sched *Scheduler
}

func NewSchedulerTool(sched *Scheduler) *SchedulerTool {
	return &SchedulerTool{sched: sched}
}

func (t *SchedulerTool) Tool() tools.Tool {
	return tools.Tool{
		ID:          ToolName,
		Name:        "Scheduled Jobs",
		Description: "Inspect and control maintenance jobs. Actions: list, pause, resume, run.",
		Parameters: []tools.Parameter{
			{Name: "action", Type: "string", Description: "list, pause, resume or run", Required: true},
			{Name: "name", Type: "string", Description: "job name, required for every action except list"},
		},
	}
}

func (t *SchedulerTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	action, _ := params["action"].(string)
	name, _ := params["name"].(string)
	if action == "" {
		return nil, fmt.Errorf("action is required")
	}
	if action != "list" && name == "" {
		return nil, fmt.Errorf("name is required")
	}

	switch action {
	case "list":
		return t.sched.ListJobs(), nil
	case "pause":
		if err := t.sched.PauseJob(name); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Job %q paused.", name), nil
	case "resume":
		if err := t.sched.ResumeJob(name); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Job %q resumed.", name), nil
	case "run":
		return t.sched.RunNow(ctx, name)
	default:
		return nil, fmt.Errorf("unknown scheduler action: %s", action)
	}
}

// Register adds the tool to reg.
func (t *SchedulerTool) Register(reg *tools.Registry) error {
	return reg.Register(t.Tool(), t)
}
