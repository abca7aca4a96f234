package orchestrator

import (
	"time"

	"github.com/venke07/conductor/internal/planner"
	"github.com/venke07/conductor/internal/router"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
	ModeAutonomous Mode = "autonomous"
)

type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// WorkflowRequest runs AgentIDs one after another over Prompt.
type WorkflowRequest struct {
	SessionID string   `json:"sessionId"`
	Prompt    string   `json:"prompt"`
	AgentIDs  []string `json:"agents"`
	Observer  Observer `json:"-"`
}

// ParallelRequest sends Prompt to every agent at once.
type ParallelRequest struct {
	SessionID string   `json:"sessionId"`
	Prompt    string   `json:"prompt"`
	AgentIDs  []string `json:"agents"`
	Observer  Observer `json:"-"`
}

// AutonomousRequest classifies and plans Prompt before executing it. A
// non-empty AvailableAgents restricts which agents the planner may choose.
type AutonomousRequest struct {
	SessionID       string   `json:"sessionId"`
	Prompt          string   `json:"prompt"`
	AvailableAgents []string `json:"availableAgents"`
	Observer        Observer `json:"-"`
}

type IntermediateStep struct {
	StepNumber int       `json:"stepNumber"`
	Agent      string    `json:"agent"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Timestamp  time.Time `json:"timestamp"`
}

type StepState struct {
	Number  int        `json:"stepNumber"`
	AgentID string     `json:"agentId"`
	Agent   string     `json:"agent"`
	Status  StepStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

type Result struct {
	WorkflowID        string                 `json:"workflowId"`
	SessionID         string                 `json:"sessionId"`
	Mode              Mode                   `json:"mode"`
	Intent            string                 `json:"intent,omitempty"`
	Classification    *router.Classification `json:"classification,omitempty"`
	Plan              *planner.Plan          `json:"plan,omitempty"`
	IntermediateSteps []IntermediateStep     `json:"intermediateSteps"`
	Steps             []StepState            `json:"steps"`
	AgentOutputs      map[string]string      `json:"agentOutputs"`
	FinalResult       string                 `json:"finalResult"`
	ExecutionTime     time.Duration          `json:"-"`
	ExecutionMillis   int64                  `json:"executionTimeMs"`
}

// Succeeded counts completed steps.
func (r *Result) Succeeded() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StatusCompleted {
			n++
		}
	}
	return n
}

type EventType string

const (
	EventStepStarted       EventType = "step_started"
	EventStepCompleted     EventType = "step_completed"
	EventStepFailed        EventType = "step_failed"
	EventWorkflowCompleted EventType = "workflow_completed"
)

// StepEvent reports progress of a run as it happens.
type StepEvent struct {
	Type       EventType `json:"type"`
	WorkflowID string    `json:"workflowId"`
	SessionID  string    `json:"sessionId"`
	Step       int       `json:"step,omitempty"`
	Agent      string    `json:"agent,omitempty"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Observer receives step events. Calls for one run are serialized.
type Observer func(StepEvent)
