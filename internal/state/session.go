// Package state holds per-session context for workflow runs: the original
// prompt, per-agent outputs, the final result and an append-only event log.
package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrSessionNotFound = errors.New("session not found")

type EventType string

const (
	EventWorkflowStarted   EventType = "workflow_started"
	EventStepStarted       EventType = "step_started"
	EventStepCompleted     EventType = "step_completed"
	EventStepFailed        EventType = "step_failed"
	EventWorkflowCompleted EventType = "workflow_completed"
)

type Event struct {
	Type      EventType `yaml:"type" json:"type"`
	Agent     string    `yaml:"agent,omitempty" json:"agent,omitempty"`
	Step      int       `yaml:"step,omitempty" json:"step,omitempty"`
	Message   string    `yaml:"message,omitempty" json:"message,omitempty"`
	Reason    string    `yaml:"reason,omitempty" json:"reason,omitempty"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

type Data struct {
	Prompt       string            `yaml:"prompt" json:"prompt"`
	Intent       string            `yaml:"intent,omitempty" json:"intent,omitempty"`
	AgentOutputs map[string]string `yaml:"agent_outputs" json:"agentOutputs"`
	FinalResult  string            `yaml:"final_result,omitempty" json:"finalResult,omitempty"`
}

type SessionContext struct {
	ID        string    `yaml:"id" json:"id"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
	Data      Data      `yaml:"data" json:"data"`
	History   []Event   `yaml:"history" json:"history"`
}

// Store keeps session contexts. Implementations are safe for concurrent use;
// a single session is expected to have one writer at a time.
type Store interface {
	// Init creates (or replaces) the context for id.
	Init(ctx context.Context, id string, data Data) (*SessionContext, error)
	// Get returns a copy of the context or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*SessionContext, error)
	// Update applies fn to the stored context and writes it back.
	Update(ctx context.Context, id string, fn func(*SessionContext)) error
	// Clear removes the context. Clearing an unknown id is not an error.
	Clear(ctx context.Context, id string) error
}

func newSession(id string, data Data) *SessionContext {
	now := time.Now().UTC()
	if data.AgentOutputs == nil {
		data.AgentOutputs = make(map[string]string)
	} else {
		data.AgentOutputs = maps.Clone(data.AgentOutputs)
	}
	return &SessionContext{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
		History:   []Event{},
	}
}

func (s *SessionContext) clone() *SessionContext {
	c := *s
	c.Data.AgentOutputs = maps.Clone(s.Data.AgentOutputs)
	if c.Data.AgentOutputs == nil {
		c.Data.AgentOutputs = make(map[string]string)
	}
	c.History = slices.Clone(s.History)
	return &c
}

// Field names a scalar session field writable on its own.
type Field string

const (
	FieldIntent      Field = "intent"
	FieldFinalResult Field = "final_result"
)

// FieldWriter is implemented by stores that can write a single piece of a
// session without rewriting the rest. The helpers below use it when present,
// so concurrent writers to one session do not contend.
type FieldWriter interface {
	SetOutput(ctx context.Context, id, agent, output string) error
	AppendEvent(ctx context.Context, id string, ev Event) error
	SetField(ctx context.Context, id string, field Field, value string) error
}

// SetOutput records one agent's output under its display name.
func SetOutput(ctx context.Context, s Store, id, agent, output string) error {
	if fw, ok := s.(FieldWriter); ok {
		return fw.SetOutput(ctx, id, agent, output)
	}
	return s.Update(ctx, id, func(sc *SessionContext) {
		sc.Data.AgentOutputs[agent] = output
	})
}

func SetIntent(ctx context.Context, s Store, id, intent string) error {
	if fw, ok := s.(FieldWriter); ok {
		return fw.SetField(ctx, id, FieldIntent, intent)
	}
	return s.Update(ctx, id, func(sc *SessionContext) {
		sc.Data.Intent = intent
	})
}

func SetFinalResult(ctx context.Context, s Store, id, result string) error {
	if fw, ok := s.(FieldWriter); ok {
		return fw.SetField(ctx, id, FieldFinalResult, result)
	}
	return s.Update(ctx, id, func(sc *SessionContext) {
		sc.Data.FinalResult = result
	})
}

// AddEvent appends ev to the session history, stamping it when unset.
func AddEvent(ctx context.Context, s Store, id string, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if fw, ok := s.(FieldWriter); ok {
		return fw.AppendEvent(ctx, id, ev)
	}
	return s.Update(ctx, id, func(sc *SessionContext) {
		sc.History = append(sc.History, ev)
	})
}

// Snapshot renders the session as YAML.
func Snapshot(sc *SessionContext) ([]byte, error) {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}
	return data, nil
}

// LoadSnapshot parses a session previously rendered by Snapshot.
func LoadSnapshot(data []byte) (*SessionContext, error) {
	var sc SessionContext
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	if sc.ID == "" {
		return nil, fmt.Errorf("parsing session: missing id")
	}
	if sc.Data.AgentOutputs == nil {
		sc.Data.AgentOutputs = make(map[string]string)
	}
	return &sc, nil
}
