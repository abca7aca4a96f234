package capability

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func orderRegistry(t *testing.T, agents ...Agent) *Registry {
	t.Helper()
	reg := New(testCatalog())
	for _, a := range agents {
		if err := reg.Register(a); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestExecutionOrderPlacesDependenciesFirst(t *testing.T) {
	reg := orderRegistry(t,
		Agent{ID: "review", Dependencies: []string{"write"}},
		Agent{ID: "write", Dependencies: []string{"research"}},
		Agent{ID: "research"},
	)
	review, _ := reg.Agent("review")

	ordered, err := reg.ExecutionOrder([]Agent{review})
	if err != nil {
		t.Fatal(err)
	}
	got := agentIDs(ordered)
	want := []string{"research", "write", "review"}
	if !slices.Equal(got, want) {
		t.Errorf("ExecutionOrder = %v, want %v", got, want)
	}
}

func TestExecutionOrderNoDuplicates(t *testing.T) {
	reg := orderRegistry(t,
		Agent{ID: "base"},
		Agent{ID: "left", Dependencies: []string{"base"}},
		Agent{ID: "right", Dependencies: []string{"base"}},
	)
	left, _ := reg.Agent("left")
	right, _ := reg.Agent("right")
	base, _ := reg.Agent("base")

	ordered, err := reg.ExecutionOrder([]Agent{left, right, base, left})
	if err != nil {
		t.Fatal(err)
	}
	got := agentIDs(ordered)
	want := []string{"base", "left", "right"}
	if !slices.Equal(got, want) {
		t.Errorf("ExecutionOrder = %v, want %v", got, want)
	}

	again, err := reg.ExecutionOrder(ordered)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(agentIDs(again), want) {
		t.Errorf("ExecutionOrder is not idempotent: %v", agentIDs(again))
	}
}

func TestExecutionOrderSkipsUnknownDependencies(t *testing.T) {
	reg := orderRegistry(t, Agent{ID: "solo", Dependencies: []string{"ghost"}})
	solo, _ := reg.Agent("solo")
	ordered, err := reg.ExecutionOrder([]Agent{solo})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(agentIDs(ordered), []string{"solo"}) {
		t.Errorf("ExecutionOrder = %v", agentIDs(ordered))
	}
}

func TestExecutionOrderDetectsCycle(t *testing.T) {
	reg := orderRegistry(t,
		Agent{ID: "a", Dependencies: []string{"b"}},
		Agent{ID: "b", Dependencies: []string{"c"}},
		Agent{ID: "c", Dependencies: []string{"a"}},
	)
	a, _ := reg.Agent("a")
	_, err := reg.ExecutionOrder([]Agent{a})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("err = %v, want ErrCyclicDependency", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("error should name the cycle, got %q", err)
	}
}

func TestExecutionOrderSelfDependency(t *testing.T) {
	reg := orderRegistry(t, Agent{ID: "loop", Dependencies: []string{"loop"}})
	loop, _ := reg.Agent("loop")
	if _, err := reg.ExecutionOrder([]Agent{loop}); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("err = %v, want ErrCyclicDependency", err)
	}
}
