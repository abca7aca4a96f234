package capability

import (
	"fmt"
	"strings"
)

const (
	unvisited = iota
	visiting
	placed
)

// ExecutionOrder returns agents with every declared dependency placed before
// its dependent. Dependencies are looked up in the registry and pulled in
// even when absent from the input; ids unknown to the registry are skipped.
// Each agent appears once. A dependency cycle yields ErrCyclicDependency.
func (r *Registry) ExecutionOrder(agents []Agent) ([]Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	marks := make(map[string]int, len(agents))
	ordered := make([]Agent, 0, len(agents))
	var path []string

	var visit func(a Agent) error
	visit = func(a Agent) error {
		switch marks[a.ID] {
		case placed:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCyclicDependency, cyclePath(path, a.ID))
		}
		marks[a.ID] = visiting
		path = append(path, a.ID)
		for _, depID := range a.Dependencies {
			dep, ok := r.agents[depID]
			if !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		marks[a.ID] = placed
		ordered = append(ordered, a)
		return nil
	}

	for _, a := range agents {
		if err := visit(a); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func cyclePath(path []string, repeated string) string {
	start := 0
	for i, id := range path {
		if id == repeated {
			start = i
			break
		}
	}
	cycle := append([]string{}, path[start:]...)
	cycle = append(cycle, repeated)
	return strings.Join(cycle, " -> ")
}
