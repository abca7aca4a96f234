package tools

import (
	"fmt"
	"sync"
)

// Registry maps tool ids to their metadata and handlers. It is filled at
// startup and safe for concurrent reads afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	handlers map[string]Handler
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) Register(tool Tool, h Handler) error {
	if tool.ID == "" {
		return fmt.Errorf("register tool: id is required")
	}
	if h == nil {
		return fmt.Errorf("register tool %q: handler is nil", tool.ID)
	}
	if tool.Name == "" {
		tool.Name = tool.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.ID]; exists {
		return fmt.Errorf("tool %q already registered", tool.ID)
	}
	r.tools[tool.ID] = tool
	r.handlers[tool.ID] = h
	r.order = append(r.order, tool.ID)
	return nil
}

func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[id]; !ok {
		return
	}
	delete(r.tools, id)
	delete(r.handlers, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Tool(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

func (r *Registry) Handler(id string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	return h, ok
}

// Tools lists registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id])
	}
	return out
}
