package capability

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrDuplicateAgent    = errors.New("agent already registered")
	ErrCyclicDependency  = errors.New("cyclic agent dependency")
)

// Registry is the catalog of capabilities plus the agents registered against
// it. It is populated at startup and safe for concurrent reads afterwards.
type Registry struct {
	mu      sync.RWMutex
	catalog []Capability
	byID    map[string]Capability
	agents  map[string]Agent
	order   []string
}

func New(catalog []Capability) *Registry {
	r := &Registry{
		catalog: make([]Capability, 0, len(catalog)),
		byID:    make(map[string]Capability, len(catalog)),
		agents:  make(map[string]Agent),
	}
	for _, c := range catalog {
		if _, dup := r.byID[c.ID]; dup || c.ID == "" {
			continue
		}
		kws := make([]string, len(c.Keywords))
		for i, kw := range c.Keywords {
			kws[i] = strings.ToLower(kw)
		}
		c.Keywords = kws
		if c.Name == "" {
			c.Name = c.ID
		}
		r.catalog = append(r.catalog, c)
		r.byID[c.ID] = c
	}
	return r
}

// NewDefault returns a registry holding DefaultCatalog and DefaultAgents.
func NewDefault() (*Registry, error) {
	r := New(DefaultCatalog())
	for _, a := range DefaultAgents() {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register normalizes and stores an agent definition. Unset fields take their
// defaults; every declared capability must exist in the catalog.
func (r *Registry) Register(a Agent) error {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return fmt.Errorf("register agent: id is required")
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.Role == "" {
		a.Role = DefaultRole
	}
	if a.Model == "" {
		a.Model = DefaultModel
	}
	if a.OutputFormat == "" {
		a.OutputFormat = DefaultOutputFormat
	}
	if a.MaxTokens <= 0 {
		a.MaxTokens = DefaultMaxTokens
	}
	a.Temperature = Temp(a.SamplingTemperature())
	a.Capabilities = slices.Clone(a.Capabilities)
	if a.Capabilities == nil {
		a.Capabilities = []string{}
	}
	a.Dependencies = slices.Clone(a.Dependencies)
	if a.Dependencies == nil {
		a.Dependencies = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAgent, a.ID)
	}
	for _, c := range a.Capabilities {
		if _, ok := r.byID[c]; !ok {
			return fmt.Errorf("agent %q: %w %q", a.ID, ErrUnknownCapability, c)
		}
	}
	r.agents[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

func (r *Registry) Agent(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Agents returns every registered agent in registration order.
func (r *Registry) Agents() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Capabilities returns the catalog in declaration order.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.catalog)
}

func (r *Registry) Capability(id string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// FindBestAgent returns the first agent, in registration order, that declares
// the capability and is not excluded. There is no ranking: "best" is the
// earliest registration.
func (r *Registry) FindBestAgent(capabilityID string, exclude ...string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if slices.Contains(exclude, id) {
			continue
		}
		a := r.agents[id]
		if a.HasCapability(capabilityID) {
			return a, true
		}
	}
	return Agent{}, false
}

// FindRequiredCapabilities returns the ids of every catalog capability with
// at least one keyword occurring in text, in catalog order.
func (r *Registry) FindRequiredCapabilities(text string) []string {
	lower := strings.ToLower(text)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, c := range r.catalog {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

// AgentsForTask maps each capability the text requires to its best agent,
// de-duplicated by agent id.
func (r *Registry) AgentsForTask(text string) []Agent {
	var agents []Agent
	seen := make(map[string]bool)
	for _, capID := range r.FindRequiredCapabilities(text) {
		a, ok := r.FindBestAgent(capID)
		if !ok || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		agents = append(agents, a)
	}
	return agents
}
