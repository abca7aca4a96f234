// Package planner turns free text into an ordered execution plan of agent
// invocations resolved through the capability registry.
package planner

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/venke07/conductor/internal/capability"
)

var ErrEmptyPlan = errors.New("no agent can serve the task")

const maxAlternatives = 2

// Analysis is the keyword-scored reading of a task.
type Analysis struct {
	Text         string         `json:"text"`
	Pattern      string         `json:"pattern"`
	Alternatives []string       `json:"alternatives"`
	Capabilities []string       `json:"capabilities"`
	OutputFormat string         `json:"outputFormat"`
	Confidence   float64        `json:"confidence"`
	Scores       map[string]int `json:"scores"`
}

// Step is one resolved agent invocation of a plan.
type Step struct {
	Number       int              `json:"stepNumber"`
	Agent        capability.Agent `json:"agent"`
	Capabilities []string         `json:"capabilities"`
	Dependencies []string         `json:"dependencies"`
	InputSource  string           `json:"inputSource"`
	OutputFormat string           `json:"outputFormat"`
	SystemPrompt string           `json:"systemPrompt"`
}

// Plan is built once per run and not modified afterwards.
type Plan struct {
	TaskID        string   `json:"taskId"`
	Task          string   `json:"task"`
	Pattern       string   `json:"pattern"`
	Confidence    float64  `json:"confidence"`
	Capabilities  []string `json:"capabilities"`
	Steps         []Step   `json:"steps"`
	TokenEstimate int      `json:"tokenEstimate"`
}

type Planner struct {
	registry *capability.Registry
	patterns []Pattern
	general  Pattern
}

// New returns a planner over registry using patterns, or DefaultPatterns when
// none are given.
func New(registry *capability.Registry, patterns ...Pattern) *Planner {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	ps := make([]Pattern, len(patterns))
	for i, p := range patterns {
		kws := make([]string, len(p.Keywords))
		for j, kw := range p.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		p.Keywords = kws
		ps[i] = p
	}
	return &Planner{registry: registry, patterns: ps, general: generalPattern()}
}

// Analyze scores every pattern by keyword hits. The primary pattern has the
// highest score, earlier declarations winning ties; alternatives are the next
// best patterns that scored at all.
func (p *Planner) Analyze(text string) Analysis {
	lower := strings.ToLower(text)
	scores := make(map[string]int, len(p.patterns))
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(p.patterns))

	best, bestScore := -1, 0
	for i, pat := range p.patterns {
		n := 0
		for _, kw := range pat.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				n++
			}
		}
		scores[pat.Name] = n
		ranked = append(ranked, scored{idx: i, score: n})
		if n > bestScore {
			best, bestScore = i, n
		}
	}

	primary := p.general
	if best >= 0 {
		primary = p.patterns[best]
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	var alternatives []string
	for _, r := range ranked {
		if len(alternatives) == maxAlternatives {
			break
		}
		if r.score == 0 || r.idx == best {
			continue
		}
		alternatives = append(alternatives, p.patterns[r.idx].Name)
	}

	caps := slices.Clone(primary.Capabilities)
	for _, c := range p.registry.FindRequiredCapabilities(text) {
		if !slices.Contains(caps, c) {
			caps = append(caps, c)
		}
	}

	return Analysis{
		Text:         text,
		Pattern:      primary.Name,
		Alternatives: alternatives,
		Capabilities: caps,
		OutputFormat: primary.OutputFormat,
		Confidence:   min(float64(bestScore)/3*100, 100),
		Scores:       scores,
	}
}

// Plan resolves one agent per required capability, orders the resulting set
// by dependencies and renders each step's system prompt. When available is
// non-empty, agents outside it are not chosen for capabilities; declared
// dependencies are still pulled in from the registry.
func (p *Planner) Plan(analysis Analysis, available []capability.Agent) (*Plan, error) {
	var exclude []string
	if len(available) > 0 {
		allowed := make(map[string]bool, len(available))
		for _, a := range available {
			allowed[a.ID] = true
		}
		for _, a := range p.registry.Agents() {
			if !allowed[a.ID] {
				exclude = append(exclude, a.ID)
			}
		}
	}

	var chosen []capability.Agent
	seen := make(map[string]bool)
	for _, capID := range analysis.Capabilities {
		a, ok := p.registry.FindBestAgent(capID, exclude...)
		if !ok || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		chosen = append(chosen, a)
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyPlan, analysis.Pattern)
	}

	ordered, err := p.registry.ExecutionOrder(chosen)
	if err != nil {
		return nil, fmt.Errorf("ordering agents: %w", err)
	}

	inPlan := make(map[string]bool, len(ordered))
	for _, a := range ordered {
		inPlan[a.ID] = true
	}

	plan := &Plan{
		TaskID:       uuid.NewString(),
		Task:         analysis.Text,
		Pattern:      analysis.Pattern,
		Confidence:   analysis.Confidence,
		Capabilities: slices.Clone(analysis.Capabilities),
		Steps:        make([]Step, len(ordered)),
	}
	for i, a := range ordered {
		step := Step{
			Number:       i + 1,
			Agent:        a,
			OutputFormat: a.OutputFormat,
		}
		for _, c := range analysis.Capabilities {
			if a.HasCapability(c) {
				step.Capabilities = append(step.Capabilities, c)
			}
		}
		if len(step.Capabilities) == 0 {
			step.Capabilities = slices.Clone(a.Capabilities)
		}
		for _, dep := range a.Dependencies {
			if inPlan[dep] {
				step.Dependencies = append(step.Dependencies, dep)
			}
		}
		if i == 0 {
			step.InputSource = analysis.Text
		} else {
			step.InputSource = ordered[i-1].ID
		}
		if i == len(ordered)-1 && analysis.OutputFormat != "" {
			step.OutputFormat = analysis.OutputFormat
		}
		plan.Steps[i] = step
		plan.TokenEstimate += a.MaxTokens
	}
	for i := range plan.Steps {
		plan.Steps[i].SystemPrompt = p.SystemPrompt(plan, i)
	}
	return plan, nil
}

// SystemPrompt renders the system message for the step at index.
func (p *Planner) SystemPrompt(plan *Plan, index int) string {
	if plan == nil || index < 0 || index >= len(plan.Steps) {
		return ""
	}
	step := plan.Steps[index]
	total := len(plan.Steps)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s, acting as %s.\n", step.Agent.Name, step.Agent.Role))
	sb.WriteString(fmt.Sprintf("Original task: %s\n", plan.Task))
	sb.WriteString(fmt.Sprintf("You are step %d of %d in a multi-agent workflow.\n", step.Number, total))

	if len(step.Capabilities) > 0 {
		names := make([]string, 0, len(step.Capabilities))
		for _, id := range step.Capabilities {
			if c, ok := p.registry.Capability(id); ok {
				names = append(names, c.Name)
				continue
			}
			names = append(names, id)
		}
		sb.WriteString(fmt.Sprintf("Capabilities to apply: %s\n", strings.Join(names, ", ")))
	}

	if index == 0 {
		sb.WriteString("Start fresh from the original task.\n")
	} else {
		prev := plan.Steps[index-1].Agent
		sb.WriteString(fmt.Sprintf("Build on the output of the previous step (%s), which you receive as input.\n", prev.Name))
	}
	if index == total-1 {
		sb.WriteString(fmt.Sprintf("Produce the final deliverable as %s.\n", step.OutputFormat))
	}
	if step.Agent.Prompt != "" {
		sb.WriteString("\n")
		sb.WriteString(step.Agent.Prompt)
		sb.WriteString("\n")
	}
	return sb.String()
}
