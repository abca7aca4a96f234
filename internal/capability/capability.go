// Package capability holds the catalog of capability tags and the registry of
// agent definitions that declare them.
package capability

// Capability is a named skill tag an agent can declare and a task can require.
type Capability struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Agent is the registered definition of one callable specialist.
type Agent struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Prompt       string   `yaml:"prompt" json:"prompt"`
	Model        string   `yaml:"model" json:"model"`
	Role         string   `yaml:"role" json:"role"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	Dependencies []string `yaml:"dependencies" json:"dependencies"`
	OutputFormat string   `yaml:"output_format" json:"outputFormat"`
	MaxTokens    int      `yaml:"max_tokens" json:"maxTokens"`
	// Temperature is nil until Register fills in DefaultTemperature, so an
	// explicit 0 survives.
	Temperature *float64 `yaml:"temperature" json:"temperature"`
}

// Temp returns a pointer to t for Agent.Temperature.
func Temp(t float64) *float64 { return &t }

// SamplingTemperature returns the agent's temperature, or DefaultTemperature
// when unset.
func (a Agent) SamplingTemperature() float64 {
	if a.Temperature == nil {
		return DefaultTemperature
	}
	return *a.Temperature
}

// HasCapability reports whether the agent declares the capability id.
func (a Agent) HasCapability(id string) bool {
	for _, c := range a.Capabilities {
		if c == id {
			return true
		}
	}
	return false
}

const (
	DefaultRole         = "assistant"
	DefaultMaxTokens    = 2000
	DefaultTemperature  = 0.7
	DefaultOutputFormat = "text"
	DefaultModel        = "gpt-4o-mini"
)

// DefaultCatalog returns the built-in capability catalog. Order matters:
// keyword matches and task-to-agent resolution iterate in this order.
func DefaultCatalog() []Capability {
	return []Capability{
		{ID: "research", Name: "Research", Keywords: []string{
			"research", "investigate", "find information", "sources", "literature", "look up", "search",
		}},
		{ID: "data_analysis", Name: "Data Analysis", Keywords: []string{
			"analyze", "analyse", "analysis", "data", "statistics", "trend", "metrics", "dataset", "csv",
		}},
		{ID: "content_writing", Name: "Content Writing", Keywords: []string{
			"write", "draft", "article", "blog", "essay", "compose", "copy",
		}},
		{ID: "summarization", Name: "Summarization", Keywords: []string{
			"summarize", "summarise", "summary", "tl;dr", "key points", "highlights", "condense",
		}},
		{ID: "code_generation", Name: "Code Generation", Keywords: []string{
			"code", "program", "function", "script", "implement", "debug", "refactor",
		}},
		{ID: "document_generation", Name: "Document Generation", Keywords: []string{
			"document", "report", "pdf", "docx", "markdown", "html",
		}},
		{ID: "planning", Name: "Planning", Keywords: []string{
			"plan", "roadmap", "schedule", "strategy", "milestone", "timeline",
		}},
		{ID: "translation", Name: "Translation", Keywords: []string{
			"translate", "translation", "localize", "localise",
		}},
		{ID: "review", Name: "Quality Review", Keywords: []string{
			"review", "proofread", "verify", "critique", "feedback", "fact-check",
		}},
		{ID: "general_assistance", Name: "General Assistance", Keywords: []string{
			"help", "explain", "question", "answer",
		}},
	}
}

// DefaultAgents returns the built-in agent roster. Every capability it
// references exists in DefaultCatalog.
func DefaultAgents() []Agent {
	return []Agent{
		{
			ID: "researcher", Name: "Research Specialist", Role: "researcher",
			Model:        "gpt-4o-mini",
			Prompt:       "Gather accurate, relevant facts and cite where they come from. Prefer primary sources.",
			Capabilities: []string{"research"},
			OutputFormat: "markdown", MaxTokens: 2500,
		},
		{
			ID: "analyst", Name: "Data Analyst", Role: "analyst",
			Model:        "gpt-4o-mini",
			Prompt:       "Work quantitatively. State the figures you rely on and the conclusions they support.",
			Capabilities: []string{"data_analysis"},
			OutputFormat: "markdown", MaxTokens: 2000,
		},
		{
			ID: "writer", Name: "Content Writer", Role: "writer",
			Model:        "claude-3-5-haiku-latest",
			Prompt:       "Write clear, well structured prose for a general audience.",
			Capabilities: []string{"content_writing"},
			OutputFormat: "markdown", MaxTokens: 3000, Temperature: Temp(0.8),
		},
		{
			ID: "summarizer", Name: "Summarizer", Role: "summarizer",
			Model:        "gpt-4o-mini",
			Prompt:       "Condense the input to its essential points. Use short bullet points.",
			Capabilities: []string{"summarization"},
			OutputFormat: "markdown", MaxTokens: 1200, Temperature: Temp(0.3),
		},
		{
			ID: "coder", Name: "Code Mentor", Role: "engineer",
			Model:        "claude-3-5-sonnet-latest",
			Prompt:       "Produce working, idiomatic code with brief explanations of non-obvious parts.",
			Capabilities: []string{"code_generation"},
			OutputFormat: "code", MaxTokens: 3000, Temperature: Temp(0.2),
		},
		{
			ID: "documenter", Name: "Document Builder", Role: "technical writer",
			Model:        "gpt-4o-mini",
			Prompt:       "Turn the material you receive into a finished document with headings and sections.",
			Capabilities: []string{"document_generation"},
			Dependencies: []string{"writer"},
			OutputFormat: "markdown", MaxTokens: 2500,
		},
		{
			ID: "planner", Name: "Strategy Planner", Role: "planner",
			Model:        "gpt-4o-mini",
			Prompt:       "Break goals into ordered, actionable steps with owners and checkpoints.",
			Capabilities: []string{"planning"},
			OutputFormat: "markdown", MaxTokens: 2000,
		},
		{
			ID: "translator", Name: "Translator", Role: "translator",
			Model:        "gpt-4o-mini",
			Prompt:       "Translate faithfully, keeping tone and formatting.",
			Capabilities: []string{"translation"},
			OutputFormat: "text", MaxTokens: 2000, Temperature: Temp(0.2),
		},
		{
			ID: "reviewer", Name: "Quality Reviewer", Role: "reviewer",
			Model:        "claude-3-5-haiku-latest",
			Prompt:       "Check the previous output for errors, gaps and unsupported claims, then return a corrected version.",
			Capabilities: []string{"review"},
			OutputFormat: "markdown", MaxTokens: 2000, Temperature: Temp(0.2),
		},
		{
			ID: "generalist", Name: "General Assistant", Role: DefaultRole,
			Model:        DefaultModel,
			Capabilities: []string{"general_assistance"},
		},
	}
}
