package planner

// Pattern is one recognizable shape of task: the keywords that indicate it,
// the capabilities it needs and the output it should end in.
type Pattern struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Keywords     []string `yaml:"keywords" json:"keywords"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	OutputFormat string   `yaml:"output_format" json:"outputFormat"`
}

const GeneralPattern = "general"

// DefaultPatterns returns the built-in task patterns in declaration order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:         "research_report",
			Description:  "Investigate a topic and report the findings",
			Keywords:     []string{"research", "investigate", "sources", "findings", "study", "report"},
			Capabilities: []string{"research", "content_writing"},
			OutputFormat: "markdown report",
		},
		{
			Name:         "data_analysis",
			Description:  "Analyze data and explain the results",
			Keywords:     []string{"analyze", "analyse", "data", "statistics", "trend", "chart", "metrics", "csv"},
			Capabilities: []string{"data_analysis"},
			OutputFormat: "analysis with figures",
		},
		{
			Name:         "content_creation",
			Description:  "Write and polish original content",
			Keywords:     []string{"write", "blog", "article", "essay", "draft", "story"},
			Capabilities: []string{"content_writing", "review"},
			OutputFormat: "markdown",
		},
		{
			Name:         "summarization",
			Description:  "Condense material to its essential points",
			Keywords:     []string{"summarize", "summarise", "summary", "key points", "highlights", "tl;dr", "condense"},
			Capabilities: []string{"summarization"},
			OutputFormat: "bullet points",
		},
		{
			Name:         "code_development",
			Description:  "Write or fix code and review it",
			Keywords:     []string{"code", "function", "implement", "debug", "script", "program", "bug"},
			Capabilities: []string{"code_generation", "review"},
			OutputFormat: "code",
		},
		{
			Name:         "document_generation",
			Description:  "Produce a formatted document",
			Keywords:     []string{"document", "pdf", "docx", "manual", "handbook"},
			Capabilities: []string{"content_writing", "document_generation"},
			OutputFormat: "document",
		},
		{
			Name:         "planning",
			Description:  "Plan a project, schedule or strategy",
			Keywords:     []string{"plan", "roadmap", "schedule", "milestone", "strategy", "timeline"},
			Capabilities: []string{"planning"},
			OutputFormat: "ordered plan",
		},
		{
			Name:         "translation",
			Description:  "Translate text",
			Keywords:     []string{"translate", "translation", "localize", "localise"},
			Capabilities: []string{"translation"},
			OutputFormat: "text",
		},
	}
}

func generalPattern() Pattern {
	return Pattern{
		Name:         GeneralPattern,
		Description:  "General request",
		Capabilities: []string{"general_assistance"},
		OutputFormat: "text",
	}
}
