package router

type Intent string

const (
	IntentResearch        Intent = "research"
	IntentAnalysis        Intent = "analysis"
	IntentContentCreation Intent = "content_creation"
	IntentSummarization   Intent = "summarization"
	IntentCode            Intent = "code"
	IntentDocumentation   Intent = "documentation"
	IntentPlanning        Intent = "planning"
	IntentTranslation     Intent = "translation"
	IntentGeneral         Intent = "general"
)

// WorkflowStep is one entry of a canned workflow: the agent role to invoke
// and the instruction fragment to hand it.
type WorkflowStep struct {
	Role   string `yaml:"role" json:"role"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Category describes one intent: the keywords that vote for it, the agent
// roles it recommends and a reference workflow.
type Category struct {
	Intent            Intent         `yaml:"intent" json:"intent"`
	Description       string         `yaml:"description" json:"description"`
	Keywords          []string       `yaml:"keywords" json:"keywords"`
	RecommendedAgents []string       `yaml:"recommended_agents" json:"recommendedAgents"`
	Workflow          []WorkflowStep `yaml:"workflow" json:"workflow"`
}

// DefaultCategories returns the built-in categories. Declaration order breaks
// score ties.
func DefaultCategories() []Category {
	return []Category{
		{
			Intent:            IntentResearch,
			Description:       "Gather and synthesize information on a topic",
			Keywords:          []string{"research", "investigate", "find out", "look up", "sources", "study", "explore"},
			RecommendedAgents: []string{"researcher", "analyst", "writer"},
			Workflow: []WorkflowStep{
				{Role: "researcher", Prompt: "Collect the key facts and sources on the topic."},
				{Role: "analyst", Prompt: "Assess the findings and identify the main insights."},
				{Role: "writer", Prompt: "Write up the insights as a coherent brief."},
			},
		},
		{
			Intent:            IntentAnalysis,
			Description:       "Analyze data, compare options or evaluate results",
			Keywords:          []string{"analyze", "analyse", "analysis", "data", "statistics", "trend", "compare", "metrics", "evaluate"},
			RecommendedAgents: []string{"analyst", "writer"},
			Workflow: []WorkflowStep{
				{Role: "analyst", Prompt: "Analyze the material and quantify what you can."},
				{Role: "writer", Prompt: "Explain the analysis and its conclusions plainly."},
			},
		},
		{
			Intent:            IntentContentCreation,
			Description:       "Create original written content",
			Keywords:          []string{"write", "draft", "blog", "article", "essay", "story", "compose", "create"},
			RecommendedAgents: []string{"researcher", "writer", "reviewer"},
			Workflow: []WorkflowStep{
				{Role: "researcher", Prompt: "Gather background material for the piece."},
				{Role: "writer", Prompt: "Draft the piece from the background material."},
				{Role: "reviewer", Prompt: "Review and polish the draft."},
			},
		},
		{
			Intent:            IntentSummarization,
			Description:       "Condense material into its essential points",
			Keywords:          []string{"summarize", "summarise", "summary", "tl;dr", "key points", "highlights", "extract", "condense", "brief"},
			RecommendedAgents: []string{"summarizer", "reviewer"},
			Workflow: []WorkflowStep{
				{Role: "summarizer", Prompt: "Extract the key points and highlights."},
				{Role: "reviewer", Prompt: "Check the summary against the source for omissions."},
			},
		},
		{
			Intent:            IntentCode,
			Description:       "Write, explain or debug code",
			Keywords:          []string{"code", "program", "function", "debug", "bug", "script", "implement", "refactor"},
			RecommendedAgents: []string{"engineer", "reviewer"},
			Workflow: []WorkflowStep{
				{Role: "engineer", Prompt: "Implement or fix the code."},
				{Role: "reviewer", Prompt: "Review the code for defects and clarity."},
			},
		},
		{
			Intent:            IntentDocumentation,
			Description:       "Produce a structured document or report",
			Keywords:          []string{"document", "report", "manual", "guide", "pdf", "docx"},
			RecommendedAgents: []string{"writer", "technical writer"},
			Workflow: []WorkflowStep{
				{Role: "writer", Prompt: "Draft the content of the document."},
				{Role: "technical writer", Prompt: "Structure the draft into a finished document."},
			},
		},
		{
			Intent:            IntentPlanning,
			Description:       "Plan work, schedules or strategy",
			Keywords:          []string{"plan", "roadmap", "schedule", "milestone", "timeline", "strategy"},
			RecommendedAgents: []string{"planner", "reviewer"},
			Workflow: []WorkflowStep{
				{Role: "planner", Prompt: "Lay out the plan as ordered, actionable steps."},
				{Role: "reviewer", Prompt: "Check the plan for gaps and risks."},
			},
		},
		{
			Intent:            IntentTranslation,
			Description:       "Translate text between languages",
			Keywords:          []string{"translate", "translation", "french", "spanish", "german", "localize"},
			RecommendedAgents: []string{"translator", "reviewer"},
			Workflow: []WorkflowStep{
				{Role: "translator", Prompt: "Translate the text faithfully."},
				{Role: "reviewer", Prompt: "Proofread the translation."},
			},
		},
	}
}

func generalCategory() Category {
	return Category{
		Intent:            IntentGeneral,
		Description:       "General assistance",
		RecommendedAgents: []string{"assistant"},
		Workflow: []WorkflowStep{
			{Role: "assistant", Prompt: "Answer the request directly and helpfully."},
		},
	}
}
