package router

import (
	"strings"
)

const (
	generalConfidence = 0.5
	confidencePerHit  = 0.3
	maxConfidence     = 0.95
)

// Classification is the outcome of Classify.
type Classification struct {
	Intent            Intent         `json:"intent"`
	Confidence        float64        `json:"confidence"`
	Description       string         `json:"description"`
	RecommendedAgents []string       `json:"recommendedAgents"`
	Scores            map[Intent]int `json:"scores"`
}

// Classifier maps free text to an intent by keyword scoring.
type Classifier struct {
	categories []Category
	general    Category
}

// NewClassifier builds a classifier over the given categories, or over
// DefaultCategories when none are given.
func NewClassifier(categories ...Category) *Classifier {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	cats := make([]Category, len(categories))
	for i, c := range categories {
		kws := make([]string, len(c.Keywords))
		for j, kw := range c.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		c.Keywords = kws
		cats[i] = c
	}
	return &Classifier{categories: cats, general: generalCategory()}
}

// Classify counts keyword hits per category and selects the category with the
// strictly highest count; the first declared category wins a tie. Text with
// no hits is classified as general with a fixed confidence.
func (c *Classifier) Classify(text string) Classification {
	lower := strings.ToLower(text)
	scores := make(map[Intent]int, len(c.categories))

	best := -1
	bestScore := 0
	for i, cat := range c.categories {
		score := countHits(lower, cat.Keywords)
		scores[cat.Intent] = score
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return Classification{
			Intent:            c.general.Intent,
			Confidence:        generalConfidence,
			Description:       c.general.Description,
			RecommendedAgents: c.general.RecommendedAgents,
			Scores:            scores,
		}
	}

	cat := c.categories[best]
	return Classification{
		Intent:            cat.Intent,
		Confidence:        min(float64(bestScore)*confidencePerHit, maxConfidence),
		Description:       cat.Description,
		RecommendedAgents: cat.RecommendedAgents,
		Scores:            scores,
	}
}

// Workflow returns the canned workflow for intent. Unknown intents get the
// general workflow.
func (c *Classifier) Workflow(intent Intent) []WorkflowStep {
	for _, cat := range c.categories {
		if cat.Intent == intent {
			return append([]WorkflowStep(nil), cat.Workflow...)
		}
	}
	return append([]WorkflowStep(nil), c.general.Workflow...)
}

// Categories returns the configured categories in declaration order.
func (c *Classifier) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
