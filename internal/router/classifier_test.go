package router

import (
	"math"
	"strings"
	"testing"
)

func TestClassifySummarizationSentence(t *testing.T) {
	c := NewClassifier()
	text := "Please summarize this document and extract key highlights"

	// Exact keyword hits against DefaultCategories for this input:
	//   summarization: "summarize", "extract", "highlights" -> 3
	//   documentation: "document"                          -> 1
	//   every other category                               -> 0
	want := map[Intent]int{
		IntentSummarization: 3,
		IntentDocumentation: 1,
	}
	got := c.Classify(text)
	for _, cat := range c.Categories() {
		if got.Scores[cat.Intent] != want[cat.Intent] {
			t.Errorf("score[%s] = %d, want %d", cat.Intent, got.Scores[cat.Intent], want[cat.Intent])
		}
	}
	if got.Intent != IntentSummarization {
		t.Fatalf("Intent = %q, want summarization", got.Intent)
	}
	if math.Abs(got.Confidence-0.9) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}

	again := c.Classify(text)
	if again.Intent != got.Intent || again.Confidence != got.Confidence {
		t.Error("classification should be deterministic")
	}
}

func TestClassifyGeneralFallback(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("hello there")
	if got.Intent != IntentGeneral {
		t.Errorf("Intent = %q, want general", got.Intent)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

func TestClassifyTieKeepsDeclarationOrder(t *testing.T) {
	c := NewClassifier(
		Category{Intent: "first", Keywords: []string{"alpha"}},
		Category{Intent: "second", Keywords: []string{"beta"}},
	)
	if got := c.Classify("beta alpha"); got.Intent != "first" {
		t.Errorf("Intent = %q, want first on a tie", got.Intent)
	}
}

func TestClassifyConfidenceCapped(t *testing.T) {
	c := NewClassifier(Category{Intent: "many", Keywords: []string{"a1", "a2", "a3", "a4", "a5"}})
	got := c.Classify("a1 a2 a3 a4 a5")
	if got.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95 cap", got.Confidence)
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("TRANSLATE this into FRENCH"); got.Intent != IntentTranslation {
		t.Errorf("Intent = %q, want translation", got.Intent)
	}
}

func TestWorkflow(t *testing.T) {
	c := NewClassifier()
	wf := c.Workflow(IntentResearch)
	if len(wf) != 3 || wf[0].Role != "researcher" {
		t.Errorf("research workflow = %+v", wf)
	}
	general := c.Workflow("unknown")
	if len(general) != 1 || !strings.Contains(general[0].Prompt, "Answer") {
		t.Errorf("fallback workflow = %+v", general)
	}

	wf[0].Role = "mutated"
	if c.Workflow(IntentResearch)[0].Role != "researcher" {
		t.Error("Workflow must return a copy")
	}
}

func TestDefaultCategoriesHaveWorkflows(t *testing.T) {
	for _, cat := range DefaultCategories() {
		if len(cat.Keywords) == 0 || len(cat.Workflow) == 0 {
			t.Errorf("category %s missing keywords or workflow", cat.Intent)
		}
	}
}
