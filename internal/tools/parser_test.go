package tools

import (
	"reflect"
	"testing"
)

func TestParsePlainText(t *testing.T) {
	text := "plain text, no markup"
	if calls := ParseToolCalls(text); len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
	segs := Parse(text)
	if len(segs) != 1 || segs[0].Kind != SegmentText || segs[0].Text != text {
		t.Errorf("segments = %+v", segs)
	}
}

func TestParseSingleCall(t *testing.T) {
	text := "[TOOL_CALL: listFiles({})]"
	calls := ParseToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	c := calls[0]
	if c.Tool != "listFiles" {
		t.Errorf("Tool = %q", c.Tool)
	}
	if c.Params == nil || len(c.Params) != 0 {
		t.Errorf("Params = %v, want empty map", c.Params)
	}
	if c.Raw != text {
		t.Errorf("Raw = %q", c.Raw)
	}
}

func TestParseMalformedJSONIsDropped(t *testing.T) {
	text := "[TOOL_CALL: foo({bad json})]"
	if calls := ParseToolCalls(text); len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
	segs := Parse(text)
	if len(segs) != 1 || segs[0].Kind != SegmentText || segs[0].Text != text {
		t.Errorf("malformed call should stay as text, got %+v", segs)
	}
}

func TestParseMalformedReported(t *testing.T) {
	var reported []string
	parse("a [TOOL_CALL: foo({bad})] b", func(raw string, err error) {
		reported = append(reported, raw)
	})
	if !reflect.DeepEqual(reported, []string{"[TOOL_CALL: foo({bad})]"}) {
		t.Errorf("reported = %v", reported)
	}
}

func TestParseBracesInsideStrings(t *testing.T) {
	text := `[TOOL_CALL: writeFile({"path": "a.txt", "content": "}{ \" ])"})]`
	calls := ParseToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if got := calls[0].Params["content"]; got != `}{ " ])` {
		t.Errorf("content = %q", got)
	}
}

func TestParseNestedParams(t *testing.T) {
	calls := ParseToolCalls(`[TOOL_CALL: analyzeData({"data": "[]", "opts": {"deep": {"x": 1}}})]`)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	opts, ok := calls[0].Params["opts"].(map[string]any)
	if !ok {
		t.Fatalf("opts = %#v", calls[0].Params["opts"])
	}
	if _, ok := opts["deep"].(map[string]any); !ok {
		t.Errorf("deep = %#v", opts["deep"])
	}
}

func TestParseSegmentsInOrder(t *testing.T) {
	text := `Intro [TOOL_CALL: readFile({"path": "a"})] middle [TOOL_CALL: listFiles({})] end`
	segs := Parse(text)
	kinds := make([]SegmentKind, len(segs))
	for i, s := range segs {
		kinds[i] = s.Kind
	}
	want := []SegmentKind{SegmentText, SegmentCall, SegmentText, SegmentCall, SegmentText}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if segs[0].Text != "Intro " || segs[2].Text != " middle " || segs[4].Text != " end" {
		t.Errorf("text segments = %q %q %q", segs[0].Text, segs[2].Text, segs[4].Text)
	}
	if segs[1].Call.Tool != "readFile" || segs[3].Call.Tool != "listFiles" {
		t.Errorf("calls = %s, %s", segs[1].Call.Tool, segs[3].Call.Tool)
	}
}

func TestParseLenientSpacingAndEmptyArgs(t *testing.T) {
	tests := []struct {
		name string
		text string
		tool string
	}{
		{"spaces", "[TOOL_CALL:  listFiles ( { } ) ]", "listFiles"},
		{"newlines", "[TOOL_CALL: readFile(\n{\"path\": \"x\"}\n)]", "readFile"},
		{"empty parens", "[TOOL_CALL: listFiles()]", "listFiles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := ParseToolCalls(tt.text)
			if len(calls) != 1 || calls[0].Tool != tt.tool {
				t.Fatalf("calls = %+v", calls)
			}
			if calls[0].Params == nil {
				t.Error("Params should never be nil")
			}
		})
	}
}

func TestParseIncompleteMarkup(t *testing.T) {
	for _, text := range []string{
		"[TOOL_CALL: ",
		"[TOOL_CALL: listFiles(",
		`[TOOL_CALL: listFiles({"a": 1}`,
		`[TOOL_CALL: listFiles({"a": 1})`,
		"[TOOL_CALL: ({})]",
		"[TOOL_CALL: listFiles [1]]",
	} {
		if calls := ParseToolCalls(text); len(calls) != 0 {
			t.Errorf("%q: calls = %v, want none", text, calls)
		}
		segs := Parse(text)
		if len(segs) != 1 || segs[0].Text != text {
			t.Errorf("%q: segments = %+v", text, segs)
		}
	}
}

func TestParseRecoversAfterBrokenMarkup(t *testing.T) {
	calls := ParseToolCalls(`[TOOL_CALL: broken( then [TOOL_CALL: listFiles({})]`)
	if len(calls) != 1 || calls[0].Tool != "listFiles" {
		t.Fatalf("calls = %+v", calls)
	}
}
