package tools

import (
	"encoding/json"
	"strings"
)

const (
	callPrefix   = "[TOOL_CALL:"
	resultPrefix = "[TOOL_RESULT: "
	errorPrefix  = "[TOOL_ERROR: "
)

type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCall
)

// Segment is either a run of plain text or one tool call.
type Segment struct {
	Kind SegmentKind
	Text string
	Call *Call
}

// Parse splits text into plain-text and tool-call segments. Markup that does
// not form a complete call, or whose parameters are not a JSON object, stays
// in the surrounding text.
func Parse(text string) []Segment {
	return parse(text, nil)
}

// ParseToolCalls returns the well-formed calls in text, in order.
func ParseToolCalls(text string) []Call {
	var calls []Call
	for _, seg := range Parse(text) {
		if seg.Kind == SegmentCall {
			calls = append(calls, *seg.Call)
		}
	}
	return calls
}

func parse(text string, onMalformed func(raw string, err error)) []Segment {
	var segs []Segment
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			segs = append(segs, Segment{Kind: SegmentText, Text: pending.String()})
			pending.Reset()
		}
	}

	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], callPrefix)
		if idx < 0 {
			pending.WriteString(text[pos:])
			break
		}
		start := pos + idx
		pending.WriteString(text[pos:start])

		name, blob, end, ok := scanCall(text, start)
		if !ok {
			pending.WriteString(callPrefix)
			pos = start + len(callPrefix)
			continue
		}
		raw := text[start:end]
		params := map[string]any{}
		if blob != "" {
			if err := json.Unmarshal([]byte(blob), &params); err != nil {
				if onMalformed != nil {
					onMalformed(raw, err)
				}
				pending.WriteString(raw)
				pos = end
				continue
			}
		}
		flush()
		segs = append(segs, Segment{Kind: SegmentCall, Call: &Call{Tool: name, Params: params, Raw: raw}})
		pos = end
	}
	flush()
	return segs
}

// scanCall reads `[TOOL_CALL: name({...})]` starting at start. blob is the
// brace-delimited parameter text, empty for `name()`.
func scanCall(text string, start int) (name, blob string, end int, ok bool) {
	i := skipSpace(text, start+len(callPrefix))

	nameStart := i
	for i < len(text) && isNameByte(text[i]) {
		i++
	}
	if i == nameStart {
		return "", "", 0, false
	}
	name = text[nameStart:i]

	i = skipSpace(text, i)
	if i >= len(text) || text[i] != '(' {
		return "", "", 0, false
	}
	i = skipSpace(text, i+1)

	if i < len(text) && text[i] == '{' {
		closing, found := matchBrace(text, i)
		if !found {
			return "", "", 0, false
		}
		blob = text[i : closing+1]
		i = skipSpace(text, closing+1)
	}

	if i >= len(text) || text[i] != ')' {
		return "", "", 0, false
	}
	i = skipSpace(text, i+1)
	if i >= len(text) || text[i] != ']' {
		return "", "", 0, false
	}
	return name, blob, i + 1, true
}

// matchBrace returns the index of the brace closing the one at open,
// ignoring braces inside JSON strings.
func matchBrace(text string, open int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func skipSpace(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}
	return i
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
