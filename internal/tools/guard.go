package tools

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const DefaultMaxResultBytes = 64 * 1024

// Call markup inside a tool result must never reach a later parse as a live
// call, so these spans are masked before results are spliced into text.
var defaultForbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[\s*TOOL_CALL\s*:`),
	regexp.MustCompile(`(?i)\[\s*TOOL_RESULT\s*:`),
	regexp.MustCompile(`(?i)\[\s*TOOL_ERROR\s*:`),
	regexp.MustCompile(`<tool_call>`),
	regexp.MustCompile(`<function_call>`),
	regexp.MustCompile(`"tool_calls"\s*:\s*\[`),
}

// Guard bounds and neutralizes tool output before it is rendered. Timeout
// zero leaves tool calls unbounded.
type Guard struct {
	MaxResultBytes    int
	Timeout           time.Duration
	ForbiddenPatterns []*regexp.Regexp
}

func NewGuard() *Guard {
	return &Guard{
		MaxResultBytes:    DefaultMaxResultBytes,
		ForbiddenPatterns: defaultForbiddenPatterns,
	}
}

func (g *Guard) Sanitize(s string) string {
	if s == "" {
		return s
	}
	if g.MaxResultBytes > 0 && len(s) > g.MaxResultBytes {
		cut := g.MaxResultBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = fmt.Sprintf("%s\n[truncated: result payload cut at %d of %d bytes]", s[:cut], cut, len(s))
	}
	for _, pat := range g.ForbiddenPatterns {
		s = pat.ReplaceAllStringFunc(s, func(match string) string {
			return strings.Repeat("*", len(match))
		})
	}
	return s
}
