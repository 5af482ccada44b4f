package openai

import "strings"

// scrubString removes control characters that some OpenAI-compatible servers
// reject, keeping newlines and tabs, and trims surrounding whitespace.
func scrubString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
