package llm

import (
	"regexp"
	"strings"
)

// fence matches the first markdown code fence and its optional language tag
var fence = regexp.MustCompile("(?s)```[\\w-]*[ \\t]*\\n?(.*?)```")

// CleanJSONBlock strips markdown fences and conversational text around a
// JSON reply and returns the first complete object or array. Text without
// one is returned trimmed.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if value := balancedPrefix(text[start:]); value != "" {
		return value
	}
	return text
}

// balancedPrefix returns the leading JSON object or array of s, or "" when
// its brackets never close. Brackets inside strings are ignored.
func balancedPrefix(s string) string {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
