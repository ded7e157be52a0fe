package github

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/maniishbhusal/TrustChain/internal/fetch"
)

// ReadmeSnippet renders README markdown, strips it to prose and truncates
// to n runes. Rendering failures fall back to the raw text.
func ReadmeSnippet(markdown string, n int) string {
	if strings.TrimSpace(markdown) == "" || n <= 0 {
		return ""
	}

	text := markdown
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err == nil {
		if plain, err := fetch.Prose(buf.String()); err == nil {
			text = plain
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > n {
		return string(runes[:n])
	}
	return text
}
