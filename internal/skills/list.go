package skills

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maniishbhusal/TrustChain/internal/llm"
	"github.com/maniishbhusal/TrustChain/internal/schemas"
)

// ParseList decodes an LLM reply that should be a JSON array of skill names.
// Fences are stripped, non-string elements skipped, blanks dropped. A reply
// that is not an array is an error.
func ParseList(reply string) ([]string, error) {
	cleaned := llm.CleanJSONBlock(reply)
	if err := schemas.Validate(schemas.SkillList, cleaned); err != nil {
		return nil, fmt.Errorf("skill list rejected: %w", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("failed to decode skill list: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// dedupeFold removes case-insensitive duplicates, keeping the first spelling
func dedupeFold(items []string) []string {
	fold := newFolder()
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := fold(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
