package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Contract pins a reply to a JSON object with a fixed set of keys
type Contract struct {
	Name   string
	Fields []Field
}

// Field is one key of a Contract
type Field struct {
	Name        string
	Type        string // hint shown to the model; empty means string
	Description string
}

// Append writes the key list after a rendered task prompt
func (c Contract) Append(task string) string {
	var sb strings.Builder
	if task = strings.TrimSpace(task); task != "" {
		sb.WriteString(task)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return a JSON object with exactly these keys:\n")
	for _, f := range c.Fields {
		hint := f.Type
		if hint == "" {
			hint = "string"
		}
		fmt.Fprintf(&sb, "- %s (%s)", f.Name, hint)
		if f.Description != "" {
			sb.WriteString(": " + f.Description)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\nReturn ONLY the JSON object, no markdown, no code blocks.\n")
	return sb.String()
}

// Missing lists the contract keys absent from a reply, in declaration order.
// The reply may be wrapped in a markdown fence.
func (c Contract) Missing(reply string) ([]string, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal([]byte(CleanJSONBlock(reply)), &object); err != nil {
		return nil, fmt.Errorf("%s reply is not a JSON object: %w", c.Name, err)
	}
	var missing []string
	for _, f := range c.Fields {
		if _, ok := object[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing, nil
}
