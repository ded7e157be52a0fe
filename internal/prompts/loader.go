// Package prompts holds the embedded LLM prompt catalog.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/maniishbhusal/TrustChain/internal/llm"
)

//go:embed skills.json
var catalogFS embed.FS

// Prompt names
const (
	ResumeSkills = "resume-skills"
	GitHubSkills = "github-skills"
	VerifySkills = "verify-skills"
)

// Prompt is one catalog entry. Template placeholders look like {{.Name}}.
type Prompt struct {
	Name     string        `json:"-"`
	Tier     llm.ModelTier `json:"tier"`
	System   string        `json:"system"`
	Template string        `json:"template"`
}

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Placeholders returns the distinct placeholder names in the template, sorted
func (p Prompt) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(p.Template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	sort.Strings(out)
	return out
}

// Render fills every placeholder. A placeholder without a value is an error.
// Substituted values are not re-scanned, so user text containing {{.X}} is left alone.
func (p Prompt) Render(data map[string]string) (string, error) {
	var missing []string
	pairs := make([]string, 0, 2*len(data))
	for _, name := range p.Placeholders() {
		v, ok := data[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		pairs = append(pairs, "{{."+name+"}}", v)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s: missing values for %s", p.Name, strings.Join(missing, ", "))
	}
	return strings.NewReplacer(pairs...).Replace(p.Template), nil
}

var loadCatalog = sync.OnceValues(func() (map[string]Prompt, error) {
	return parseCatalog(catalogFS, "skills.json")
})

func parseCatalog(fsys embed.FS, name string) (map[string]Prompt, error) {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog %s: %w", name, err)
	}
	return decodeCatalog(data)
}

// decodeCatalog parses and checks a catalog: every entry needs a system
// message, a template and a known tier
func decodeCatalog(data []byte) (map[string]Prompt, error) {
	var catalog map[string]Prompt
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}
	for name, p := range catalog {
		switch {
		case strings.TrimSpace(p.System) == "":
			return nil, fmt.Errorf("prompt %s has no system message", name)
		case strings.TrimSpace(p.Template) == "":
			return nil, fmt.Errorf("prompt %s has no template", name)
		}
		switch p.Tier {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		default:
			return nil, fmt.Errorf("prompt %s has unknown tier %q", name, p.Tier)
		}
		p.Name = name
		catalog[name] = p
	}
	return catalog, nil
}

// Lookup returns the named prompt
func Lookup(name string) (Prompt, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return Prompt{}, err
	}
	p, ok := catalog[name]
	if !ok {
		return Prompt{}, fmt.Errorf("prompt %q not found", name)
	}
	return p, nil
}

// Must returns the named prompt and panics when it is missing.
// The catalog is embedded, so a miss is a programming error.
func Must(name string) Prompt {
	p, err := Lookup(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return p
}
