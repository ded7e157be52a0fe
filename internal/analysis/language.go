// Package analysis runs shallow static analysis over a cloned repository:
// library usage, function-level cyclomatic complexity and coding-practice
// patterns. Per-language behavior lives in Language strategies held by a Registry.
package analysis

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language is a per-language analysis strategy
type Language interface {
	// Name is the display name used in reports
	Name() string
	// Extensions lists lower-case file extensions including the dot
	Extensions() []string
	// Imports returns the root module names imported on one source line,
	// with relative imports and standard-library roots removed
	Imports(line string) []string
	// DeclaresClass reports whether src declares a class or equivalent type
	DeclaresClass(src string) bool
	// UsesFunctional reports whether src uses functional idioms
	UsesFunctional(src string) bool
	// IsTestFile reports whether a base file name follows the language's test convention
	IsTestFile(name string) bool
	// Grammar returns the tree-sitter grammar, or nil when complexity is unsupported
	Grammar() *Grammar
}

// Grammar describes the tree-sitter node types that matter for complexity
type Grammar struct {
	Language func() *sitter.Language
	// Named node types that start a function
	Functions []string
	// Named node types that add a decision point
	Decisions []string
	// Anonymous operator tokens that add a decision point (&&, ||, and, or)
	Operators []string
	// Signature overrides name and parameter extraction; nil means the
	// "name" and "parameters" fields are used
	Signature func(fn *sitter.Node, src []byte) (name string, params int)

	functions map[string]bool
	decisions map[string]bool
	operators map[string]bool
}

func (g *Grammar) index() {
	g.functions = toSet(g.Functions)
	g.decisions = toSet(g.Decisions)
	g.operators = toSet(g.Operators)
}

func (g *Grammar) isFunction(n *sitter.Node) bool {
	return n.IsNamed() && g.functions[n.Type()]
}

func (g *Grammar) isDecision(n *sitter.Node) bool {
	if n.IsNamed() {
		return g.decisions[n.Type()]
	}
	return g.operators[n.Type()]
}

// regexLanguage is the shared Language implementation; each strategy is a configured instance
type regexLanguage struct {
	name       string
	extensions []string
	imports    []*regexp.Regexp
	lists      bool // import captures may name several modules
	root       func(raw string) string
	stdlib     map[string]bool
	classes    []*regexp.Regexp
	functional []*regexp.Regexp
	tests      *regexp.Regexp
	grammar    *Grammar
}

func (l *regexLanguage) Name() string         { return l.name }
func (l *regexLanguage) Extensions() []string { return l.extensions }
func (l *regexLanguage) Grammar() *Grammar    { return l.grammar }

func (l *regexLanguage) Imports(line string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range l.imports {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if len(m) < 2 {
				continue
			}
			for _, raw := range l.specifiers(m[1]) {
				if raw == "" || strings.HasPrefix(raw, ".") || strings.HasPrefix(raw, "/") {
					continue
				}
				root := raw
				if l.root != nil {
					root = l.root(raw)
				}
				if root == "" || seen[root] || l.stdlib[strings.ToLower(root)] {
					continue
				}
				seen[root] = true
				out = append(out, root)
			}
		}
	}
	return out
}

// specifiers splits a captured import into module names. With lists set
// the capture is a comma list whose entries may carry an "as" alias.
func (l *regexLanguage) specifiers(capture string) []string {
	if !l.lists {
		return []string{strings.TrimSpace(capture)}
	}
	var out []string
	for _, part := range strings.Split(capture, ",") {
		if f := strings.Fields(part); len(f) > 0 {
			out = append(out, f[0])
		}
	}
	return out
}

func (l *regexLanguage) DeclaresClass(src string) bool {
	return anyMatch(l.classes, src)
}

func (l *regexLanguage) UsesFunctional(src string) bool {
	return anyMatch(l.functional, src)
}

func (l *regexLanguage) IsTestFile(name string) bool {
	return l.tests != nil && l.tests.MatchString(name)
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Registry maps file extensions to strategies
type Registry struct {
	byExt map[string]Language
	langs []Language
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Language)}
}

// DefaultRegistry holds every built-in strategy
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, l := range builtinLanguages() {
		r.Register(l)
	}
	return r
}

// Register adds a strategy; later registrations win for shared extensions
func (r *Registry) Register(l Language) {
	if g := l.Grammar(); g != nil && g.functions == nil {
		g.index()
	}
	r.langs = append(r.langs, l)
	for _, ext := range l.Extensions() {
		r.byExt[strings.ToLower(ext)] = l
	}
}

// ForFile returns the strategy for a path, if any
func (r *Registry) ForFile(path string) (Language, bool) {
	l, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// Languages returns the registered strategies in registration order
func (r *Registry) Languages() []Language {
	return append([]Language(nil), r.langs...)
}

// Extensions returns every registered extension, sorted
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
