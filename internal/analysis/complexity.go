package analysis

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	// MaxComplexityFiles caps the files parsed for complexity
	MaxComplexityFiles = 200
	// TopComplexFunctions is the length of the most-complex list
	TopComplexFunctions = 10

	anonymousFunction = "<anonymous>"
)

// FunctionComplexity describes one function
type FunctionComplexity struct {
	Name       string `json:"name"`
	File       string `json:"file"`
	Complexity int    `json:"complexity"`
	Lines      int    `json:"lines"`
	Params     int    `json:"params"`
}

// LanguageComplexity aggregates one language
type LanguageComplexity struct {
	Files             int     `json:"files"`
	Functions         int     `json:"functions"`
	AverageComplexity float64 `json:"average_complexity"`
}

// ComplexityReport is the result of AnalyzeComplexity
type ComplexityReport struct {
	Languages            map[string]LanguageComplexity `json:"languages"`
	AverageComplexity    float64                       `json:"average_complexity"`
	AverageFunctionLines float64                       `json:"average_function_lines"`
	TotalFunctions       int                           `json:"total_functions"`
	TopComplex           []FunctionComplexity          `json:"top_complex_functions"`
}

// mean is a (sum, count) accumulator
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

func (m mean) value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

type languageTally struct {
	files      int
	complexity mean
}

// AnalyzeComplexity parses source files with tree-sitter and measures
// per-function cyclomatic complexity, length and arity
func (a *Analyzer) AnalyzeComplexity(ctx context.Context, root string) ComplexityReport {
	files := walkFiles(ctx, root, MaxComplexityFiles, func(path string) bool {
		lang, ok := a.registry.ForFile(path)
		return ok && lang.Grammar() != nil
	})

	parser := sitter.NewParser()
	defer parser.Close()

	tallies := make(map[string]*languageTally)
	var (
		complexity mean
		lines      mean
		all        []FunctionComplexity
	)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		lang, _ := a.registry.ForFile(path)
		fns, err := a.fileFunctions(ctx, parser, lang.Grammar(), path, relPath(root, path))
		if err != nil {
			a.log.Debug().Err(err).Str("file", path).Msg("skipping file in complexity analysis")
			continue
		}

		t := tallies[lang.Name()]
		if t == nil {
			t = &languageTally{}
			tallies[lang.Name()] = t
		}
		t.files++
		for _, fn := range fns {
			t.complexity.add(float64(fn.Complexity))
			complexity.add(float64(fn.Complexity))
			lines.add(float64(fn.Lines))
		}
		all = append(all, fns...)
	}

	report := ComplexityReport{
		Languages:            make(map[string]LanguageComplexity, len(tallies)),
		AverageComplexity:    complexity.value(),
		AverageFunctionLines: lines.value(),
		TotalFunctions:       complexity.count,
		TopComplex:           topComplex(all, TopComplexFunctions),
	}
	for name, t := range tallies {
		report.Languages[name] = LanguageComplexity{
			Files:             t.files,
			Functions:         t.complexity.count,
			AverageComplexity: t.complexity.value(),
		}
	}
	return report
}

// fileFunctions parses one file; a panic inside a grammar is returned as an error
func (a *Analyzer) fileFunctions(ctx context.Context, parser *sitter.Parser, g *Grammar, path, rel string) (fns []FunctionComplexity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	src, err := readSource(path)
	if err != nil {
		return nil, err
	}

	parser.SetLanguage(g.Language())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse: no tree")
	}
	defer tree.Close()

	return collectFunctions(g, tree.RootNode(), src, rel), nil
}

// collectFunctions walks the tree in pre-order. Decision points are charged
// to the innermost enclosing function, so nested functions are measured on their own.
func collectFunctions(g *Grammar, root *sitter.Node, src []byte, file string) []FunctionComplexity {
	var out []FunctionComplexity

	var visit func(n *sitter.Node, owner int)
	visit = func(n *sitter.Node, owner int) {
		if n == nil {
			return
		}
		switch {
		case g.isFunction(n):
			name, params := signature(g, n, src)
			out = append(out, FunctionComplexity{
				Name:       name,
				File:       file,
				Complexity: 1,
				Lines:      int(n.EndPoint().Row-n.StartPoint().Row) + 1,
				Params:     params,
			})
			owner = len(out) - 1
		case owner >= 0 && g.isDecision(n):
			out[owner].Complexity++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), owner)
		}
	}
	visit(root, -1)

	return out
}

func signature(g *Grammar, fn *sitter.Node, src []byte) (string, int) {
	if g.Signature != nil {
		return g.Signature(fn, src)
	}
	name := fieldName(fn, src)
	if params := fn.ChildByFieldName("parameters"); params != nil {
		return name, countParams(params)
	}
	// single bare arrow-function parameter: x => x * 2
	if fn.ChildByFieldName("parameter") != nil {
		return name, 1
	}
	return name, 0
}

// fieldName reads the "name" field, falling back to the variable an
// anonymous function is assigned to
func fieldName(fn *sitter.Node, src []byte) string {
	if n := fn.ChildByFieldName("name"); n != nil {
		return n.Content(src)
	}
	if p := fn.Parent(); p != nil && p.Type() == "variable_declarator" {
		if n := p.ChildByFieldName("name"); n != nil {
			return n.Content(src)
		}
	}
	return anonymousFunction
}

func countParams(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if params.NamedChild(i).Type() != "comment" {
			count++
		}
	}
	return count
}

// topComplex returns the n most complex functions; equal complexity keeps encounter order
func topComplex(fns []FunctionComplexity, n int) []FunctionComplexity {
	sorted := append([]FunctionComplexity(nil), fns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Complexity > sorted[j].Complexity
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []FunctionComplexity{}
	}
	return sorted
}
