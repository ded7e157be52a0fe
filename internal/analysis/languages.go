package analysis

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func builtinLanguages() []Language {
	return []Language{
		Python(),
		JavaScript(),
		TypeScript(),
		TSX(),
		Go(),
		Java(),
		Ruby(),
		Rust(),
		PHP(),
		CSharp(),
		C(),
		CPP(),
	}
}

// firstSegment returns the part of raw before the first sep
func firstSegment(sep string) func(string) string {
	return func(raw string) string {
		if i := strings.Index(raw, sep); i >= 0 {
			return raw[:i]
		}
		return raw
	}
}

var pythonStdlib = []string{
	"abc", "argparse", "asyncio", "base64", "collections", "contextlib", "copy", "csv",
	"dataclasses", "datetime", "decimal", "enum", "functools", "glob", "hashlib", "heapq",
	"http", "io", "itertools", "json", "logging", "math", "multiprocessing", "os", "pathlib",
	"pickle", "random", "re", "shutil", "socket", "sqlite3", "string", "subprocess", "sys",
	"tempfile", "threading", "time", "traceback", "typing", "unittest", "urllib", "uuid",
	"warnings", "__future__",
}

// Python strategy
func Python() Language {
	return &regexLanguage{
		name:       "Python",
		extensions: []string{".py"},
		imports: compile(
			`^\s*import\s+([\w\.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w\.]+(?:\s+as\s+\w+)?)*)`,
			`^\s*from\s+([\w\.]+)\s+import\b`,
		),
		lists:   true,
		root:    firstSegment("."),
		stdlib:  toSet(pythonStdlib),
		classes: compile(`(?m)^\s*class\s+\w+`),
		functional: compile(
			`\blambda\b`,
			`\b(map|filter|reduce)\s*\(`,
			`\[[^\]\n]+\bfor\b[^\]\n]+\bin\b[^\]\n]+\]`,
		),
		tests: regexp.MustCompile(`^(test_.*|.*_test)\.py$`),
		grammar: &Grammar{
			Language:  python.GetLanguage,
			Functions: []string{"function_definition"},
			Decisions: []string{
				"if_statement", "elif_clause", "for_statement", "while_statement",
				"except_clause", "conditional_expression", "case_clause",
			},
			Operators: []string{"and", "or"},
		},
	}
}

var nodeBuiltins = []string{
	"assert", "buffer", "child_process", "crypto", "events", "fs", "http", "https", "net",
	"os", "path", "process", "querystring", "stream", "url", "util", "zlib",
}

// jsRoot keeps npm scopes (@scope/pkg) and drops subpaths and node: builtins
func jsRoot(raw string) string {
	if strings.HasPrefix(raw, "node:") {
		return ""
	}
	parts := strings.Split(raw, "/")
	if strings.HasPrefix(raw, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

var (
	jsImports = []string{
		`\bimport\s+(?:[\w*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`,
		`\brequire\(\s*['"]([^'"]+)['"]\s*\)`,
	}
	jsClasses    = []string{`(?m)^\s*(export\s+)?(default\s+)?(abstract\s+)?class\s+\w+`}
	jsFunctional = []string{
		`\.(map|filter|reduce|flatMap)\(`,
		`=>`,
	}
	jsDecisions = []string{
		"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression",
	}
	jsFunctions = []string{
		"function_declaration", "function", "function_expression",
		"generator_function_declaration", "arrow_function", "method_definition",
	}
)

func jsGrammar(lang func() *sitter.Language) *Grammar {
	return &Grammar{
		Language:  lang,
		Functions: jsFunctions,
		Decisions: jsDecisions,
		Operators: []string{"&&", "||", "??"},
	}
}

// JavaScript strategy
func JavaScript() Language {
	return &regexLanguage{
		name:       "JavaScript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		imports:    compile(jsImports...),
		root:       jsRoot,
		stdlib:     toSet(nodeBuiltins),
		classes:    compile(jsClasses...),
		functional: compile(jsFunctional...),
		tests:      regexp.MustCompile(`\.(test|spec)\.(js|jsx|mjs|cjs)$`),
		grammar:    jsGrammar(javascript.GetLanguage),
	}
}

// TypeScript strategy for .ts files
func TypeScript() Language {
	return &regexLanguage{
		name:       "TypeScript",
		extensions: []string{".ts", ".mts", ".cts"},
		imports:    compile(jsImports...),
		root:       jsRoot,
		stdlib:     toSet(nodeBuiltins),
		classes:    compile(append(jsClasses, `(?m)^\s*(export\s+)?interface\s+\w+`)...),
		functional: compile(jsFunctional...),
		tests:      regexp.MustCompile(`\.(test|spec)\.(ts|mts|cts)$`),
		grammar:    jsGrammar(typescript.GetLanguage),
	}
}

// TSX strategy; reported as TypeScript but parsed with the tsx grammar
func TSX() Language {
	return &regexLanguage{
		name:       "TypeScript",
		extensions: []string{".tsx"},
		imports:    compile(jsImports...),
		root:       jsRoot,
		stdlib:     toSet(nodeBuiltins),
		classes:    compile(jsClasses...),
		functional: compile(jsFunctional...),
		tests:      regexp.MustCompile(`\.(test|spec)\.tsx$`),
		grammar:    jsGrammar(tsx.GetLanguage),
	}
}

// goRoot trims a Go import path to its module root; standard library paths have no dot in the first element
func goRoot(raw string) string {
	parts := strings.Split(raw, "/")
	if !strings.Contains(parts[0], ".") {
		return ""
	}
	n := 2
	switch {
	case parts[0] == "github.com", parts[0] == "gitlab.com", parts[0] == "bitbucket.org":
		n = 3
	case parts[0] == "golang.org" && len(parts) > 1 && parts[1] == "x":
		n = 3
	}
	if len(parts) < n {
		n = len(parts)
	}
	return strings.Join(parts[:n], "/")
}

// goSignature counts every name in grouped parameter declarations (a, b int)
func goSignature(fn *sitter.Node, src []byte) (string, int) {
	name := fieldName(fn, src)
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return name, 0
	}
	count := 0
	for i := 0; i < int(params.NamedChildCount()); i++ {
		decl := params.NamedChild(i)
		names := 0
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			if decl.NamedChild(j).Type() == "identifier" {
				names++
			}
		}
		if names == 0 {
			names = 1
		}
		count += names
	}
	return name, count
}

// Go strategy
func Go() Language {
	return &regexLanguage{
		name:       "Go",
		extensions: []string{".go"},
		imports: compile(
			`^\s*import\s+(?:[\w\.]+\s+)?"([^"]+)"`,
			`^\s*(?:[\w\.]+\s+)?"([^"]+)"\s*$`,
		),
		root:       goRoot,
		classes:    compile(`(?m)^type\s+\w+\s+struct\b`, `(?m)^func\s+\([^)]+\)\s*\w+`),
		functional: compile(`\bfunc\(`),
		tests:      regexp.MustCompile(`_test\.go$`),
		grammar: &Grammar{
			Language:  golang.GetLanguage,
			Functions: []string{"function_declaration", "method_declaration", "func_literal"},
			Decisions: []string{
				"if_statement", "for_statement", "expression_case", "type_case", "communication_case",
			},
			Operators: []string{"&&", "||"},
			Signature: goSignature,
		},
	}
}

// Java strategy
func Java() Language {
	return &regexLanguage{
		name:       "Java",
		extensions: []string{".java"},
		imports:    compile(`^\s*import\s+(?:static\s+)?([\w\.]+)`),
		root: func(raw string) string {
			parts := strings.Split(raw, ".")
			if parts[0] == "java" || parts[0] == "javax" {
				return ""
			}
			if len(parts) > 2 {
				parts = parts[:2]
			}
			return strings.Join(parts, ".")
		},
		classes:    compile(`\b(class|interface|enum|record)\s+\w+`),
		functional: compile(`->`, `\.stream\(\)`, `::\w+`),
		tests:      regexp.MustCompile(`(Test|Tests|IT)\.java$`),
		grammar: &Grammar{
			Language:  java.GetLanguage,
			Functions: []string{"method_declaration", "constructor_declaration", "lambda_expression"},
			Decisions: []string{
				"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
				"do_statement", "switch_label", "catch_clause", "ternary_expression",
			},
			Operators: []string{"&&", "||"},
		},
	}
}

var rubyStdlib = []string{
	"benchmark", "date", "digest", "erb", "fileutils", "json", "logger", "net", "open3",
	"optparse", "pathname", "securerandom", "set", "socket", "stringio", "tempfile",
	"time", "uri", "yaml",
}

// Ruby strategy
func Ruby() Language {
	return &regexLanguage{
		name:       "Ruby",
		extensions: []string{".rb"},
		imports:    compile(`^\s*require\s+['"]([^'"]+)['"]`),
		root:       firstSegment("/"),
		stdlib:     toSet(rubyStdlib),
		classes:    compile(`(?m)^\s*(class|module)\s+[A-Z]\w*`),
		functional: compile(`\.(map|select|reject|reduce|inject|each_with_object)\s*(\{|do\b)`, `->\s*\(?`, `\blambda\b`),
		tests:      regexp.MustCompile(`(_spec|_test)\.rb$|^test_.*\.rb$`),
		grammar: &Grammar{
			Language:  ruby.GetLanguage,
			Functions: []string{"method", "singleton_method"},
			Decisions: []string{
				"if", "elsif", "unless", "while", "until", "for", "when", "rescue",
				"conditional", "if_modifier", "unless_modifier", "while_modifier", "until_modifier",
			},
			Operators: []string{"&&", "||", "and", "or"},
		},
	}
}

// Rust strategy
func Rust() Language {
	return &regexLanguage{
		name:       "Rust",
		extensions: []string{".rs"},
		imports: compile(
			`^\s*(?:pub\s+)?use\s+([\w:]+)`,
			`^\s*extern\s+crate\s+(\w+)`,
		),
		root:       firstSegment("::"),
		stdlib:     toSet([]string{"std", "core", "alloc", "crate", "self", "super"}),
		classes:    compile(`(?m)^\s*(pub\s+)?(struct|trait|enum)\s+\w+`, `(?m)^\s*impl\b`),
		functional: compile(`\.(map|filter|fold|and_then|filter_map)\(`, `\|[^|\n]*\|\s*[^|\s]`),
		tests:      regexp.MustCompile(`(_test|_tests)\.rs$`),
		grammar: &Grammar{
			Language:  rust.GetLanguage,
			Functions: []string{"function_item", "closure_expression"},
			Decisions: []string{
				"if_expression", "if_let_expression", "while_expression", "while_let_expression",
				"for_expression", "match_arm",
			},
			Operators: []string{"&&", "||"},
		},
	}
}

// PHP strategy
func PHP() Language {
	return &regexLanguage{
		name:       "PHP",
		extensions: []string{".php"},
		imports:    compile(`^\s*use\s+\\?([\w\\]+)`),
		root:       firstSegment(`\`),
		classes:    compile(`\b(class|interface|trait)\s+\w+`),
		functional: compile(`\barray_(map|filter|reduce)\s*\(`, `\bfn\s*\(`),
		tests:      regexp.MustCompile(`Test\.php$`),
		grammar: &Grammar{
			Language: php.GetLanguage,
			Functions: []string{
				"function_definition", "method_declaration", "anonymous_function_creation_expression",
				"anonymous_function", "arrow_function",
			},
			Decisions: []string{
				"if_statement", "else_if_clause", "for_statement", "foreach_statement",
				"while_statement", "do_statement", "case_statement", "catch_clause", "conditional_expression",
			},
			Operators: []string{"&&", "||", "and", "or"},
		},
	}
}

// CSharp strategy
func CSharp() Language {
	return &regexLanguage{
		name:       "C#",
		extensions: []string{".cs"},
		imports:    compile(`^\s*using\s+(?:static\s+)?([\w\.]+)\s*;`),
		root:       firstSegment("."),
		stdlib:     toSet([]string{"system"}),
		classes:    compile(`\b(class|interface|struct|record)\s+\w+`),
		functional: compile(`=>`, `\.(Select|Where|Aggregate)\(`),
		tests:      regexp.MustCompile(`Tests?\.cs$`),
		grammar: &Grammar{
			Language: csharp.GetLanguage,
			Functions: []string{
				"method_declaration", "constructor_declaration", "local_function_statement", "lambda_expression",
			},
			Decisions: []string{
				"if_statement", "for_statement", "for_each_statement", "foreach_statement",
				"while_statement", "do_statement", "switch_section", "catch_clause", "conditional_expression",
			},
			Operators: []string{"&&", "||", "??"},
		},
	}
}

var cStdlib = []string{
	"assert", "ctype", "errno", "float", "limits", "math", "setjmp", "signal", "stdarg",
	"stdbool", "stddef", "stdint", "stdio", "stdlib", "string", "time", "unistd", "pthread",
	"sys", "algorithm", "array", "chrono", "cmath", "cstdio", "cstdlib", "cstring", "deque",
	"functional", "fstream", "iostream", "iterator", "list", "map", "memory", "mutex",
	"queue", "set", "sstream", "stack", "stdexcept", "thread", "tuple", "unordered_map",
	"unordered_set", "utility", "vector",
}

// cRoot strips the header extension and any subdirectory
func cRoot(raw string) string {
	root := firstSegment("/")(raw)
	if i := strings.LastIndex(root, "."); i > 0 {
		root = root[:i]
	}
	return root
}

// cSignature walks the declarator chain to the function_declarator
func cSignature(fn *sitter.Node, src []byte) (string, int) {
	decl := fn.ChildByFieldName("declarator")
	for decl != nil && decl.Type() != "function_declarator" {
		decl = decl.ChildByFieldName("declarator")
	}
	if decl == nil {
		if fn.Type() == "lambda_expression" {
			if d := fn.ChildByFieldName("declarator"); d != nil {
				return anonymousFunction, countParams(d.ChildByFieldName("parameters"))
			}
		}
		return anonymousFunction, 0
	}
	name := anonymousFunction
	if id := decl.ChildByFieldName("declarator"); id != nil {
		name = id.Content(src)
	}
	return name, countParams(decl.ChildByFieldName("parameters"))
}

var cDecisions = []string{
	"if_statement", "for_statement", "for_range_loop", "while_statement", "do_statement",
	"case_statement", "conditional_expression", "catch_clause",
}

// C strategy
func C() Language {
	return &regexLanguage{
		name:       "C",
		extensions: []string{".c", ".h"},
		imports:    compile(`^\s*#\s*include\s*<([^>]+)>`),
		root:       cRoot,
		stdlib:     toSet(cStdlib),
		classes:    compile(`(?m)^\s*typedef\s+struct\b`),
		functional: compile(`\(\s*\*\s*\w+\s*\)\s*\(`),
		tests:      regexp.MustCompile(`^test_.*\.c$|_test\.c$`),
		grammar: &Grammar{
			Language:  c.GetLanguage,
			Functions: []string{"function_definition"},
			Decisions: cDecisions,
			Operators: []string{"&&", "||"},
			Signature: cSignature,
		},
	}
}

// CPP strategy
func CPP() Language {
	return &regexLanguage{
		name:       "C++",
		extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		imports:    compile(`^\s*#\s*include\s*<([^>]+)>`),
		root:       cRoot,
		stdlib:     toSet(cStdlib),
		classes:    compile(`\b(class|struct)\s+\w+\s*(:|\{)`),
		functional: compile(`\[[^\]\n]*\]\s*\([^)]*\)\s*(->\s*\w+\s*)?\{`, `std::(transform|accumulate|for_each)`),
		tests:      regexp.MustCompile(`(_test|_unittest)\.(cpp|cc)$`),
		grammar: &Grammar{
			Language:  cpp.GetLanguage,
			Functions: []string{"function_definition", "lambda_expression"},
			Decisions: cDecisions,
			Operators: []string{"&&", "||", "and", "or"},
			Signature: cSignature,
		},
	}
}
