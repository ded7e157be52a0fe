package analysis

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

const (
	// MaxPatternFiles caps the source files read for OOP/functional idioms
	MaxPatternFiles = 200
	// maxTreeEntries caps the files listed for manifests and file-name signatures
	maxTreeEntries = 5000
)

// PatternProfile lists coding practices detected in a repository
type PatternProfile struct {
	HasTests       bool     `json:"has_tests"`
	HasCI          bool     `json:"has_ci"`
	HasDocs        bool     `json:"has_docs"`
	HasLinter      bool     `json:"has_linter"`
	UsesOOP        bool     `json:"uses_oop"`
	UsesFunctional bool     `json:"uses_functional"`
	Frameworks     []string `json:"frameworks"`
}

var (
	testEntryNames = map[string]bool{"test": true, "tests": true, "__tests__": true, "spec": true}
	testEntryFile  = regexp.MustCompile(`(_test\.|^test_|\.test\.|\.spec\.)`)

	ciPaths = []string{
		".github/workflows", ".gitlab-ci.yml", ".travis.yml", ".circleci", "Jenkinsfile",
		"azure-pipelines.yml", "bitbucket-pipelines.yml", ".drone.yml",
	}
	docsDirs    = []string{"docs", "doc", "documentation", "wiki"}
	linterFiles = map[string]bool{
		".pylintrc": true, ".flake8": true, "setup.cfg": true, ".golangci.yml": true,
		".golangci.yaml": true, ".rubocop.yml": true, "tslint.json": true, ".prettierrc": true,
		"ruff.toml": true, ".stylelintrc": true, "rustfmt.toml": true, "clippy.toml": true,
	}
)

// IdentifyPatterns detects tests, CI, docs, linters, programming style and frameworks
func (a *Analyzer) IdentifyPatterns(ctx context.Context, root string) PatternProfile {
	var p PatternProfile

	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		name := e.Name()
		lower := strings.ToLower(name)
		if testEntryNames[lower] || testEntryFile.MatchString(lower) {
			p.HasTests = true
		}
		if linterFiles[name] || strings.HasPrefix(name, ".eslintrc") {
			p.HasLinter = true
		}
	}
	p.HasCI = anyExists(root, ciPaths)
	p.HasDocs = anyExists(root, docsDirs)

	tree := walkFiles(ctx, root, maxTreeEntries, nil)
	names := make(map[string]bool, len(tree))
	var manifests, sources []string
	langsPresent := make(map[string]bool)
	for _, path := range tree {
		base := filepath.Base(path)
		names[base] = true
		if isManifest(path) && len(manifests) < maxManifests {
			manifests = append(manifests, path)
		}
		if lang, ok := a.registry.ForFile(path); ok {
			langsPresent[lang.Name()] = true
			if lang.IsTestFile(base) {
				p.HasTests = true
			}
			if len(sources) < MaxPatternFiles {
				sources = append(sources, path)
			}
		}
	}

	found := make(map[string]bool)
	deps := readManifests(manifests)
	var pending []frameworkSignature
	for _, sig := range frameworkSignatures {
		switch {
		case sig.matchManifest(deps), sig.matchFiles(names):
			found[sig.Name] = true
		case sig.Source != nil && slices.ContainsFunc(sig.Langs, func(l string) bool { return langsPresent[l] }):
			pending = append(pending, sig)
		}
	}

	for _, path := range sources {
		if ctx.Err() != nil {
			break
		}
		if p.UsesOOP && p.UsesFunctional && len(pending) == 0 {
			break
		}
		lang, _ := a.registry.ForFile(path)
		data, err := readSource(path)
		if err != nil {
			continue
		}
		src := string(data)
		if !p.UsesOOP && lang.DeclaresClass(src) {
			p.UsesOOP = true
		}
		if !p.UsesFunctional && lang.UsesFunctional(src) {
			p.UsesFunctional = true
		}
		pending = matchSources(pending, lang.Name(), src, found)
	}

	p.Frameworks = make([]string, 0, len(found))
	for name := range found {
		p.Frameworks = append(p.Frameworks, name)
	}
	sort.Strings(p.Frameworks)
	return p
}

// matchSources records signatures matching src and returns those still pending
func matchSources(pending []frameworkSignature, lang, src string, found map[string]bool) []frameworkSignature {
	rest := pending[:0]
	for _, sig := range pending {
		if sig.scans(lang) && sig.Source.MatchString(src) {
			found[sig.Name] = true
			continue
		}
		rest = append(rest, sig)
	}
	return rest
}

func anyExists(root string, rel []string) bool {
	for _, r := range rel {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(r))); err == nil {
			return true
		}
	}
	return false
}
