package analysis

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// maxManifests caps the dependency manifests read per repository
const maxManifests = 50

// dependencySet holds declared dependency names plus JVM build files matched by substring
type dependencySet struct {
	names map[string]bool
	jvm   []string
}

func newDependencySet() *dependencySet {
	return &dependencySet{names: make(map[string]bool)}
}

func (d *dependencySet) add(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		d.names[name] = true
	}
}

// has matches a dependency name exactly, or as a prefix when dep ends with "/"
func (d *dependencySet) has(dep string) bool {
	dep = strings.ToLower(dep)
	if strings.HasSuffix(dep, "/") {
		for name := range d.names {
			if strings.HasPrefix(name, dep) || name == strings.TrimSuffix(dep, "/") {
				return true
			}
		}
		return false
	}
	return d.names[dep]
}

func (d *dependencySet) jvmContains(needle string) bool {
	needle = strings.ToLower(needle)
	for _, content := range d.jvm {
		if strings.Contains(content, needle) {
			return true
		}
	}
	return false
}

type manifestParser func(data []byte, deps *dependencySet)

var manifestParsers = map[string]manifestParser{
	"package.json":     parsePackageJSON,
	"composer.json":    parseComposerJSON,
	"requirements.txt": parseRequirements,
	"pyproject.toml":   parsePyproject,
	"Pipfile":          parsePipfile,
	"go.mod":           parseGoMod,
	"Cargo.toml":       parseCargo,
	"Gemfile":          parseGemfile,
	"pom.xml":          parseJVM,
	"build.gradle":     parseJVM,
	"build.gradle.kts": parseJVM,
}

func isManifest(path string) bool {
	_, ok := manifestParsers[filepath.Base(path)]
	return ok
}

// readManifests parses every manifest found under root; malformed files contribute nothing
func readManifests(paths []string) *dependencySet {
	deps := newDependencySet()
	for _, path := range paths {
		parse, ok := manifestParsers[filepath.Base(path)]
		if !ok {
			continue
		}
		data, err := readSource(path)
		if err != nil {
			continue
		}
		parse(data, deps)
	}
	return deps
}

func addKeys(deps *dependencySet, tables ...map[string]any) {
	for _, t := range tables {
		for name := range t {
			deps.add(name)
		}
	}
}

func parsePackageJSON(data []byte, deps *dependencySet) {
	var pkg struct {
		Dependencies    map[string]any `json:"dependencies"`
		DevDependencies map[string]any `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}
	addKeys(deps, pkg.Dependencies, pkg.DevDependencies)
}

func parseComposerJSON(data []byte, deps *dependencySet) {
	var pkg struct {
		Require    map[string]any `json:"require"`
		RequireDev map[string]any `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}
	addKeys(deps, pkg.Require, pkg.RequireDev)
}

var pep508Name = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

// pythonName normalizes a requirement specifier to its distribution name
func pythonName(spec string) string {
	m := pep508Name.FindStringSubmatch(spec)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(m[1]), "_", "-")
}

func parseRequirements(data []byte, deps *dependencySet) {
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		deps.add(pythonName(line))
	}
}

// table walks nested TOML tables by key
func table(doc map[string]any, keys ...string) map[string]any {
	cur := doc
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func addPythonKeys(deps *dependencySet, t map[string]any) {
	for name := range t {
		deps.add(pythonName(name))
	}
}

func parsePyproject(data []byte, deps *dependencySet) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return
	}

	if project := table(doc, "project"); project != nil {
		if list, ok := project["dependencies"].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					deps.add(pythonName(s))
				}
			}
		}
		for _, group := range table(doc, "project", "optional-dependencies") {
			list, _ := group.([]any)
			for _, item := range list {
				if s, ok := item.(string); ok {
					deps.add(pythonName(s))
				}
			}
		}
	}

	addPythonKeys(deps, table(doc, "tool", "poetry", "dependencies"))
	addPythonKeys(deps, table(doc, "tool", "poetry", "dev-dependencies"))
	for name := range table(doc, "tool", "poetry", "group") {
		addPythonKeys(deps, table(doc, "tool", "poetry", "group", name, "dependencies"))
	}
}

func parsePipfile(data []byte, deps *dependencySet) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return
	}
	addPythonKeys(deps, table(doc, "packages"))
	addPythonKeys(deps, table(doc, "dev-packages"))
}

var goMajorSuffix = regexp.MustCompile(`/v[0-9]+$`)

func parseGoMod(data []byte, deps *dependencySet) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return
	}
	for _, req := range f.Require {
		deps.add(req.Mod.Path)
		deps.add(goMajorSuffix.ReplaceAllString(req.Mod.Path, ""))
	}
}

func parseCargo(data []byte, deps *dependencySet) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return
	}
	addKeys(deps,
		table(doc, "dependencies"),
		table(doc, "dev-dependencies"),
		table(doc, "build-dependencies"),
		table(doc, "workspace", "dependencies"),
	)
}

var gemLine = regexp.MustCompile(`(?m)^\s*gem\s+['"]([^'"]+)['"]`)

func parseGemfile(data []byte, deps *dependencySet) {
	for _, m := range gemLine.FindAllStringSubmatch(string(data), -1) {
		deps.add(m[1])
	}
}

func parseJVM(data []byte, deps *dependencySet) {
	deps.jvm = append(deps.jvm, strings.ToLower(string(data)))
}
