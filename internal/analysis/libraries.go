package analysis

import (
	"bufio"
	"bytes"
	"context"
	"sort"
)

const (
	// MaxLibraryFiles caps the files scanned for imports
	MaxLibraryFiles = 500
	// TopLibraries is the number of libraries reported
	TopLibraries = 20
)

// LibraryCount is one ranked library
type LibraryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// IdentifyLibraries tallies imported root modules across source files and
// returns the most used ones
func (a *Analyzer) IdentifyLibraries(ctx context.Context, root string) map[string]int {
	files := walkFiles(ctx, root, MaxLibraryFiles, a.known)

	counts := make(map[string]int)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		lang, _ := a.registry.ForFile(path)
		src, err := readSource(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(bytes.NewReader(src))
		scanner.Buffer(make([]byte, 0, 64*1024), maxSourceBytes)
		for scanner.Scan() {
			for _, lib := range lang.Imports(scanner.Text()) {
				counts[lib]++
			}
		}
	}

	return TopN(counts, TopLibraries)
}

// Rank orders counts by count descending, then name ascending
func Rank(counts map[string]int) []LibraryCount {
	out := make([]LibraryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, LibraryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopN keeps the n highest counts, ties broken by name
func TopN(counts map[string]int, n int) map[string]int {
	ranked := Rank(counts)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make(map[string]int, len(ranked))
	for _, lc := range ranked {
		out[lc.Name] = lc.Count
	}
	return out
}
