package analysis

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSourceBytes bounds how much of a single file is read
const maxSourceBytes = 1 << 20

var skipDirs = map[string]bool{
	"node_modules":  true,
	"vendor":        true,
	"venv":          true,
	".venv":         true,
	"env":           true,
	"__pycache__":   true,
	"dist":          true,
	"build":         true,
	"target":        true,
	"out":           true,
	"bin":           true,
	"obj":           true,
	".git":          true,
	"site-packages": true,
	"coverage":      true,
}

// skipDir reports whether a directory below the root is excluded from scans
func skipDir(name string) bool {
	return skipDirs[name] || (strings.HasPrefix(name, ".") && len(name) > 1)
}

// walkFiles returns up to limit regular files under root, in lexical order,
// for which keep returns true. limit <= 0 means no limit.
func walkFiles(ctx context.Context, root string, limit int, keep func(path string) bool) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if keep != nil && !keep(path) {
			return nil
		}
		out = append(out, path)
		if limit > 0 && len(out) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	return out
}

// readSource reads a file, refusing anything larger than maxSourceBytes
func readSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSourceBytes {
		return nil, fs.ErrInvalid
	}
	return os.ReadFile(path)
}

// relPath reports path relative to root with forward slashes
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
