package uploader

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExtractSKU derives a SKU from a label file name: the part before the first
// "_" or "-", uppercased. Names without a delimiter use the whole stem.
// There is no validation; a wrong guess surfaces as a failed upload.
func ExtractSKU(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexAny(base, "_-"); i >= 0 {
		return strings.ToUpper(base[:i])
	}
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ExpandPaths expands ~ and glob patterns into a deduplicated file list.
// Patterns that match nothing are kept as-is so the upload reports them.
func ExpandPaths(patterns []string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		p, err := homedir.Expand(pattern)
		if err != nil {
			p = pattern
		}
		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			matches = []string{p}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths
}
