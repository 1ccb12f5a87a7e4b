package importer

import (
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/extract"
)

// Filter selects importable files by doublestar patterns matched against slash-separated paths
// relative to the import root.
type Filter struct {
	includes []string
	excludes []string
}

// NewFilter creates a filter. No includes means every supported file.
func NewFilter(includes, excludes []string) *Filter {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Filter{includes: includes, excludes: excludes}
}

// Match reports whether rel (relative to the root) should be imported.
func (f *Filter) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if extract.KindOf(filepath.Ext(rel)) == extract.KindUnsupported {
		return false
	}
	return matchAny(f.includes, rel) && !matchAny(f.excludes, rel)
}

func (f *Filter) skipDir(rel string) bool {
	return rel != "." && matchAny(f.excludes, filepath.ToSlash(rel)+"/")
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Collect walks root and returns the files the filter accepts, in lexical order.
func (f *Filter) Collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if f.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
