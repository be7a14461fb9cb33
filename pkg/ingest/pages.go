package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Source is one loaded document before chunking.
type Source struct {
	Path     string
	Text     string
	Metadata map[string]string
	// Markup selects the markup-aware separators.
	Markup bool
}

// URL returns the page URL of the source.
func (s Source) URL() string { return s.Metadata["url"] }

var (
	importLine = regexp.MustCompile(`(?m)^import.*$`)
	className  = regexp.MustCompile(` className=(?:"[^"]*"|'[^']*'|\{[^}]*\})`)
	blankLine  = regexp.MustCompile(`(?m)^[ \t]*\r?\n`)
)

// CleanPage strips import statements, className attributes and blank lines
// from a page source file.
func CleanPage(content string) string {
	out := importLine.ReplaceAllString(content, "")
	out = className.ReplaceAllString(out, "")
	out = blankLine.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// PageURL derives the site URL of a page file: the directory between root
// and the file, with the root page mapping to "/".
func PageURL(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// LoadPages walks dir and loads every file whose base name is in names,
// ordered by path.
func LoadPages(ctx context.Context, dir string, names []string) ([]Source, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && slices.Contains(names, d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		text := CleanPage(string(data))
		if text == "" {
			continue
		}
		sources = append(sources, Source{
			Path:     p,
			Text:     text,
			Metadata: map[string]string{"url": PageURL(dir, p), "source": "page"},
			Markup:   strings.HasSuffix(p, ".tsx") || strings.HasSuffix(p, ".jsx") || strings.HasSuffix(p, ".mdx"),
		})
	}
	return sources, nil
}
