package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aboutPage = `import { H1 } from "@components/index";
import Link from "next/link";

export default function Page() {
  return (
    <section className="space-y-6">
      <H1>About Me</H1>

      <p className={cn("text-lg", dark)}>I build web apps with React.</p>
    </section>
  );
}
`

func TestCleanPage(t *testing.T) {
	got := CleanPage(aboutPage)
	want := `export default function Page() {
  return (
    <section>
      <H1>About Me</H1>
      <p>I build web apps with React.</p>
    </section>
  );
}`
	assert.Equal(t, want, got)
}

func TestPageURL(t *testing.T) {
	root := filepath.Join("src", "app")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "page.tsx"), "/"},
		{filepath.Join(root, "about", "page.tsx"), "/about"},
		{filepath.Join(root, "blog", "flow", "page.mdx"), "/blog/flow"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageURL(root, tt.path), tt.path)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadPages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "page.tsx"), "<p>Home</p>")
	writeFile(t, filepath.Join(dir, "about", "page.tsx"), aboutPage)
	writeFile(t, filepath.Join(dir, "notes", "page.md"), "# Notes\n\nPlain markdown.")
	writeFile(t, filepath.Join(dir, "about", "layout.tsx"), "<div>ignored</div>")
	writeFile(t, filepath.Join(dir, "empty", "page.tsx"), "import x from 'y';\n")

	sources, err := LoadPages(context.Background(), dir, []string{"page.tsx", "page.md"})
	require.NoError(t, err)
	require.Len(t, sources, 3)

	// Ordered by file path.
	assert.Equal(t, "/about", sources[0].URL())
	assert.Contains(t, sources[0].Text, "I build web apps with React.")
	assert.True(t, sources[0].Markup)
	assert.Equal(t, "/notes", sources[1].URL())
	assert.False(t, sources[1].Markup)
	assert.Equal(t, "/", sources[2].URL())
}

func TestLoadPagesMissingDir(t *testing.T) {
	_, err := LoadPages(context.Background(), filepath.Join(t.TempDir(), "nope"), []string{"page.tsx"})
	assert.Error(t, err)
}

func TestLoadResumeText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.md")
	writeFile(t, path, "\nJane Doe\nFront-end engineer\n")

	src, err := LoadResume(path, "Jane Doe Resume")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nFront-end engineer", src.Text)
	assert.Equal(t, map[string]string{
		"source": "resume",
		"type":   "text",
		"title":  "Jane Doe Resume",
		"url":    "/resume",
	}, src.Metadata)
}

func TestLoadResumeErrors(t *testing.T) {
	_, err := LoadResume(filepath.Join(t.TempDir(), "missing.pdf"), "x")
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, empty, "   \n")
	_, err = LoadResume(empty, "x")
	assert.Error(t, err)
}
