package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/errors"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestScanner(t *testing.T, rules config.ContentRules) *Scanner {
	t.Helper()
	s, err := NewScanner(rules)
	require.NoError(t, err)
	return s
}

func TestScanCountsByType(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "# Home\n")
	writeFile(t, root, "notes/a.md", "---\ntitle: A\n---\nbody\n")
	writeFile(t, root, "notes/b.md", "plain\n")
	writeFile(t, root, "media/pic.png", "fakepng")
	writeFile(t, root, "docs/spec.pdf", "fakepdf")
	writeFile(t, root, "script.sh", "#!/bin/sh\n") // not publishable

	s := newTestScanner(t, config.ContentRules{ProcessImages: true})
	sum, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, 5, sum.TotalFiles)
	assert.Equal(t, 3, sum.MarkdownFiles)
	assert.Equal(t, 1, sum.ImageFiles)
	assert.Equal(t, 1, sum.OtherFiles)
	assert.Equal(t, 1, sum.FrontmatterFiles)
	assert.ElementsMatch(t, []string{"notes", "media", "docs"}, sum.Directories)
	assert.Greater(t, sum.TotalSize, int64(0))
}

func TestScanExcludesDeniedDirectories(t *testing.T) {
	// Ten markdown files, two under a denied directory pattern.
	root := t.TempDir()
	for _, rel := range []string{
		"a.md", "b.md", "c.md", "d.md",
		"notes/e.md", "notes/f.md", "notes/g.md", "notes/h.md",
		"private/i.md", "private/j.md",
	} {
		writeFile(t, root, rel, "content\n")
	}

	s := newTestScanner(t, config.ContentRules{ExcludeGlobs: []string{"private/**"}})
	sum, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, 8, sum.MarkdownFiles)
}

func TestScanDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.md", "1\n")
	writeFile(t, root, "two/three.md", "3\n")
	writeFile(t, root, "two/pic.jpg", "jpeg")

	s := newTestScanner(t, config.ContentRules{ProcessImages: true})
	first, err := s.Scan(root)
	require.NoError(t, err)
	second, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScanFlagsNonStandardMarkers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.sync-conflict-20250101.md", "x\n")

	s := newTestScanner(t, config.ContentRules{})
	sum, err := s.Scan(root)
	require.NoError(t, err)
	assert.True(t, sum.HasNonStandardMarkers)
}

func TestValidateBrokenLinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "[exists](notes/a.md)\n[missing](notes/nope.md)\n")
	writeFile(t, root, "notes/a.md", "ok\n")

	s := newTestScanner(t, config.ContentRules{ValidateLinks: true})
	res, err := s.Validate(root)
	require.NoError(t, err)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, errors.KindContent, res.Errors[0].Kind)
	assert.Equal(t, "index.md", res.Errors[0].File)
	assert.Contains(t, res.Errors[0].Message, "notes/nope.md")
	assert.Equal(t, 2, res.Errors[0].Line)
}

func TestValidateLinkWithoutExtensionAndAnchors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "[a](notes/a)\n[ext](https://example.com/x)\n[anchor](#here)\n")
	writeFile(t, root, "notes/a.md", "ok\n")

	s := newTestScanner(t, config.ContentRules{ValidateLinks: true})
	res, err := s.Validate(root)
	require.NoError(t, err)
	assert.True(t, res.IsValid, "%v", res.Errors)
}

func TestValidateWikiLinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "see [[notes/a]] and [[notes/gone|the gone one]]\n")
	writeFile(t, root, "notes/a.md", "ok\n")

	s := newTestScanner(t, config.ContentRules{ValidateLinks: true})
	res, err := s.Validate(root)
	require.NoError(t, err)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "notes/gone")
}

func TestValidateMalformedFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.md", "---\ntitle: [unclosed\n---\nbody\n")

	s := newTestScanner(t, config.ContentRules{})
	res, err := s.Validate(root)
	require.NoError(t, err)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "frontmatter")
}

func TestValidateOversizeWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.md", string(make([]byte, 2048)))

	s := newTestScanner(t, config.ContentRules{MaxFileSize: 1024})
	res, err := s.Validate(root)
	require.NoError(t, err)

	assert.True(t, res.IsValid) // oversize is a warning, not a blocker
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "exceeds limit")
}
