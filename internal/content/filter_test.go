package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepress/notepress/internal/config"
)

func newTestFilter(t *testing.T, rules config.ContentRules) *Filter {
	t.Helper()
	f, err := NewFilter(rules)
	require.NoError(t, err)
	return f
}

func TestDenyGlobsWinRegardlessOfExtension(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{ExcludeGlobs: []string{"private/**"}})

	cases := []string{
		"private/note.md",
		"private/deep/nested/img.png",
		".git/config",
		"node_modules/pkg/readme.md",
		"public/index.md",
		".notepress/state.json",
		".obsidian/app.json",
		"notes/.DS_Store",
	}
	for _, p := range cases {
		assert.False(t, f.ShouldInclude(p), p)
	}
}

func TestExtensionAllowList(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{ProcessImages: true})

	assert.True(t, f.ShouldInclude("notes/idea.md"))
	assert.True(t, f.ShouldInclude("media/photo.jpg"))
	assert.True(t, f.ShouldInclude("docs/report.pdf"))
	assert.True(t, f.ShouldInclude("data/table.csv"))

	assert.False(t, f.ShouldInclude("script.sh"))
	assert.False(t, f.ShouldInclude("binary.exe"))
	assert.False(t, f.ShouldInclude("archive.zip"))
	assert.False(t, f.ShouldInclude("noextension"))
}

func TestProcessImagesGatesImageFiles(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{})

	assert.False(t, f.ShouldInclude("media/photo.jpg"))
	assert.False(t, f.ShouldInclude("diagram.svg"))
	// Non-image content is unaffected.
	assert.True(t, f.ShouldInclude("notes/idea.md"))
	assert.True(t, f.ShouldInclude("docs/report.pdf"))
}

func TestSensitiveFilenameHeuristics(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{})

	denied := []string{
		"notes/my-secrets.md",
		"credentials.md",
		"PASSWORD-list.md",
		"api.key.txt",
		"auth.token.csv",
		"notes/secret-plan.md",
	}
	for _, p := range denied {
		assert.False(t, f.ShouldInclude(p), p)
	}

	// "key" without a following dot is not a credential marker.
	assert.True(t, f.ShouldInclude("notes/keyboard.md"))
	assert.True(t, f.ShouldInclude("notes/keys-overview.md"))
}

func TestIncludeGlobsNarrowSelection(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{IncludeGlobs: []string{"blog/**"}})

	assert.True(t, f.ShouldInclude("blog/post.md"))
	assert.False(t, f.ShouldInclude("notes/other.md"))
}

func TestUserExcludeBeatsInclude(t *testing.T) {
	f := newTestFilter(t, config.ContentRules{
		IncludeGlobs: []string{"**/*.md"},
		ExcludeGlobs: []string{"drafts/**"},
	})

	assert.True(t, f.ShouldInclude("notes/a.md"))
	assert.False(t, f.ShouldInclude("drafts/a.md"))
}
