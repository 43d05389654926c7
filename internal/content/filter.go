// Package content implements workspace scanning and the publishable-content
// filter that decides which files reach the build tool.
package content

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/notepress/notepress/internal/config"
)

// builtinDenyGlobs always exclude build-tool internals, version control,
// dependency caches, editor/OS droppings and the local state directory.
// They apply before any user-configured rule.
var builtinDenyGlobs = []string{
	".git/**",
	".git",
	"node_modules/**",
	"public/**",
	".quartz-cache/**",
	".notepress/**",
	".obsidian/**",
	".vscode/**",
	".idea/**",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/*.swp",
	"**/*~",
}

// allowedExtensions is the publishable extension allow-list.
var allowedExtensions = map[string]struct{}{
	// markdown
	".md": {}, ".markdown": {}, ".mdown": {}, ".mkd": {},
	// images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	// documents
	".pdf": {}, ".txt": {}, ".csv": {},
}

// sensitiveTokens deny files whose name suggests credentials even when the
// extension is otherwise allowed.
var sensitiveTokens = []string{"secret", "credential", "password", "key.", "token."}

// Filter classifies workspace-relative paths as publishable or excluded.
// It is a pure function over a path and the compiled rule table.
type Filter struct {
	deny    []*regexp.Regexp
	include []*regexp.Regexp
	images  bool
}

// NewFilter compiles the rule table from content rules. Globs were already
// validated at config load; a compile failure here is still reported rather
// than swallowed.
func NewFilter(rules config.ContentRules) (*Filter, error) {
	deny, err := config.CompileGlobs(append(append([]string{}, builtinDenyGlobs...), rules.ExcludeGlobs...))
	if err != nil {
		return nil, err
	}
	include, err := config.CompileGlobs(rules.IncludeGlobs)
	if err != nil {
		return nil, err
	}
	return &Filter{deny: deny, include: include, images: rules.ProcessImages}, nil
}

// ShouldInclude reports whether the workspace-relative path is publishable.
// Rule order: deny globs, include globs (empty means include all), extension
// allow-list (images only when process_images is on), sensitive filename
// heuristics.
func (f *Filter) ShouldInclude(relPath string) bool {
	rel := filepath.ToSlash(relPath)

	for _, rx := range f.deny {
		if rx.MatchString(rel) {
			return false
		}
	}

	if len(f.include) > 0 {
		matched := false
		for _, rx := range f.include {
			if rx.MatchString(rel) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(rel))
	if _, ok := allowedExtensions[ext]; !ok {
		return false
	}
	if !f.images && IsImage(rel) {
		return false
	}

	name := strings.ToLower(filepath.Base(rel))
	for _, token := range sensitiveTokens {
		if strings.Contains(name, token) {
			return false
		}
	}
	return true
}

// IsMarkdown reports whether the path has a markdown extension.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return true
	}
	return false
}

// IsImage reports whether the path has an image extension.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico":
		return true
	}
	return false
}
