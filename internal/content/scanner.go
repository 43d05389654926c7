package content

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notepress/notepress/internal/config"
)

// nonStandardMarkers flag files that look like sync conflicts or editor
// leftovers that slipped past the filter (markdown names carrying them are
// still publishable but worth surfacing).
var nonStandardMarkers = []string{"sync-conflict", ".conflicted", ".orig."}

// Scanner walks a workspace tree, applies the content filter and aggregates
// a ContentSummary. It never writes to disk and may be called repeatedly.
type Scanner struct {
	filter *Filter
	rules  config.ContentRules
}

// NewScanner builds a scanner for the given content rules.
func NewScanner(rules config.ContentRules) (*Scanner, error) {
	f, err := NewFilter(rules)
	if err != nil {
		return nil, err
	}
	return &Scanner{filter: f, rules: rules}, nil
}

// Filter exposes the compiled filter for callers that stage content.
func (s *Scanner) Filter() *Filter { return s.filter }

// Scan walks root and returns a summary of publishable content. Unreadable
// entries are logged and skipped, never fatal. The walk order is lexical, so
// two scans over an unchanged tree yield identical summaries.
func (s *Scanner) Scan(root string) (ContentSummary, error) {
	summary := ContentSummary{}
	dirs := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("Unreadable entry during scan", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !s.dirMayContainContent(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if !s.filter.ShouldInclude(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("Failed to stat file during scan", "path", path, "error", err)
			return nil
		}

		summary.TotalFiles++
		summary.TotalSize += info.Size()
		summary.Files = append(summary.Files, FileEntry{RelPath: rel, Size: info.Size()})
		if dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." {
			dirs[dir] = struct{}{}
		}

		name := strings.ToLower(filepath.Base(rel))
		for _, marker := range nonStandardMarkers {
			if strings.Contains(name, marker) {
				summary.HasNonStandardMarkers = true
			}
		}

		switch {
		case IsMarkdown(rel):
			summary.MarkdownFiles++
			if hasFrontmatter(path) {
				summary.FrontmatterFiles++
			}
		case IsImage(rel):
			summary.ImageFiles++
		default:
			summary.OtherFiles++
		}
		return nil
	})
	if err != nil {
		return ContentSummary{}, err
	}

	summary.Directories = make([]string, 0, len(dirs))
	for dir := range dirs {
		summary.Directories = append(summary.Directories, dir)
	}
	sort.Strings(summary.Directories)

	slog.Debug("Workspace scanned",
		"total", summary.TotalFiles,
		"markdown", summary.MarkdownFiles,
		"images", summary.ImageFiles,
		"size", summary.TotalSize)
	return summary, nil
}

// dirMayContainContent prunes directories that the filter denies wholesale,
// so the walk never descends into .git or node_modules.
func (s *Scanner) dirMayContainContent(relDir string) bool {
	probe := relDir + "/x.md"
	for _, rx := range s.filter.deny {
		if rx.MatchString(relDir) || rx.MatchString(probe) {
			// A deny glob that swallows everything under this dir makes
			// descending pointless. Narrow globs (single files) do not.
			if rx.MatchString(relDir+"/a/b/c.md") && rx.MatchString(relDir+"/z.png") {
				return false
			}
		}
	}
	return true
}

// hasFrontmatter reports whether the file opens with a YAML frontmatter fence.
func hasFrontmatter(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 4)
	n, _ := f.Read(buf)
	return bytes.HasPrefix(buf[:n], []byte("---\n")) || bytes.HasPrefix(buf[:n], []byte("---\r"))
}
