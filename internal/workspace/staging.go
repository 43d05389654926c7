// Package workspace manages the build staging area: the per-build directory
// the filtered content is copied into and the build tool runs against. The
// user's workspace root is never handed to the build tool directly.
package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Staging lays out one build's directories under the data dir:
//
//	<dataDir>/builds/<buildID>/site    — staged content + generated config
//	<dataDir>/builds/<buildID>/public  — build tool output
type Staging struct {
	dataDir string
	buildID string
}

// NewStaging returns the staging layout for a build (nothing on disk yet).
func NewStaging(dataDir, buildID string) *Staging {
	return &Staging{dataDir: dataDir, buildID: buildID}
}

// Root is the per-build directory.
func (s *Staging) Root() string {
	return filepath.Join(s.dataDir, "builds", s.buildID)
}

// SiteDir is where content and generated configuration are staged.
func (s *Staging) SiteDir() string { return filepath.Join(s.Root(), "site") }

// ContentDir is the content root inside the site dir.
func (s *Staging) ContentDir() string { return filepath.Join(s.SiteDir(), "content") }

// OutputDir is where the build tool writes the generated site.
func (s *Staging) OutputDir() string { return filepath.Join(s.Root(), "public") }

// Create prepares the directory tree.
func (s *Staging) Create() error {
	for _, dir := range []string{s.ContentDir(), s.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create staging dir %s: %w", dir, err)
		}
	}
	return nil
}

// StageFile copies one workspace file into the content dir, preserving the
// relative layout.
func (s *Staging) StageFile(workspaceRoot, relPath string) error {
	src := filepath.Join(workspaceRoot, filepath.FromSlash(relPath))
	dst := filepath.Join(s.ContentDir(), filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", relPath, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", relPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", relPath, err)
	}
	return nil
}

// WritePage writes a plugin-emitted markdown page into the content dir.
func (s *Staging) WritePage(slug, body string) error {
	dst := filepath.Join(s.ContentDir(), filepath.FromSlash(slug)+".md")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create page dir: %w", err)
	}
	if err := os.WriteFile(dst, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write page %s: %w", slug, err)
	}
	return nil
}

// Cleanup removes this build's staging tree. Completed output is kept by the
// caller until the next successful deploy when retention applies.
func (s *Staging) Cleanup() error {
	return os.RemoveAll(s.Root())
}

// PruneOld keeps the newest keep build directories under dataDir and removes
// the rest. Ordering uses modification time.
func PruneOld(dataDir string, keep int) {
	buildsDir := filepath.Join(dataDir, "builds")
	entries, err := os.ReadDir(buildsDir)
	if err != nil {
		return
	}
	type stamped struct {
		name string
		mod  int64
	}
	var dirs []stamped
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, stamped{e.Name(), info.ModTime().UnixNano()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mod > dirs[j].mod })
	for i := keep; i < len(dirs); i++ {
		path := filepath.Join(buildsDir, dirs[i].name)
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to prune old build", "path", path, "error", err)
		}
	}
}
