package plugin

import (
	"fmt"
	"log/slog"

	"github.com/notepress/notepress/internal/content"
	"github.com/notepress/notepress/internal/integration"
	"github.com/notepress/notepress/internal/observability"
)

// Host maintains the ordered plugin registry and invokes each plugin exactly
// once per build with per-plugin failure isolation.
type Host struct {
	plugins  []Plugin
	recorder observability.Recorder
}

// NewHost creates an empty host. A nil recorder falls back to no-op metrics.
func NewHost(recorder observability.Recorder) *Host {
	if recorder == nil {
		recorder = observability.NoopRecorder{}
	}
	return &Host{recorder: recorder}
}

// Register appends a plugin to the invocation order.
func (h *Host) Register(p Plugin) {
	h.plugins = append(h.plugins, p)
}

// Names lists registered plugins in invocation order.
func (h *Host) Names() []string {
	names := make([]string, len(h.plugins))
	for i, p := range h.plugins {
		names[i] = p.Name()
	}
	return names
}

// Run invokes every plugin, collects emitted pages and de-duplicates by slug
// (last registered wins, logged as a warning). A failing or panicking plugin
// contributes nothing for this run but never aborts the others or the build;
// its failure comes back as a warning attributed to the plugin name.
func (h *Host) Run(manifest *integration.Manifest, files []content.FileEntry) ([]Page, []string) {
	var warnings []string
	bySlug := make(map[string]int) // slug -> index into pages
	var pages []Page

	for _, p := range h.plugins {
		emitted, err := h.runOne(p, manifest, files)
		if err != nil {
			h.recorder.IncPluginFailure(p.Name())
			slog.Warn("Plugin failed, discarding its pages", "plugin", p.Name(), "error", err)
			warnings = append(warnings, fmt.Sprintf("plugin %s: %v", p.Name(), err))
			continue
		}
		for _, page := range emitted {
			if page.Slug == "" {
				warnings = append(warnings, fmt.Sprintf("plugin %s: emitted page with empty slug, skipped", p.Name()))
				continue
			}
			if idx, dup := bySlug[page.Slug]; dup {
				slog.Warn("Plugin page slug collision, last registration wins",
					"slug", page.Slug, "plugin", p.Name())
				warnings = append(warnings, fmt.Sprintf("slug collision on %q, kept page from %s", page.Slug, p.Name()))
				pages[idx] = page
				continue
			}
			bySlug[page.Slug] = len(pages)
			pages = append(pages, page)
		}
	}
	return pages, warnings
}

// runOne isolates a single plugin invocation, converting panics to errors.
func (h *Host) runOne(p Plugin, manifest *integration.Manifest, files []content.FileEntry) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Emit(manifest, files)
}
