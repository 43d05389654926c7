// Package plugin runs page-generator plugins that contribute virtual pages
// to a build from the integration manifest and the filtered content list.
package plugin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/notepress/notepress/internal/content"
	"github.com/notepress/notepress/internal/integration"
)

// Page is a virtual page emitted by a plugin, merged into the build staging
// area alongside the scanned content.
type Page struct {
	Slug    string // workspace-relative path without extension, e.g. "collections/index"
	Title   string
	Content string // markdown body
}

// Plugin generates pages for one build. Implementations get read-only views:
// they must not write outside the staging area the host controls.
type Plugin interface {
	Name() string
	Emit(manifest *integration.Manifest, files []content.FileEntry) ([]Page, error)
}

// slugCleaner strips combining marks after NFD decomposition.
var slugCleaner = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a title into a stable, URL-safe slug.
func Slugify(s string) string {
	if cleaned, _, err := transform.String(slugCleaner, s); err == nil {
		s = cleaned
	}
	s = strings.ToLower(s)
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '/':
			b.WriteRune(r)
			lastDash = true
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
