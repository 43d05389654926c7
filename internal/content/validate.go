package content

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/notepress/notepress/internal/errors"
)

// Validate runs a scan and checks the publishable content for blocking
// problems: broken internal links, malformed frontmatter. Oversize files and
// unreadable content degrade to warnings.
func (s *Scanner) Validate(root string) (ValidationResult, error) {
	summary, err := s.Scan(root)
	if err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{Summary: summary}

	// Fast membership set for link resolution.
	known := make(map[string]struct{}, len(summary.Files))
	for _, f := range summary.Files {
		known[f.RelPath] = struct{}{}
	}

	for _, f := range summary.Files {
		if s.rules.MaxFileSize > 0 && f.Size > s.rules.MaxFileSize {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Kind:    errors.KindContent,
				File:    f.RelPath,
				Message: fmt.Sprintf("file size %d exceeds limit %d", f.Size, s.rules.MaxFileSize),
			})
		}

		if !IsMarkdown(f.RelPath) {
			continue
		}

		src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.RelPath)))
		if err != nil {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Kind:    errors.KindContent,
				File:    f.RelPath,
				Message: "unreadable: " + err.Error(),
			})
			continue
		}

		body, fmErr := splitFrontmatter(src)
		if fmErr != nil {
			result.Errors = append(result.Errors, ValidationError{
				Kind:    errors.KindContent,
				File:    f.RelPath,
				Message: "malformed frontmatter: " + fmErr.Error(),
				Fix:     "check the YAML between the --- fences",
			})
		}

		if s.rules.ValidateLinks {
			for _, dest := range extractLinkDestinations(body) {
				target, ok := resolveInternalLink(dest, f.RelPath)
				if !ok {
					continue // external or anchor-only link
				}
				if _, exists := known[target]; exists {
					continue
				}
				// Markdown links commonly omit the .md extension.
				if _, exists := known[target+".md"]; exists {
					continue
				}
				result.Errors = append(result.Errors, ValidationError{
					Kind:    errors.KindContent,
					File:    f.RelPath,
					Line:    lineOf(src, dest),
					Message: fmt.Sprintf("broken internal link %q", dest),
					Fix:     "fix the link target or create the missing file",
				})
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}

// splitFrontmatter returns the markdown body after any YAML frontmatter
// block, or an error when the block exists but is not valid YAML.
func splitFrontmatter(src []byte) ([]byte, error) {
	if !bytes.HasPrefix(src, []byte("---\n")) && !bytes.HasPrefix(src, []byte("---\r\n")) {
		return src, nil
	}
	rest := src[bytes.IndexByte(src, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return src, fmt.Errorf("unterminated frontmatter fence")
	}
	block := rest[:end]
	var payload map[string]any
	if err := yaml.Unmarshal(block, &payload); err != nil {
		return rest[end+4:], err
	}
	return rest[end+4:], nil
}

// extractLinkDestinations parses markdown and collects link and image
// destinations, plus wiki-style [[target]] links which the CommonMark parser
// treats as plain text.
func extractLinkDestinations(body []byte) []string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var dests []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			dests = append(dests, string(node.Destination))
		case *gmast.Image:
			dests = append(dests, string(node.Destination))
		}
		return gmast.WalkContinue, nil
	})

	dests = append(dests, extractWikiLinks(body)...)
	return dests
}

// extractWikiLinks finds [[page]] and [[page|alias]] references.
func extractWikiLinks(body []byte) []string {
	var out []string
	for i := 0; i+4 <= len(body); i++ {
		if body[i] != '[' || body[i+1] != '[' {
			continue
		}
		end := bytes.Index(body[i+2:], []byte("]]"))
		if end < 0 {
			break
		}
		inner := string(body[i+2 : i+2+end])
		if pipe := strings.IndexByte(inner, '|'); pipe >= 0 {
			inner = inner[:pipe]
		}
		inner = strings.TrimSpace(inner)
		if inner != "" {
			out = append(out, inner)
		}
		i += end + 3
	}
	return out
}

// resolveInternalLink normalizes a link destination to a workspace-relative
// path. External URLs, mailto links and pure anchors return ok=false.
func resolveInternalLink(dest, fromRel string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	if u, err := url.Parse(dest); err == nil && u.Scheme != "" {
		return "", false
	}
	if frag := strings.IndexByte(dest, '#'); frag >= 0 {
		dest = dest[:frag]
	}
	if dest == "" {
		return "", false
	}
	dest = filepath.ToSlash(dest)

	var resolved string
	if strings.HasPrefix(dest, "/") {
		resolved = strings.TrimPrefix(dest, "/")
	} else {
		resolved = filepath.ToSlash(filepath.Join(filepath.Dir(fromRel), dest))
	}
	resolved = strings.TrimPrefix(resolved, "./")
	if resolved == "" || strings.HasPrefix(resolved, "../") {
		return "", false // escapes the workspace; filter already blocks it
	}
	return resolved, true
}

// lineOf gives a best-effort 1-based line number for the first occurrence of
// needle in src, 0 when not found.
func lineOf(src []byte, needle string) int {
	idx := bytes.Index(src, []byte(needle))
	if idx < 0 {
		return 0
	}
	return bytes.Count(src[:idx], []byte("\n")) + 1
}
