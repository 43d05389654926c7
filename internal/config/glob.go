package config

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileGlob converts a shell-style glob into an anchored regexp matched
// against slash-separated relative paths. `*` and `?` do not cross path
// separators; `**` matches any number of segments. Malformed patterns
// (unterminated character classes) are rejected here so scans never see them.
func CompileGlob(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				// `**` crosses segment boundaries; a trailing `/` is folded
				// into it so `**/x` also matches a root-level `x`.
				b.WriteString(".*")
				i++
				if i+1 < len(glob) && glob[i+1] == '/' {
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i:], ']')
			if end <= 1 {
				return nil, fmt.Errorf("malformed glob %q: unterminated character class", glob)
			}
			b.WriteString(glob[i : i+end+1])
			i += end
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("malformed glob %q: %w", glob, err)
	}
	return re, nil
}

// CompileGlobs compiles a list of globs, skipping blank entries.
func CompileGlobs(globs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(globs))
	for _, g := range globs {
		if strings.TrimSpace(g) == "" {
			continue
		}
		re, err := CompileGlob(g)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
