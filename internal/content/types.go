package content

import (
	"strconv"

	"github.com/notepress/notepress/internal/errors"
)

// ContentSummary is the ephemeral result of one workspace scan. It is always
// derived fresh and never persisted.
type ContentSummary struct {
	TotalFiles            int
	MarkdownFiles         int
	ImageFiles            int
	OtherFiles            int
	TotalSize             int64
	Directories           []string
	FrontmatterFiles      int
	HasNonStandardMarkers bool
	Files                 []FileEntry // publishable files, workspace-relative, sorted
}

// FileEntry is one publishable file found by a scan.
type FileEntry struct {
	RelPath string
	Size    int64
}

// ValidationError is a blocking content/configuration finding.
type ValidationError struct {
	Kind    errors.Kind
	File    string
	Line    int // 0 when unknown
	Message string
	Fix     string // optional remediation suggestion
}

// ValidationWarning is a non-blocking finding.
type ValidationWarning struct {
	Kind    errors.Kind
	File    string
	Message string
}

// ValidationResult is the outcome of validating a workspace, together with
// the summary it was computed against.
type ValidationResult struct {
	IsValid  bool
	Errors   []ValidationError
	Warnings []ValidationWarning
	Summary  ContentSummary
}

// ErrorStrings renders the errors for embedding into a build record.
func (r ValidationResult) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msg := string(e.Kind) + ": " + e.File
		if e.Line > 0 {
			msg += ":" + strconv.Itoa(e.Line)
		}
		msg += ": " + e.Message
		out = append(out, msg)
	}
	return out
}

// WarningStrings renders the warnings for embedding into a build record.
func (r ValidationResult) WarningStrings() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		msg := string(w.Kind) + ": "
		if w.File != "" {
			msg += w.File + ": "
		}
		msg += w.Message
		out = append(out, msg)
	}
	return out
}
