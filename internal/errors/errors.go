// Package errors provides classified errors for the publish pipeline.
// Every error carries a kind, a human-readable message, an optional file/line
// location and a remediation hint that can be surfaced to the user as-is.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the broad classification of a pipeline error. It drives both
// propagation policy (content/configuration errors block before the build
// tool is spawned) and user-facing presentation.
type Kind string

const (
	// KindSystem covers missing or incompatible runtimes and tool versions,
	// and host-level shortages such as disk or memory.
	KindSystem Kind = "system"

	// KindDependency covers dependency install failures and lockfile mismatches.
	KindDependency Kind = "dependency"

	// KindContent covers broken internal links, malformed frontmatter and
	// size-limit violations found in the workspace itself.
	KindContent Kind = "content"

	// KindConfiguration covers invalid generated configuration and missing
	// required generated files.
	KindConfiguration Kind = "configuration"

	// KindResource covers timeouts, killed processes and mid-write disk
	// exhaustion.
	KindResource Kind = "resource"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSystem, KindDependency, KindContent, KindConfiguration, KindResource:
		return true
	}
	return false
}

// Blocking reports whether errors of this kind are surfaced before the build
// tool subprocess is spawned. system/dependency/resource conditions are only
// discoverable once the subprocess runs.
func (k Kind) Blocking() bool {
	return k == KindContent || k == KindConfiguration
}

// Error is a classified pipeline error.
type Error struct {
	kind        Kind
	message     string
	file        string
	line        int
	remediation string
	cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.file != "" && e.line > 0:
		return fmt.Sprintf("[%s] %s:%d: %s", e.kind, e.file, e.line, e.message)
	case e.file != "":
		return fmt.Sprintf("[%s] %s: %s", e.kind, e.file, e.message)
	case e.cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.kind, e.message)
}

// Unwrap supports errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the bare message without classification prefix.
func (e *Error) Message() string { return e.message }

// File returns the related file path, or "".
func (e *Error) File() string { return e.file }

// Line returns the related line number, or 0.
func (e *Error) Line() int { return e.line }

// Remediation returns the suggested fix, or "".
func (e *Error) Remediation() string { return e.remediation }

// Is matches errors of the same kind and message, so sentinel-style
// comparisons work across wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.kind == other.kind && e.message == other.message
}

// Builder assembles classified errors fluently.
type Builder struct {
	err Error
}

// New starts a builder for a fresh classified error.
func New(kind Kind, message string) *Builder {
	return &Builder{err: Error{kind: kind, message: message}}
}

// Wrap starts a builder wrapping an underlying cause.
func Wrap(cause error, kind Kind, message string) *Builder {
	return &Builder{err: Error{kind: kind, message: message, cause: cause}}
}

// AtFile attaches a file path.
func (b *Builder) AtFile(file string) *Builder {
	b.err.file = file
	return b
}

// AtLine attaches a line number.
func (b *Builder) AtLine(line int) *Builder {
	b.err.line = line
	return b
}

// Remedy attaches a remediation hint.
func (b *Builder) Remedy(suggestion string) *Builder {
	b.err.remediation = suggestion
	return b
}

// Build finalizes the error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// KindOf extracts the Kind from any error in err's chain, or "" if the chain
// contains no classified error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind
	}
	return ""
}

// AsClassified returns the first classified error in err's chain.
func AsClassified(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}
