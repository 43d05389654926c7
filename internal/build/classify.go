package build

import (
	"strings"

	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/logstore"
)

// signature matches one known failure pattern in build tool output.
type signature struct {
	substr string
	kind   apperrors.Kind
	remedy string
}

// Order matters: more specific substrings come first. Matching is
// case-insensitive on the whole line.
var signatures = []signature{
	{"javascript heap out of memory", apperrors.KindResource, "raise the node heap limit with NODE_OPTIONS=--max-old-space-size"},
	{"no space left on device", apperrors.KindResource, "free disk space and rebuild"},
	{"enospc", apperrors.KindResource, "free disk space and rebuild"},
	{"enomem", apperrors.KindResource, "close other processes or add memory"},

	{"unsupported engine", apperrors.KindDependency, "install the node version the build tool requires"},
	{"required node version", apperrors.KindDependency, "install the node version the build tool requires"},
	{"version mismatch", apperrors.KindDependency, "align the installed tool version with the configured one"},
	{"cannot find module", apperrors.KindDependency, "run the install command to restore node_modules"},
	{"command not found", apperrors.KindDependency, "install the build tool and ensure it is on PATH"},
	{"npm err! 404", apperrors.KindDependency, "check the package name and registry access"},
	{"missing dependency", apperrors.KindDependency, "run the install command to restore node_modules"},
	{"eresolve", apperrors.KindDependency, "resolve the conflicting package versions"},

	{"invalid configuration", apperrors.KindConfiguration, "fix the generated site configuration"},
	{"failed to parse config", apperrors.KindConfiguration, "fix the generated site configuration"},
	{"unknown option", apperrors.KindConfiguration, "remove the unsupported option from the site configuration"},
}

// warnMarkers flag output lines worth surfacing without failing the build.
var warnMarkers = []string{"warn", "deprecated"}

// Classify inspects one line of build tool output. It returns the error kind
// for lines matching a known failure signature, together with a remediation
// hint.
func Classify(line string) (apperrors.Kind, string, bool) {
	lower := strings.ToLower(line)
	for _, sig := range signatures {
		if strings.Contains(lower, sig.substr) {
			return sig.kind, sig.remedy, true
		}
	}
	return "", "", false
}

// LevelFor maps a build tool output line to a log level for persistence.
func LevelFor(line string, stderr bool) logstore.Level {
	if _, _, matched := Classify(line); matched {
		return logstore.LevelError
	}
	lower := strings.ToLower(line)
	for _, marker := range warnMarkers {
		if strings.Contains(lower, marker) {
			return logstore.LevelWarning
		}
	}
	if stderr {
		return logstore.LevelWarning
	}
	return logstore.LevelProgress
}
