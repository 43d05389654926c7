// Package deploy publishes a completed build output directory to a hosting
// target. The provider set is deliberately closed: each target has materially
// different validation and publish semantics.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/retry"
)

// Result is the outcome of one publish attempt.
type Result struct {
	Success bool
	URL     string // monitorable URL (GitHub Pages) or export path (manual)
	Error   string // populated when Success is false
}

// Provider publishes a build output directory. Implementations must be
// idempotent (re-running publish with the same output is safe) and must never
// mutate the build output directory in place.
type Provider interface {
	Name() string
	Publish(ctx context.Context, buildOutputDir string, target config.TargetConfig) (Result, error)
}

// ForTarget returns the provider for the configured target.
func ForTarget(target config.TargetConfig, recorder observability.Recorder) (Provider, error) {
	if recorder == nil {
		recorder = observability.NoopRecorder{}
	}
	switch target.Provider {
	case config.ProviderGitHubPages:
		// Pages can take a while to pick up a push; back off exponentially
		// and give up after the retry budget even if the poll timeout has
		// headroom left.
		policy := retry.NewPolicy(retry.BackoffExponential, 2*time.Second, 30*time.Second, 10)
		return NewGitHubPagesProvider(policy, recorder), nil
	case config.ProviderManualExport:
		return NewManualExportProvider(recorder), nil
	}
	return nil, fmt.Errorf("unknown deploy provider %q", target.Provider)
}
