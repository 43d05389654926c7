package build

import (
	"context"
	"fmt"

	"github.com/notepress/notepress/internal/deploy"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/state"
	"github.com/notepress/notepress/internal/workspace"
)

// Deploy publishes the site. Unless skipBuild is set, a fresh build runs
// first; with skipBuild the most recent successful build's retained output is
// republished, which is how a failed deploy is retried without rebuilding.
func (o *Orchestrator) Deploy(ctx context.Context, skipBuild bool) (deploy.Result, error) {
	var rec state.BuildRecord
	if skipBuild {
		release, err := o.acquire()
		if err != nil {
			return deploy.Result{}, err
		}
		defer release()
		latest := o.latestSuccess()
		if latest == nil {
			return deploy.Result{}, ErrNoBuildOutput
		}
		rec = *latest
	} else {
		release, err := o.acquire()
		if err != nil {
			return deploy.Result{}, err
		}
		defer release()
		built, err := o.runBuild(ctx)
		if err != nil {
			return deploy.Result{}, err
		}
		rec = built
	}
	return o.publish(ctx, rec)
}

func (o *Orchestrator) latestSuccess() *state.BuildRecord {
	dc := o.store.Get()
	for i := len(dc.History) - 1; i >= 0; i-- {
		if dc.History[i].Status == state.BuildSuccess {
			rec := dc.History[i]
			return &rec
		}
	}
	return nil
}

// publish pushes a finished build's output to the configured target. On
// failure the status moves to error and the build output stays on disk so the
// deploy can be retried.
func (o *Orchestrator) publish(ctx context.Context, rec state.BuildRecord) (deploy.Result, error) {
	logger := observability.BuildLogger(rec.ID)
	outputDir := workspace.NewStaging(o.cfg.Build.DataDir, rec.ID).OutputDir()
	if !hasEntries(outputDir) {
		return deploy.Result{}, fmt.Errorf("%w: build %s output is gone", ErrNoBuildOutput, rec.ID)
	}

	dc := o.store.Get()
	provider, err := o.provider(dc.Target)
	if err != nil {
		return deploy.Result{}, fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}

	if err := o.store.SetStatus(state.StatusBuilding); err != nil {
		return deploy.Result{}, err
	}
	defer func() {
		if o.store.Status() == state.StatusBuilding {
			_ = o.store.SetStatus(state.StatusError)
		}
	}()

	logger.Info("publishing", "provider", provider.Name(), "build_id", rec.ID)
	result, err := provider.Publish(ctx, outputDir, dc.Target)
	if err != nil || !result.Success {
		_ = o.store.SetStatus(state.StatusError)
		if err == nil {
			err = fmt.Errorf("publish reported failure: %s", result.Error)
		}
		logger.Error("publish failed", "provider", provider.Name(), "error", err)
		return result, fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}

	if err := o.store.MarkDeployed(result.URL); err != nil {
		return result, err
	}
	logger.Info("published", "provider", provider.Name(), "url", result.URL)
	return result, nil
}
