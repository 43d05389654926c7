// Package build runs the publish pipeline: validate the workspace, stage
// content, invoke the external build tool and record the outcome. It owns the
// lifecycle status transitions persisted in the state store.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/content"
	"github.com/notepress/notepress/internal/deploy"
	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/integration"
	"github.com/notepress/notepress/internal/logstore"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/plugin"
	"github.com/notepress/notepress/internal/state"
	"github.com/notepress/notepress/internal/workspace"
)

// Sentinel errors distinguishing pipeline outcomes for exit-code mapping.
var (
	ErrBuildInProgress   = errors.New("a build is already in progress")
	ErrValidationBlocked = errors.New("build blocked by validation errors")
	ErrBuildFailed       = errors.New("build failed")
	ErrCancelled         = errors.New("build cancelled")
	ErrDeployFailed      = errors.New("deploy failed")
	ErrNoBuildOutput     = errors.New("no successful build output available")
)

// keepBuilds is how many finished build directories (and their logs) are
// retained for inspection and deploy retries.
const keepBuilds = 5

// Orchestrator coordinates one workspace's builds and deploys. At most one
// pipeline runs at a time; concurrent requests are rejected, never queued.
type Orchestrator struct {
	cfg      *config.Config
	store    *state.Store
	logs     *logstore.Store
	scanner  *content.Scanner
	registry *integration.Registry
	host     *plugin.Host
	recorder observability.Recorder
	runner   CommandRunner
	provider func(config.TargetConfig) (deploy.Provider, error)

	mu      sync.Mutex
	running bool
}

func NewOrchestrator(cfg *config.Config, store *state.Store, logs *logstore.Store, recorder observability.Recorder) (*Orchestrator, error) {
	if recorder == nil {
		recorder = observability.NoopRecorder{}
	}
	scanner, err := content.NewScanner(cfg.Content)
	if err != nil {
		return nil, err
	}
	host := plugin.NewHost(recorder)
	for _, id := range cfg.Site.EnabledPlugins {
		p := plugin.Builtin(id)
		if p == nil {
			slog.Warn("unknown plugin in configuration", "plugin", id)
			continue
		}
		host.Register(p)
	}
	integrationsDir := cfg.Integrations.DataDir
	if integrationsDir == "" {
		integrationsDir = filepath.Join(cfg.Build.DataDir, "data")
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		logs:     logs,
		scanner:  scanner,
		registry: integration.NewRegistry(integrationsDir),
		host:     host,
		recorder: recorder,
		runner:   ExecRunner{},
		provider: func(t config.TargetConfig) (deploy.Provider, error) { return deploy.ForTarget(t, recorder) },
	}, nil
}

// Prepare checks the environment and moves a fresh workspace to ready: the
// build tool must be resolvable and the data directory writable.
func (o *Orchestrator) Prepare(ctx context.Context) error {
	fields := strings.Fields(o.cfg.Build.ToolCommand)
	if len(fields) == 0 {
		return apperrors.New(apperrors.KindConfiguration, "build tool command is empty").
			Remedy("set build.tool_command in the configuration file").Build()
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return apperrors.Wrap(err, apperrors.KindDependency, "build tool is not installed").
			Remedy(fmt.Sprintf("install %q and ensure it is on PATH", fields[0])).Build()
	}
	if err := os.MkdirAll(o.cfg.Build.DataDir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.KindResource, "cannot create data directory").AtFile(o.cfg.Build.DataDir).Build()
	}
	if o.store.Status() == state.StatusNotInitialized {
		return o.store.SetStatus(state.StatusReady)
	}
	return nil
}

// Build runs the full pipeline and returns the finished record. The workspace
// status is building for the duration and never remains building afterwards.
func (o *Orchestrator) Build(ctx context.Context) (state.BuildRecord, error) {
	release, err := o.acquire()
	if err != nil {
		return state.BuildRecord{}, err
	}
	defer release()
	return o.runBuild(ctx)
}

// acquire takes the single-pipeline slot or reports ErrBuildInProgress.
func (o *Orchestrator) acquire() (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running || o.store.Status() == state.StatusBuilding {
		return nil, ErrBuildInProgress
	}
	o.running = true
	return func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}, nil
}

func (o *Orchestrator) runBuild(ctx context.Context) (state.BuildRecord, error) {
	if o.store.Status() == state.StatusNotInitialized {
		if err := o.Prepare(ctx); err != nil {
			return state.BuildRecord{}, err
		}
	}
	if err := o.store.SetStatus(state.StatusBuilding); err != nil {
		return state.BuildRecord{}, err
	}
	// The status must never remain building, whatever happens below.
	defer func() {
		if o.store.Status() == state.StatusBuilding {
			_ = o.store.SetStatus(state.StatusError)
		}
	}()

	start := time.Now()
	buildID := uuid.NewString()
	logger := observability.BuildLogger(buildID)
	logger.Info("build started", "workspace", o.cfg.Workspace)
	o.logLine(ctx, buildID, logstore.LevelProgress, "build started")

	dc := o.store.Get()

	result, err := o.scanner.Validate(o.cfg.Workspace)
	if err != nil {
		return o.finishFailed(ctx, buildID, start, 0, nil,
			apperrors.Wrap(err, apperrors.KindSystem, "workspace scan failed").Build())
	}
	warnings := result.WarningStrings()
	if !result.IsValid {
		if o.cfg.Build.BlockingValidation {
			rec := o.finishRecord(buildID, start, state.BuildError, len(result.Summary.Files), 0, result.ErrorStrings(), warnings)
			o.persistRecord(ctx, rec, state.StatusError, logger)
			return rec, fmt.Errorf("%w: %d error(s)", ErrValidationBlocked, len(result.Errors))
		}
		// Non-blocking mode demotes validation errors to warnings.
		warnings = append(warnings, result.ErrorStrings()...)
	}
	summary := result.Summary
	o.logLine(ctx, buildID, logstore.LevelProgress,
		fmt.Sprintf("scanned %d files (%d markdown)", summary.TotalFiles, summary.MarkdownFiles))

	staging := workspace.NewStaging(o.cfg.Build.DataDir, buildID)
	if err := staging.Create(); err != nil {
		return o.finishFailed(ctx, buildID, start, len(summary.Files), warnings,
			apperrors.Wrap(err, apperrors.KindResource, "creating build staging failed").Build())
	}
	for _, f := range summary.Files {
		if err := staging.StageFile(o.cfg.Workspace, f.RelPath); err != nil {
			return o.finishFailed(ctx, buildID, start, len(summary.Files), warnings,
				apperrors.Wrap(err, apperrors.KindSystem, "staging content failed").AtFile(f.RelPath).Build())
		}
	}

	manifest := o.registry.LoadAll(buildID)
	warnings = append(warnings, manifest.Warnings...)
	pages, pluginWarnings := o.host.Run(manifest, summary.Files)
	warnings = append(warnings, pluginWarnings...)
	for _, page := range pages {
		if err := staging.WritePage(page.Slug, page.Content); err != nil {
			return o.finishFailed(ctx, buildID, start, len(summary.Files), warnings,
				apperrors.Wrap(err, apperrors.KindSystem, "writing plugin page failed").AtFile(page.Slug).Build())
		}
	}
	if err := integration.WriteManifest(manifest, filepath.Join(staging.Root(), "integration-manifest.json")); err != nil {
		return o.finishFailed(ctx, buildID, start, len(summary.Files), warnings,
			apperrors.Wrap(err, apperrors.KindSystem, "writing integration manifest failed").Build())
	}
	if err := WriteToolConfig(staging.SiteDir(), dc.Site, dc.Content); err != nil {
		return o.finishFailed(ctx, buildID, start, len(summary.Files), warnings, err)
	}

	filesProcessed := len(summary.Files) + len(pages)

	if o.cfg.Build.InstallCommand != "" {
		if err := o.runCommand(ctx, buildID, o.cfg.Build.InstallCommand, staging.SiteDir(), o.cfg.Build.InstallTimeout); err != nil {
			return o.finishSubprocess(ctx, buildID, start, filesProcessed, warnings, err)
		}
	}
	if err := o.runCommand(ctx, buildID, o.cfg.Build.ToolCommand, staging.SiteDir(), o.cfg.Build.ToolTimeout); err != nil {
		return o.finishSubprocess(ctx, buildID, start, filesProcessed, warnings, err)
	}

	outputDir, err := o.resolveOutput(staging)
	if err != nil {
		return o.finishFailed(ctx, buildID, start, filesProcessed, warnings, err)
	}
	size := treeSize(outputDir)

	rec := o.finishRecord(buildID, start, state.BuildSuccess, filesProcessed, size, nil, warnings)
	o.persistRecord(ctx, rec, state.StatusReady, logger)
	o.recorder.ObserveFilesProcessed(filesProcessed)
	workspace.PruneOld(o.cfg.Build.DataDir, keepBuilds)
	o.pruneLogs(ctx)
	logger.Info("build succeeded", "files", filesProcessed, "output_bytes", size, "duration", rec.Duration)
	return rec, nil
}

// runCommand executes one build command, streaming output into the log store
// and collecting classified failures. The timeout is this command's own
// wall-clock budget, independent of the caller's context.
func (o *Orchestrator) runCommand(ctx context.Context, buildID, command, dir string, timeout time.Duration) error {
	cmdCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	o.logLine(ctx, buildID, logstore.LevelProgress, "running: "+command)

	proc, err := o.runner.Start(cmdCtx, command, dir)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindDependency, "starting build command failed").
			Remedy("check that the build tool is installed").Build()
	}

	var classified *apperrors.Error
	for line := range proc.Lines() {
		level := LevelFor(line.Text, line.Stderr)
		o.logLine(ctx, buildID, level, line.Text)
		if kind, remedy, ok := Classify(line.Text); ok && classified == nil {
			classified = apperrors.New(kind, line.Text).Remedy(remedy).Build()
		}
	}

	waitErr := proc.Wait()
	if waitErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ErrCancelled, command)
	}
	if cmdCtx.Err() == context.DeadlineExceeded {
		return apperrors.New(apperrors.KindResource, fmt.Sprintf("command timed out after %s: %s", timeout, command)).
			Remedy("raise build.tool_timeout or investigate the hang").Build()
	}
	if classified != nil {
		return classified
	}
	return apperrors.Wrap(waitErr, apperrors.KindSystem, "build command failed: "+command).Build()
}

// finishSubprocess turns a command failure into a finished record, mapping
// cancellation back to ready per the lifecycle contract.
func (o *Orchestrator) finishSubprocess(ctx context.Context, buildID string, start time.Time, files int, warnings []string, err error) (state.BuildRecord, error) {
	logger := observability.BuildLogger(buildID)
	if errors.Is(err, ErrCancelled) {
		rec := o.finishRecord(buildID, start, state.BuildCancelled, files, 0, nil, append(warnings, "build cancelled"))
		o.persistRecord(ctx, rec, state.StatusReady, logger)
		return rec, ErrCancelled
	}
	rec := o.finishRecord(buildID, start, state.BuildError, files, 0, []string{err.Error()}, warnings)
	o.persistRecord(ctx, rec, state.StatusError, logger)
	return rec, fmt.Errorf("%w: %w", ErrBuildFailed, err)
}

func (o *Orchestrator) finishFailed(ctx context.Context, buildID string, start time.Time, files int, warnings []string, err error) (state.BuildRecord, error) {
	logger := observability.BuildLogger(buildID)
	rec := o.finishRecord(buildID, start, state.BuildError, files, 0, []string{err.Error()}, warnings)
	o.persistRecord(ctx, rec, state.StatusError, logger)
	return rec, fmt.Errorf("%w: %w", ErrBuildFailed, err)
}

func (o *Orchestrator) finishRecord(buildID string, start time.Time, status state.BuildStatus, files int, size int64, errs, warnings []string) state.BuildRecord {
	return state.BuildRecord{
		ID:             buildID,
		Timestamp:      start.UTC(),
		Status:         status,
		Duration:       time.Since(start),
		FilesProcessed: files,
		OutputSize:     size,
		Errors:         errs,
		Warnings:       warnings,
	}
}

func (o *Orchestrator) persistRecord(ctx context.Context, rec state.BuildRecord, status state.Status, logger *slog.Logger) {
	if err := o.store.AppendRecord(rec); err != nil {
		logger.Error("persisting build record failed", "error", err)
	}
	if err := o.store.SetStatus(status); err != nil {
		logger.Error("persisting status failed", "error", err)
	}
	o.recorder.ObserveBuildDuration(rec.Duration)
	o.recorder.IncBuildOutcome(string(rec.Status))
	for _, e := range rec.Errors {
		o.logLine(ctx, rec.ID, logstore.LevelError, e)
	}
	for _, w := range rec.Warnings {
		o.logLine(ctx, rec.ID, logstore.LevelWarning, w)
	}
	o.logLine(ctx, rec.ID, logstore.LevelProgress, "build finished: "+string(rec.Status))
}

// resolveOutput locates the rendered site. Tools that write public/ inside
// the site directory get their output moved up to the canonical location.
func (o *Orchestrator) resolveOutput(staging *workspace.Staging) (string, error) {
	canonical := staging.OutputDir()
	if hasEntries(canonical) {
		return canonical, nil
	}
	nested := filepath.Join(staging.SiteDir(), "public")
	if hasEntries(nested) {
		_ = os.RemoveAll(canonical)
		if err := os.Rename(nested, canonical); err != nil {
			return "", apperrors.Wrap(err, apperrors.KindSystem, "relocating build output failed").Build()
		}
		return canonical, nil
	}
	return "", apperrors.New(apperrors.KindSystem, "build tool produced no output").
		Remedy("check the build tool logs for silent failures").Build()
}

func hasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

func treeSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func (o *Orchestrator) logLine(ctx context.Context, buildID string, level logstore.Level, text string) {
	if o.logs == nil {
		return
	}
	// Log persistence must survive pipeline cancellation.
	if err := o.logs.Append(context.WithoutCancel(ctx), buildID, level, text); err != nil {
		slog.Debug("appending build log failed", "error", err)
	}
}

func (o *Orchestrator) pruneLogs(ctx context.Context) {
	if o.logs == nil {
		return
	}
	dc := o.store.Get()
	keep := make([]string, 0, keepBuilds)
	for i := len(dc.History) - 1; i >= 0 && len(keep) < keepBuilds; i-- {
		keep = append(keep, dc.History[i].ID)
	}
	if err := o.logs.Prune(context.WithoutCancel(ctx), keep); err != nil {
		slog.Debug("pruning build logs failed", "error", err)
	}
}
