// Package service is the trigger surface over the publish pipeline: it wires
// the state store, log store and orchestrator together and maps pipeline
// outcomes to process exit codes.
package service

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/notepress/notepress/internal/build"
	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/content"
	"github.com/notepress/notepress/internal/deploy"
	"github.com/notepress/notepress/internal/logstore"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/state"
)

// Process exit codes for scripted callers.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitValidationBlocked = 2
	ExitBuildFailed       = 3
	ExitDeployFailed      = 4
	ExitCancelled         = 5
)

// ExitCode maps a pipeline error to the documented exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, build.ErrValidationBlocked):
		return ExitValidationBlocked
	case errors.Is(err, build.ErrCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, build.ErrDeployFailed), errors.Is(err, build.ErrNoBuildOutput):
		return ExitDeployFailed
	case errors.Is(err, build.ErrBuildFailed), errors.Is(err, build.ErrBuildInProgress):
		return ExitBuildFailed
	}
	return ExitFailure
}

// Service owns one workspace's pipeline components for the lifetime of a
// command or watch session.
type Service struct {
	cfg   *config.Config
	store *state.Store
	logs  *logstore.Store
	orch  *build.Orchestrator
}

func New(cfg *config.Config, recorder observability.Recorder) (*Service, error) {
	store, err := state.NewStore(cfg.Build.DataDir, cfg)
	if err != nil {
		return nil, err
	}
	logs, err := logstore.Open(filepath.Join(cfg.Build.DataDir, "build-logs.db"))
	if err != nil {
		return nil, err
	}
	orch, err := build.NewOrchestrator(cfg, store, logs, recorder)
	if err != nil {
		logs.Close()
		return nil, err
	}
	return &Service{cfg: cfg, store: store, logs: logs, orch: orch}, nil
}

func (s *Service) Close() error { return s.logs.Close() }

// Init prepares the environment and moves a fresh workspace to ready.
func (s *Service) Init(ctx context.Context) error { return s.orch.Prepare(ctx) }

// RequestBuild runs one build. A build already in flight is rejected, never
// queued.
func (s *Service) RequestBuild(ctx context.Context) (state.BuildRecord, error) {
	return s.orch.Build(ctx)
}

// RequestDeploy builds (unless skipBuild) and publishes.
func (s *Service) RequestDeploy(ctx context.Context, skipBuild bool) (deploy.Result, error) {
	return s.orch.Deploy(ctx, skipBuild)
}

// Scan summarizes publishable content without building.
func (s *Service) Scan() (content.ContentSummary, error) {
	scanner, err := content.NewScanner(s.cfg.Content)
	if err != nil {
		return content.ContentSummary{}, err
	}
	return scanner.Scan(s.cfg.Workspace)
}

// Validate runs content validation without building.
func (s *Service) Validate() (content.ValidationResult, error) {
	scanner, err := content.NewScanner(s.cfg.Content)
	if err != nil {
		return content.ValidationResult{}, err
	}
	return scanner.Validate(s.cfg.Workspace)
}

// StatusReport is a read-only snapshot for the status command.
type StatusReport struct {
	Status        state.Status
	Workspace     string
	Builds        int
	LastBuild     *state.BuildRecord
	LastBuildAt   *time.Time
	LastDeployAt  *time.Time
	LastDeployURL string
}

func (s *Service) Status() StatusReport {
	dc := s.store.Get()
	return StatusReport{
		Status:        dc.Status,
		Workspace:     dc.Workspace,
		Builds:        len(dc.History),
		LastBuild:     dc.LatestRecord(),
		LastBuildAt:   dc.LastBuildAt,
		LastDeployAt:  dc.LastDeployAt,
		LastDeployURL: dc.LastDeployURL,
	}
}

// BuildLogs returns the persisted log lines for buildID, or for the most
// recent build when buildID is empty.
func (s *Service) BuildLogs(ctx context.Context, buildID string) ([]logstore.Line, error) {
	if buildID == "" {
		dc := s.store.Get()
		latest := dc.LatestRecord()
		if latest == nil {
			return nil, nil
		}
		buildID = latest.ID
	}
	return s.logs.Lines(ctx, buildID)
}
