// Package watch keeps a workspace continuously published: filesystem changes
// trigger debounced rebuilds and an optional cron schedule triggers periodic
// deploys.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/notepress/notepress/internal/build"
	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/deploy"
	"github.com/notepress/notepress/internal/state"
)

// Pipeline is the slice of the service the session drives.
type Pipeline interface {
	RequestBuild(ctx context.Context) (state.BuildRecord, error)
	RequestDeploy(ctx context.Context, skipBuild bool) (deploy.Result, error)
}

// Session is one long-running watch run over a single workspace.
type Session struct {
	cfg      *config.Config
	pipeline Pipeline
	events   Publisher
}

func NewSession(cfg *config.Config, pipeline Pipeline) (*Session, error) {
	var events Publisher = NoopPublisher{}
	if cfg.Watch.NATSURL != "" {
		pub, err := NewNATSPublisher(cfg.Watch.NATSURL, cfg.Watch.NATSSubject)
		if err != nil {
			return nil, err
		}
		events = pub
	}
	return &Session{cfg: cfg, pipeline: pipeline, events: events}, nil
}

// Run blocks until ctx is cancelled, rebuilding on workspace changes and
// deploying on the configured schedule.
func (s *Session) Run(ctx context.Context) error {
	defer s.events.Close()

	watcher, err := NewWatcher(s.cfg.Workspace, s.cfg.Watch.Debounce)
	if err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if s.cfg.Watch.Schedule != "" {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.CronJob(s.cfg.Watch.Schedule, false),
			gocron.NewTask(s.scheduledDeploy, ctx),
			gocron.WithName("scheduled-deploy"),
		)
		if err != nil {
			return fmt.Errorf("scheduling periodic deploy: %w", err)
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Warn("scheduler shutdown failed", "error", err)
			}
		}()
		slog.Info("scheduled deploys enabled", "cron", s.cfg.Watch.Schedule)
	}

	slog.Info("watching workspace", "root", s.cfg.Workspace, "debounce", s.cfg.Watch.Debounce)
	err = watcher.Run(ctx, func() { s.rebuild(ctx) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// rebuild runs one build. A build already in flight means the change burst
// will be picked up by a later trigger; the event is dropped, not queued.
func (s *Session) rebuild(ctx context.Context) {
	s.publish(Event{Type: "build.started"})
	rec, err := s.pipeline.RequestBuild(ctx)
	switch {
	case errors.Is(err, build.ErrBuildInProgress):
		slog.Debug("change ignored, build already running")
		return
	case err != nil:
		slog.Error("rebuild failed", "error", err)
		s.publish(Event{Type: "build.finished", BuildID: rec.ID, Status: string(rec.Status), Error: err.Error()})
		return
	}
	slog.Info("rebuilt", "build_id", rec.ID, "files", rec.FilesProcessed, "duration", rec.Duration)
	s.publish(Event{Type: "build.finished", BuildID: rec.ID, Status: string(rec.Status)})
}

func (s *Session) scheduledDeploy(ctx context.Context) {
	result, err := s.pipeline.RequestDeploy(ctx, false)
	if err != nil {
		slog.Error("scheduled deploy failed", "error", err)
		s.publish(Event{Type: "deploy.finished", Status: "error", Error: err.Error()})
		return
	}
	slog.Info("scheduled deploy complete", "url", result.URL)
	s.publish(Event{Type: "deploy.finished", Status: "success", URL: result.URL})
}

func (s *Session) publish(ev Event) {
	ev.Workspace = s.cfg.Workspace
	ev.Timestamp = time.Now().UTC()
	s.events.Publish(ev)
}
