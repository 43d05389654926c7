package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepress/notepress/internal/build"
	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/deploy"
	"github.com/notepress/notepress/internal/state"
)

type fakePipeline struct {
	mu        sync.Mutex
	buildErr  error
	builds    int
	deploys   int
	deployErr error
}

func (f *fakePipeline) RequestBuild(ctx context.Context) (state.BuildRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	return state.BuildRecord{ID: "b1", Status: state.BuildSuccess}, f.buildErr
}

func (f *fakePipeline) RequestDeploy(ctx context.Context, skipBuild bool) (deploy.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deploys++
	return deploy.Result{Success: f.deployErr == nil, URL: "https://example.com/"}, f.deployErr
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (c *capturePublisher) Publish(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturePublisher) Close() {}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

func TestWatcherDebouncesBurstsIntoOneTrigger(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, 100*time.Millisecond)
	require.NoError(t, err)

	var triggers atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx, func() { triggers.Add(1) })
		close(done)
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "note.md"), []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return triggers.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 1, triggers.Load(), "a burst of writes must collapse into one trigger")

	cancel()
	<-done
}

func TestWatcherIgnoresInternalDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".notepress", "builds"), 0o755))
	w, err := NewWatcher(root, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.fsw.Close()

	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, ".notepress", "builds", "x"), Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "node_modules", "pkg", "index.js"), Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "note.md"), Op: fsnotify.Chmod}))
	assert.True(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "notes", "a.md"), Op: fsnotify.Write}))
}

func TestSessionRebuildPublishesLifecycleEvents(t *testing.T) {
	cfg := &config.Config{Workspace: t.TempDir()}
	pipeline := &fakePipeline{}
	events := &capturePublisher{}
	s := &Session{cfg: cfg, pipeline: pipeline, events: events}

	s.rebuild(context.Background())

	assert.Equal(t, 1, pipeline.builds)
	assert.Equal(t, []string{"build.started", "build.finished"}, events.types())
}

func TestSessionIgnoresBuildInProgress(t *testing.T) {
	cfg := &config.Config{Workspace: t.TempDir()}
	pipeline := &fakePipeline{buildErr: build.ErrBuildInProgress}
	events := &capturePublisher{}
	s := &Session{cfg: cfg, pipeline: pipeline, events: events}

	s.rebuild(context.Background())

	// Only the start event: an in-flight build swallows the trigger.
	assert.Equal(t, []string{"build.started"}, events.types())
}

func TestSessionScheduledDeploy(t *testing.T) {
	cfg := &config.Config{Workspace: t.TempDir()}
	pipeline := &fakePipeline{}
	events := &capturePublisher{}
	s := &Session{cfg: cfg, pipeline: pipeline, events: events}

	s.scheduledDeploy(context.Background())

	assert.Equal(t, 1, pipeline.deploys)
	require.Equal(t, []string{"deploy.finished"}, events.types())
	assert.Equal(t, "success", events.events[0].Status)
}
