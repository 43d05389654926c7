package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepress/notepress/internal/config"
	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/retry"
)

type fakeGitOps struct {
	accessErr  error
	pushCalls  int
	pushedHash string
	remoteHash string
	headErr    error
	headCalls  int
}

func (f *fakeGitOps) ValidateAccess(ctx context.Context, repoURL, token string) error {
	return f.accessErr
}

func (f *fakeGitOps) PushTree(ctx context.Context, stageDir, repoURL, branch, token, message string) (string, error) {
	f.pushCalls++
	return f.pushedHash, nil
}

func (f *fakeGitOps) RemoteHead(ctx context.Context, repoURL, branch, token string) (string, error) {
	f.headCalls++
	return f.remoteHash, f.headErr
}

func fastPolicy() retry.Policy {
	return retry.Policy{Mode: retry.BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
}

func newTestPagesProvider(ops GitOps) *GitHubPagesProvider {
	p := NewGitHubPagesProvider(fastPolicy(), observability.NoopRecorder{})
	p.git = ops
	return p
}

func buildOutput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "a.html"), []byte("a"), 0o644))
	return dir
}

func TestGitHubPagesAccessFailureBeforeStaging(t *testing.T) {
	ops := &fakeGitOps{accessErr: errors.New("authentication required")}
	p := newTestPagesProvider(ops)

	result, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:   config.ProviderGitHubPages,
		Repository: "alice/notes",
		Token:      "tok",
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, apperrors.KindDependency, apperrors.KindOf(err))
	assert.Zero(t, ops.pushCalls, "nothing must be staged or pushed when access validation fails")
}

func TestGitHubPagesMissingTokenIsConfigurationError(t *testing.T) {
	p := newTestPagesProvider(&fakeGitOps{})

	_, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:   config.ProviderGitHubPages,
		Repository: "alice/notes",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestGitHubPagesSuccessURL(t *testing.T) {
	ops := &fakeGitOps{pushedHash: "abc123", remoteHash: "abc123"}
	p := newTestPagesProvider(ops)

	result, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:    config.ProviderGitHubPages,
		Repository:  "alice/notes",
		Token:       "tok",
		PollTimeout: time.Second,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "https://alice.github.io/notes/", result.URL)
	assert.Equal(t, 1, ops.pushCalls)
}

func TestGitHubPagesCustomDomainURL(t *testing.T) {
	ops := &fakeGitOps{pushedHash: "abc123", remoteHash: "abc123"}
	p := newTestPagesProvider(ops)

	result, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:     config.ProviderGitHubPages,
		Repository:   "alice/notes",
		Token:        "tok",
		CustomDomain: "notes.example.com",
		PollTimeout:  time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com/", result.URL)
}

func TestGitHubPagesStagingFailureIsResourceError(t *testing.T) {
	// Access validation passes but the staging temp dir cannot be created.
	ops := &fakeGitOps{pushedHash: "abc123"}
	p := newTestPagesProvider(ops)
	out := buildOutput(t)
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	result, err := p.Publish(context.Background(), out, config.TargetConfig{
		Provider:   config.ProviderGitHubPages,
		Repository: "alice/notes",
		Token:      "tok",
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, apperrors.KindResource, apperrors.KindOf(err))
	assert.Zero(t, ops.pushCalls)
}

func TestGitHubPagesPollTimeoutFailsDeploy(t *testing.T) {
	// Remote never reports the pushed commit, so polling must give up within
	// the configured budget and report a deploy failure.
	ops := &fakeGitOps{pushedHash: "abc123", remoteHash: "stale"}
	p := newTestPagesProvider(ops)

	result, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:    config.ProviderGitHubPages,
		Repository:  "alice/notes",
		Token:       "tok",
		PollTimeout: 20 * time.Millisecond,
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, apperrors.KindDependency, apperrors.KindOf(err))
}

func TestGitHubPagesPollStopsAfterRetryBudget(t *testing.T) {
	// A generous wall-clock budget must not keep polling past the policy's
	// retry count.
	ops := &fakeGitOps{pushedHash: "abc123", remoteHash: "stale"}
	p := newTestPagesProvider(ops)

	result, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider:    config.ProviderGitHubPages,
		Repository:  "alice/notes",
		Token:       "tok",
		PollTimeout: time.Hour,
	})

	require.Error(t, err)
	assert.False(t, result.Success)
	// fastPolicy allows 2 retries: the initial poll plus two more.
	assert.Equal(t, 3, ops.headCalls)
}

func TestManualExportIsIdempotent(t *testing.T) {
	out := buildOutput(t)
	exportDir := t.TempDir()
	p := NewManualExportProvider(observability.NoopRecorder{})
	target := config.TargetConfig{Provider: config.ProviderManualExport, ExportPath: exportDir}

	first, err := p.Publish(context.Background(), out, target)
	require.NoError(t, err)
	second, err := p.Publish(context.Background(), out, target)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.NotEqual(t, first.URL, second.URL, "each export must land in its own destination")

	for _, dest := range []string{first.URL, second.URL} {
		_, err := os.Stat(filepath.Join(dest, "index.html"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(dest, "notes", "a.html"))
		assert.NoError(t, err)
	}

	// The build output itself must be untouched.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestManualExportArchive(t *testing.T) {
	out := buildOutput(t)
	exportDir := t.TempDir()
	p := NewManualExportProvider(observability.NoopRecorder{})

	result, err := p.Publish(context.Background(), out, config.TargetConfig{
		Provider:      config.ProviderManualExport,
		ExportPath:    exportDir,
		ExportArchive: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, filepath.Ext(result.URL) == ".gz")
	info, err := os.Stat(result.URL)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestManualExportMissingPathIsConfigurationError(t *testing.T) {
	p := NewManualExportProvider(observability.NoopRecorder{})

	_, err := p.Publish(context.Background(), buildOutput(t), config.TargetConfig{
		Provider: config.ProviderManualExport,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
}

func TestForTarget(t *testing.T) {
	p, err := ForTarget(config.TargetConfig{Provider: config.ProviderGitHubPages}, nil)
	require.NoError(t, err)
	assert.Equal(t, "github-pages", p.Name())

	p, err = ForTarget(config.TargetConfig{Provider: config.ProviderManualExport}, nil)
	require.NoError(t, err)
	assert.Equal(t, "manual-export", p.Name())

	_, err = ForTarget(config.TargetConfig{Provider: "ftp"}, nil)
	assert.Error(t, err)
}
