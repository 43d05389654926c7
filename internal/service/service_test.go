package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepress/notepress/internal/build"
	"github.com/notepress/notepress/internal/config"
	"github.com/notepress/notepress/internal/state"
)

func testService(t *testing.T) *Service {
	t.Helper()
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "index.md"), []byte("# Home\n"), 0o644))
	cfg := &config.Config{
		Workspace: ws,
		Site:      config.SiteConfig{Title: "Notes"},
		Build: config.BuildConfig{
			ToolCommand: "npx quartz build",
			DataDir:     filepath.Join(ws, ".notepress"),
		},
		Deploy: config.TargetConfig{Provider: config.ProviderManualExport, ExportPath: filepath.Join(ws, "export")},
	}
	svc, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{nil, ExitOK},
		{fmt.Errorf("wrapped: %w", build.ErrValidationBlocked), ExitValidationBlocked},
		{fmt.Errorf("wrapped: %w", build.ErrBuildFailed), ExitBuildFailed},
		{build.ErrBuildInProgress, ExitBuildFailed},
		{fmt.Errorf("wrapped: %w", build.ErrDeployFailed), ExitDeployFailed},
		{build.ErrNoBuildOutput, ExitDeployFailed},
		{build.ErrCancelled, ExitCancelled},
		{context.Canceled, ExitCancelled},
		{errors.New("something else"), ExitFailure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, ExitCode(tc.err), "%v", tc.err)
	}
}

func TestStatusOnFreshWorkspace(t *testing.T) {
	svc := testService(t)

	report := svc.Status()

	assert.Equal(t, state.StatusNotInitialized, report.Status)
	assert.Zero(t, report.Builds)
	assert.Nil(t, report.LastBuild)
	assert.Empty(t, report.LastDeployURL)
}

func TestScanAndValidate(t *testing.T) {
	svc := testService(t)

	summary, err := svc.Scan()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarkdownFiles)

	result, err := svc.Validate()
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestBuildLogsWithoutHistory(t *testing.T) {
	svc := testService(t)

	lines, err := svc.BuildLogs(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, lines)
}
