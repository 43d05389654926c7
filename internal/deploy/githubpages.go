package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/notepress/notepress/internal/config"
	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/observability"
	"github.com/notepress/notepress/internal/retry"
)

// GitOps abstracts the remote git operations so publish logic can be tested
// without a live remote.
type GitOps interface {
	// ValidateAccess checks that the remote exists and the credentials can
	// read it. Called before any file is staged.
	ValidateAccess(ctx context.Context, repoURL, token string) error
	// PushTree commits the staged directory as a single snapshot commit and
	// force-pushes it to the branch. Returns the pushed commit hash.
	PushTree(ctx context.Context, stageDir, repoURL, branch, token, message string) (string, error)
	// RemoteHead returns the current commit hash of the branch on the remote,
	// or an empty string if the branch does not exist yet.
	RemoteHead(ctx context.Context, repoURL, branch, token string) (string, error)
}

// GitHubPagesProvider publishes the build output to a GitHub Pages branch.
// Access is validated up front so misconfigured credentials fail before any
// files are staged.
type GitHubPagesProvider struct {
	git      GitOps
	policy   retry.Policy
	recorder observability.Recorder
	now      func() time.Time
}

func NewGitHubPagesProvider(policy retry.Policy, recorder observability.Recorder) *GitHubPagesProvider {
	return &GitHubPagesProvider{
		git:      &goGitOps{},
		policy:   policy,
		recorder: recorder,
		now:      time.Now,
	}
}

func (p *GitHubPagesProvider) Name() string { return string(config.ProviderGitHubPages) }

func (p *GitHubPagesProvider) Publish(ctx context.Context, buildOutputDir string, target config.TargetConfig) (Result, error) {
	start := p.now()

	if err := p.validateTarget(target); err != nil {
		return failure(err.Error()), err
	}
	repoURL := fmt.Sprintf("https://github.com/%s.git", target.Repository)
	branch := target.Branch
	if branch == "" {
		branch = "gh-pages"
	}

	// Fail fast on access problems before touching any files.
	if err := p.git.ValidateAccess(ctx, repoURL, target.Token); err != nil {
		p.recorder.IncDeployOutcome(p.Name(), "error")
		return failure("repository access check failed"), apperrors.Wrap(err, apperrors.KindDependency, "cannot access deploy repository").
			Remedy("verify deploy.target.repository and that the token has push permission").Build()
	}

	stageDir, err := os.MkdirTemp("", "notepress-deploy-*")
	if err != nil {
		return failure(err.Error()), apperrors.Wrap(err, apperrors.KindResource, "cannot create deploy staging directory").Build()
	}
	defer os.RemoveAll(stageDir)

	if err := p.stage(ctx, buildOutputDir, stageDir, target); err != nil {
		p.recorder.IncDeployOutcome(p.Name(), "error")
		return failure(err.Error()), err
	}

	message := "Publish site " + p.now().UTC().Format(time.RFC3339)
	pushed, err := p.git.PushTree(ctx, stageDir, repoURL, branch, target.Token, message)
	if err != nil {
		p.recorder.IncDeployOutcome(p.Name(), "error")
		return failure("push failed"), apperrors.Wrap(err, apperrors.KindDependency, "pushing site to deploy branch failed").Build()
	}
	slog.Info("site pushed", "repository", target.Repository, "branch", branch, "commit", pushed)

	if err := p.awaitRemote(ctx, repoURL, branch, target, pushed); err != nil {
		p.recorder.IncDeployOutcome(p.Name(), "error")
		return failure(err.Error()), err
	}

	p.recorder.IncDeployOutcome(p.Name(), "success")
	p.recorder.ObserveDeployDuration(p.Name(), p.now().Sub(start))
	return Result{Success: true, URL: p.siteURL(target)}, nil
}

func (p *GitHubPagesProvider) validateTarget(target config.TargetConfig) error {
	if !strings.Contains(target.Repository, "/") {
		return apperrors.New(apperrors.KindConfiguration, "deploy repository must be in owner/name form").
			Remedy("set deploy.target.repository to e.g. alice/notes-site").Build()
	}
	if target.Token == "" {
		return apperrors.New(apperrors.KindConfiguration, "deploy token is missing").
			Remedy("set NOTEPRESS_DEPLOY_TOKEN or deploy.target.token").Build()
	}
	return nil
}

// stage lays out the publish tree: the build output plus the Pages workflow
// descriptor and a deploy manifest recording what was published.
func (p *GitHubPagesProvider) stage(ctx context.Context, buildOutputDir, stageDir string, target config.TargetConfig) error {
	if err := copyTree(ctx, buildOutputDir, stageDir); err != nil {
		return apperrors.Wrap(err, apperrors.KindSystem, "staging build output failed").Build()
	}
	// Pages must serve the tree verbatim, without Jekyll processing.
	if err := os.WriteFile(filepath.Join(stageDir, ".nojekyll"), nil, 0o644); err != nil {
		return err
	}
	if target.CustomDomain != "" {
		if err := os.WriteFile(filepath.Join(stageDir, "CNAME"), []byte(target.CustomDomain+"\n"), 0o644); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Join(stageDir, ".github", "workflows"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(stageDir, ".github", "workflows", "pages.yml"), []byte(pagesWorkflow), 0o644); err != nil {
		return err
	}
	manifest := struct {
		PublishedAt string `json:"published_at"`
		Repository  string `json:"repository"`
		Domain      string `json:"custom_domain,omitempty"`
	}{
		PublishedAt: p.now().UTC().Format(time.RFC3339),
		Repository:  target.Repository,
		Domain:      target.CustomDomain,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(stageDir, "deploy-manifest.json"), data, 0o644)
}

// awaitRemote polls the remote branch until it reports the pushed commit.
// Polling stops at whichever comes first: the wall-clock budget or the
// policy's retry count. Either way the build artifacts stay on disk for a
// retry.
func (p *GitHubPagesProvider) awaitRemote(ctx context.Context, repoURL, branch string, target config.TargetConfig, want string) error {
	budget := target.PollTimeout
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	deadline := p.now().Add(budget)
	for attempt := 0; ; attempt++ {
		head, err := p.git.RemoteHead(ctx, repoURL, branch, target.Token)
		if err == nil && head == want {
			return nil
		}
		if err != nil {
			slog.Debug("deploy status poll failed", "attempt", attempt, "error", err)
		}
		delay := p.policy.Delay(attempt)
		if attempt >= p.policy.MaxRetries || p.now().Add(delay).After(deadline) {
			return apperrors.New(apperrors.KindDependency, "deploy confirmation timed out").
				Remedy("check the repository's Pages settings and re-run deploy").Build()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *GitHubPagesProvider) siteURL(target config.TargetConfig) string {
	if target.CustomDomain != "" {
		return "https://" + target.CustomDomain + "/"
	}
	owner, name, _ := strings.Cut(target.Repository, "/")
	return fmt.Sprintf("https://%s.github.io/%s/", owner, name)
}

const pagesWorkflow = `name: pages
on:
  push:
    branches: ["gh-pages"]
permissions:
  contents: read
  pages: write
  id-token: write
jobs:
  deploy:
    runs-on: ubuntu-latest
    environment:
      name: github-pages
    steps:
      - uses: actions/checkout@v4
      - uses: actions/upload-pages-artifact@v3
        with:
          path: .
      - id: deployment
        uses: actions/deploy-pages@v4
`
