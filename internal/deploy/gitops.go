package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// goGitOps is the production GitOps implementation backed by go-git.
type goGitOps struct{}

func tokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	// GitHub accepts any username with a token over HTTPS basic auth.
	return &githttp.BasicAuth{Username: "token", Password: token}
}

func (g *goGitOps) ValidateAccess(ctx context.Context, repoURL, token string) error {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	_, err := remote.ListContext(ctx, &git.ListOptions{Auth: tokenAuth(token)})
	if err != nil {
		return fmt.Errorf("listing remote references: %w", err)
	}
	return nil
}

func (g *goGitOps) RemoteHead(ctx context.Context, repoURL, branch, token string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: tokenAuth(token)})
	if err != nil {
		return "", fmt.Errorf("listing remote references: %w", err)
	}
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash().String(), nil
		}
	}
	return "", nil
}

func (g *goGitOps) PushTree(ctx context.Context, stageDir, repoURL, branch, token, message string) (string, error) {
	repo, err := git.PlainInit(stageDir, false)
	if err != nil {
		return "", fmt.Errorf("initializing staging repository: %w", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	}); err != nil {
		return "", fmt.Errorf("configuring remote: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := wt.AddGlob("."); err != nil {
		return "", fmt.Errorf("staging files: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "notepress", Email: "notepress@localhost", When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("committing site snapshot: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	// The publish branch is a sequence of full snapshots, so history on the
	// remote is always replaced.
	refspec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", head.Name(), plumbing.NewBranchReferenceName(branch)))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       tokenAuth(token),
		Force:      true,
	})
	if err != nil {
		return "", fmt.Errorf("pushing to %s: %w", branch, err)
	}
	return hash.String(), nil
}
