package system

import (
	"context"
	"fmt"
	"strings"
)

// Git wraps the git command line.
type Git struct {
	runner Runner
}

// NewGit creates a git wrapper.
func NewGit(runner Runner) *Git {
	return &Git{runner: runner}
}

// ShallowClone clones a single branch of repo into dest with depth 1.
func (g *Git) ShallowClone(ctx context.Context, repo, branch, dest string) error {
	args := []string{"clone", "--depth", "1", "--single-branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repo, dest)

	if _, err := g.runner.Run(ctx, Command{Name: "git", Args: args, Env: []string{"GIT_TERMINAL_PROMPT=0"}}); err != nil {
		return fmt.Errorf("failed to clone %s: %w", repo, err)
	}
	return nil
}

// RemoteURL returns the origin URL of the checkout at dir. as should own
// the checkout: git refuses to read a repository owned by another user.
func (g *Git) RemoteURL(ctx context.Context, dir string, as *Credential) (string, error) {
	res, err := g.runner.Run(ctx, Command{
		Name:   "git",
		Args:   []string{"-C", dir, "config", "--get", "remote.origin.url"},
		AsUser: as,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}
