package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/staging"
)

// DotfilesStepName names the dotfiles step.
const DotfilesStepName = "dotfiles"

// Dotfiles clones the dotfiles repository, copies its content into the
// home directory and keeps the checkout at the configured target.
func Dotfiles(d *Deps, cfg config.DotfilesConfig) engine.Step {
	return engine.Isolated(DotfilesStepName, engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			target := inHome(rc, cfg.Target)
			remote, err := d.Git.RemoteURL(ctx, target, credential(rc))
			if err != nil || remote != cfg.Repo {
				return false, ""
			}
			return true, fmt.Sprintf("%s already checked out", target)
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			if _, err := d.LookPath("git"); err != nil {
				return fmt.Errorf("git not found")
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			return staging.WithDir(d.StagingDir, "froyodesk-dotfiles-*", func(dir string) error {
				clone := filepath.Join(dir, "repo")
				if err := d.Git.ShallowClone(ctx, cfg.Repo, cfg.Branch, clone); err != nil {
					return err
				}

				entries, err := os.ReadDir(clone)
				if err != nil {
					return fmt.Errorf("failed to read checkout: %w", err)
				}
				if err := staging.CopyTree(clone, rc.UserHome, ".git"); err != nil {
					return err
				}
				for _, e := range entries {
					if e.Name() == ".git" {
						continue
					}
					if err := staging.ChownTree(filepath.Join(rc.UserHome, e.Name()), rc.UID, rc.GID); err != nil {
						return err
					}
				}

				target, err := mkdirOwned(rc, cfg.Target)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", cfg.Target, err)
				}
				if err := staging.CopyTree(clone, target); err != nil {
					return err
				}
				if err := staging.ChownTree(target, rc.UID, rc.GID); err != nil {
					return err
				}

				d.Logger.Info().
					Str("repo", cfg.Repo).
					Int("entries", len(entries)).
					Str("target", target).
					Msg("Deployed dotfiles")
				return nil
			})
		},
	})
}
