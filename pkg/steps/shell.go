package steps

import (
	"context"
	"fmt"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// ShellStepName names the default shell step.
const ShellStepName = "default-shell"

// DefaultShell makes the configured shell the user's login shell.
func DefaultShell(d *Deps, cfg config.ShellConfig) engine.Step {
	return engine.Isolated(ShellStepName, engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			current, err := system.LoginShell(d.PasswdPath, rc.Username)
			if err != nil || current != cfg.Path {
				return false, ""
			}
			return true, fmt.Sprintf("login shell already %s", cfg.Path)
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			if _, err := d.LookPath(cfg.Path); err != nil {
				return fmt.Errorf("shell %s not found", cfg.Path)
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			return system.ChangeShell(ctx, d.Runner, rc.Username, cfg.Path)
		},
	})
}
