package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// DisplayManagerStepName names the display manager step.
const DisplayManagerStepName = "display-manager"

// DisplayManager enables the configured display manager and writes its
// configuration. Competing display managers are disabled when present;
// errors disabling them are ignored.
func DisplayManager(d *Deps, cfg config.DisplayManagerConfig) engine.Step {
	return engine.Isolated(DisplayManagerStepName, engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			if !d.Services.IsEnabled(ctx, cfg.Unit) {
				return false, ""
			}
			if cfg.ConfigPath != "" && !system.FileMatches(cfg.ConfigPath, []byte(cfg.ConfigContent)) {
				return false, ""
			}
			return true, fmt.Sprintf("%s already enabled and configured", cfg.Unit)
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			if _, err := d.LookPath(cfg.Binary); err != nil {
				return fmt.Errorf("display manager binary %s not found", cfg.Binary)
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			// units installed earlier in the run are unknown to systemd until reloaded
			if err := d.Services.Reload(ctx); err != nil {
				return err
			}

			for _, competing := range cfg.Competing {
				unit, ok := d.Services.Lookup(ctx, competing)
				if !ok {
					continue
				}
				if err := d.Services.Disable(ctx, unit); err != nil {
					d.Logger.Debug().Err(err).Str("unit", unit).Msg("Ignoring failure to disable competing display manager")
				}
			}

			if cfg.ConfigPath != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.ConfigPath), 0o755); err != nil {
					return fmt.Errorf("failed to create %s: %w", filepath.Dir(cfg.ConfigPath), err)
				}
				changed, err := system.WriteFile(cfg.ConfigPath, []byte(cfg.ConfigContent), 0o644)
				if err != nil {
					return err
				}
				if changed {
					d.Logger.Info().Str("path", cfg.ConfigPath).Msg("Wrote display manager config")
				}
			}

			return d.Services.Enable(ctx, cfg.Unit)
		},
	})
}
