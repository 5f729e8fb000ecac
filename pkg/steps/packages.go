package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/staging"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// Step names.
const (
	RefreshStepName  = "refresh-package-database"
	PackagesStepName = "install-packages"
)

// Run context keys written by the package step.
const (
	KeyPackageList      = "packages.list"
	KeyPackagesFailed   = "packages.failed"
	KeyPackagesAttempts = "packages.attempted"
)

// packageManager resolves the package manager once per build so both
// package steps agree on it.
type packageManager struct {
	deps *Deps
	pm   *system.PackageManager
	err  error
}

func newPackageManager(d *Deps, cfg config.PackagesConfig) *packageManager {
	pm, err := system.NewPackageManager(d.Runner, cfg.Manager, d.LookPath)
	return &packageManager{deps: d, pm: pm, err: err}
}

func (m *packageManager) present(context.Context, *engine.RunContext) error {
	if m.err != nil {
		return m.err
	}
	if _, err := m.deps.LookPath(m.pm.Name()); err != nil {
		return fmt.Errorf("package manager %s not found: %w", m.pm.Name(), err)
	}
	return nil
}

// refreshPackages synchronizes package metadata and upgrades the system.
// Its failure aborts the run.
func refreshPackages(m *packageManager) engine.Step {
	return engine.Fatal(RefreshStepName, engine.Guard{
		Precondition: m.present,
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			m.deps.progress(fmt.Sprintf("refreshing package database with %s", m.pm.Name()))
			return m.pm.Refresh(ctx)
		},
	})
}

// installPackages loads the package list and installs its active entries.
// A package that fails to install is logged and skipped. Only failing to
// load the list fails the step.
func installPackages(m *packageManager, cfg config.PackagesConfig) engine.Step {
	return engine.Isolated(PackagesStepName, engine.Guard{
		Precondition: m.present,
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			list, err := m.deps.Loader.Load(ctx, cfg.ListURL)
			if err != nil {
				return err
			}

			logger := m.deps.Logger.With().
				Str("step", PackagesStepName).
				Str("source", list.Source()).
				Logger()
			if rejected := list.Rejected(); len(rejected) > 0 {
				logger.Warn().Strs("rows", rejected).Msg("Ignoring malformed package list rows")
			}

			return staging.WithDir(m.deps.StagingDir, "froyodesk-packages-*", func(dir string) error {
				path := filepath.Join(dir, "packages.csv")
				if err := os.WriteFile(path, list.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to stage package list: %w", err)
				}
				rc.Set(KeyPackageList, path)
				defer rc.Delete(KeyPackageList)

				total := list.CountActive()
				failed, i := 0, 0
				for entry := range list.Active() {
					i++
					if m.pm.Installed(ctx, entry.Name) {
						logger.Debug().Str("package", entry.Name).Msg("Package already installed")
						continue
					}

					msg := fmt.Sprintf("installing %d of %d: %s", i, total, entry.Name)
					if entry.Description != "" {
						msg += " (" + entry.Description + ")"
					}
					m.deps.progress(msg)
					if err := m.pm.Install(ctx, entry.Name); err != nil {
						failed++
						logger.Warn().Err(err).Str("package", entry.Name).Msg("Package install failed")
						continue
					}
					logger.Info().
						Str("package", entry.Name).
						Int("index", i).
						Int("total", total).
						Msg("Package installed")
				}

				rc.Set(KeyPackagesAttempts, strconv.Itoa(total))
				rc.Set(KeyPackagesFailed, strconv.Itoa(failed))
				return nil
			})
		},
	})
}
