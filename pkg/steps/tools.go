package steps

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/staging"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// ToolStepPrefix prefixes the name of every tool step.
const ToolStepPrefix = "tool:"

// ToolStepName returns the step name for a tool.
func ToolStepName(name string) string {
	return ToolStepPrefix + name
}

// Tool installs a tool by running its upstream install script as the
// target user.
func Tool(d *Deps, cfg config.ToolConfig) engine.Step {
	return engine.Isolated(ToolStepName(cfg.Name), engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			bin, ok := d.resolveBinary(expand(cfg.Binary, rc))
			if !ok {
				return false, ""
			}
			if cfg.Version == "" {
				return true, fmt.Sprintf("%s already installed", cfg.Name)
			}

			res, err := d.Runner.Run(ctx, system.Command{
				Name:   bin,
				Args:   cfg.VersionArgs,
				AsUser: credential(rc),
			})
			if err != nil || !strings.Contains(res.Stdout, cfg.Version) {
				return false, ""
			}
			return true, fmt.Sprintf("%s %s already installed", cfg.Name, cfg.Version)
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			if _, err := d.LookPath("sh"); err != nil {
				return fmt.Errorf("sh not found")
			}
			u, err := url.Parse(cfg.ScriptURL)
			if err != nil || u.Scheme != "https" || u.Host == "" {
				return fmt.Errorf("install script %q is not an https URL", cfg.ScriptURL)
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			return staging.WithDir(d.StagingDir, "froyodesk-tool-*", func(dir string) error {
				script := filepath.Join(dir, "install.sh")
				d.progress(fmt.Sprintf("installing %s", cfg.Name))
				if err := system.Download(ctx, d.Client, cfg.ScriptURL, script); err != nil {
					return err
				}
				if err := staging.ChownTree(dir, rc.UID, rc.GID); err != nil {
					return err
				}

				args := []string{script}
				for _, a := range cfg.ScriptArgs {
					args = append(args, expand(a, rc))
				}
				res, err := d.Runner.Run(ctx, system.Command{
					Name:   "sh",
					Args:   args,
					Dir:    rc.UserHome,
					AsUser: credential(rc),
				})
				if err != nil {
					return fmt.Errorf("install script for %s failed: %w", cfg.Name, err)
				}

				d.Logger.Info().
					Str("tool", cfg.Name).
					Dur("duration", res.Duration).
					Msg("Installed tool")
				return nil
			})
		},
	})
}

// resolveBinary finds an executable by path or on PATH.
func (d *Deps) resolveBinary(bin string) (string, bool) {
	if strings.ContainsRune(bin, os.PathSeparator) {
		info, err := os.Stat(bin)
		if err != nil || info.IsDir() {
			return "", false
		}
		return bin, true
	}
	path, err := d.LookPath(bin)
	if err != nil {
		return "", false
	}
	return path, true
}
