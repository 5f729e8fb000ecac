package steps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
)

// Build returns the provisioning steps in their fixed order. Sections left
// empty in the configuration contribute no step.
func Build(cfg *config.Config, d *Deps) []engine.Step {
	pm := newPackageManager(d, cfg.Packages)

	steps := []engine.Step{
		refreshPackages(pm),
		installPackages(pm, cfg.Packages),
	}
	if cfg.DisplayManager.Unit != "" {
		steps = append(steps, DisplayManager(d, cfg.DisplayManager))
	}
	if cfg.Dotfiles.Repo != "" {
		steps = append(steps, Dotfiles(d, cfg.Dotfiles))
	}
	if cfg.Fonts.Name != "" {
		steps = append(steps, Fonts(d, cfg.Fonts))
	}
	for _, tool := range cfg.Tools {
		steps = append(steps, Tool(d, tool))
	}
	if len(cfg.Profile) > 0 {
		steps = append(steps, ProfileLines(d, cfg.Profile))
	}
	if cfg.Shell.Path != "" {
		steps = append(steps, DefaultShell(d, cfg.Shell))
	}
	return steps
}

// Names returns the names of steps in order.
func Names(steps []engine.Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

// Filter keeps the steps named in only (all when empty) minus those named in
// skip. Order is preserved. Unknown names are an error.
func Filter(steps []engine.Step, only, skip []string) ([]engine.Step, error) {
	known := Names(steps)
	var unknown []string
	for _, name := range slices.Concat(only, skip) {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown steps: %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(known, ", "))
	}

	var out []engine.Step
	for _, s := range steps {
		if len(only) > 0 && !slices.Contains(only, s.Name) {
			continue
		}
		if slices.Contains(skip, s.Name) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
