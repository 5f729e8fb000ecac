package system

import (
	"context"
	"fmt"
	"strings"
)

// ServiceManager drives systemd units through systemctl.
type ServiceManager struct {
	runner Runner
}

// NewServiceManager creates a service manager wrapper.
func NewServiceManager(runner Runner) *ServiceManager {
	return &ServiceManager{runner: runner}
}

// Lookup reports whether a unit file is known to systemd. Absent units
// return ok=false rather than an error so callers can skip them explicitly.
func (s *ServiceManager) Lookup(ctx context.Context, unit string) (string, bool) {
	res, err := s.runner.Run(ctx, Command{
		Name: "systemctl",
		Args: []string{"list-unit-files", "--no-legend", "--no-pager", unitName(unit)},
	})
	if err != nil || res == nil || strings.TrimSpace(res.Stdout) == "" {
		return "", false
	}
	return unitName(unit), true
}

// IsEnabled reports whether a unit is enabled.
func (s *ServiceManager) IsEnabled(ctx context.Context, unit string) bool {
	res, err := s.runner.Run(ctx, Command{Name: "systemctl", Args: []string{"is-enabled", unitName(unit)}})
	if err != nil || res == nil {
		return false
	}
	return strings.TrimSpace(res.Stdout) == "enabled"
}

// Enable enables a unit. A display manager unit also takes over the
// display-manager.service alias, hence --force.
func (s *ServiceManager) Enable(ctx context.Context, unit string) error {
	if _, err := s.runner.Run(ctx, Command{Name: "systemctl", Args: []string{"enable", "--force", unitName(unit)}}); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	return nil
}

// Disable disables a unit.
func (s *ServiceManager) Disable(ctx context.Context, unit string) error {
	if _, err := s.runner.Run(ctx, Command{Name: "systemctl", Args: []string{"disable", unitName(unit)}}); err != nil {
		return fmt.Errorf("failed to disable service: %w", err)
	}
	return nil
}

// Reload asks systemd to reload unit files.
func (s *ServiceManager) Reload(ctx context.Context) error {
	if _, err := s.runner.Run(ctx, Command{Name: "systemctl", Args: []string{"daemon-reload"}}); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	return nil
}

func unitName(unit string) string {
	if strings.Contains(unit, ".") {
		return unit
	}
	return unit + ".service"
}
