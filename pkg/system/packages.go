package system

import (
	"context"
	"fmt"
	"os/exec"
)

// SupportedManagers lists the package managers in detection order.
var SupportedManagers = []string{"apt-get", "dnf", "pacman"}

// PackageManager drives the system package manager in batch mode.
type PackageManager struct {
	runner  Runner
	manager string
}

// NewPackageManager creates a package manager wrapper. An empty manager is
// auto-detected from PATH.
func NewPackageManager(runner Runner, manager string, lookPath LookPathFunc) (*PackageManager, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if manager == "" {
		var err error
		manager, err = detectPackageManager(lookPath)
		if err != nil {
			return nil, err
		}
	} else if !isSupportedManager(manager) {
		return nil, fmt.Errorf("unsupported package manager: %s", manager)
	}

	return &PackageManager{runner: runner, manager: manager}, nil
}

// Name returns the package manager binary.
func (p *PackageManager) Name() string {
	return p.manager
}

// Refresh synchronizes package metadata and upgrades installed packages.
func (p *PackageManager) Refresh(ctx context.Context) error {
	var cmds []Command
	switch p.manager {
	case "apt-get":
		cmds = []Command{
			p.command("update"),
			p.command("-y", "-o", "Dpkg::Options::=--force-confold", "upgrade"),
		}
	case "dnf":
		cmds = []Command{p.command("-y", "upgrade", "--refresh")}
	case "pacman":
		cmds = []Command{p.command("-Syu", "--noconfirm")}
	default:
		return fmt.Errorf("unsupported package manager: %s", p.manager)
	}

	for _, c := range cmds {
		if _, err := p.runner.Run(ctx, c); err != nil {
			return fmt.Errorf("failed to refresh package database: %w", err)
		}
	}
	return nil
}

// Installed reports whether a package is installed.
func (p *PackageManager) Installed(ctx context.Context, name string) bool {
	var c Command
	switch p.manager {
	case "apt-get":
		c = Command{Name: "dpkg-query", Args: []string{"-W", "-f=${Status}", name}}
		res, err := p.runner.Run(ctx, c)
		return err == nil && res != nil && res.Stdout == "install ok installed"
	case "dnf":
		c = Command{Name: "rpm", Args: []string{"-q", name}}
	case "pacman":
		c = Command{Name: "pacman", Args: []string{"-Qq", name}}
	default:
		return false
	}

	_, err := p.runner.Run(ctx, c)
	return err == nil
}

// Install installs a single package non-interactively.
func (p *PackageManager) Install(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("package name is required")
	}

	var c Command
	switch p.manager {
	case "apt-get":
		c = p.command("install", "-y", "--no-install-recommends", name)
	case "dnf":
		c = p.command("install", "-y", name)
	case "pacman":
		c = p.command("-S", "--noconfirm", "--needed", name)
	default:
		return fmt.Errorf("unsupported package manager: %s", p.manager)
	}

	if _, err := p.runner.Run(ctx, c); err != nil {
		return fmt.Errorf("failed to install %s: %w", name, err)
	}
	return nil
}

func (p *PackageManager) command(args ...string) Command {
	c := Command{Name: p.manager, Args: args}
	if p.manager == "apt-get" {
		c.Env = []string{"DEBIAN_FRONTEND=noninteractive"}
	}
	return c
}

func detectPackageManager(lookPath LookPathFunc) (string, error) {
	for _, mgr := range SupportedManagers {
		if _, err := lookPath(mgr); err == nil {
			return mgr, nil
		}
	}
	return "", fmt.Errorf("no supported package manager found")
}

func isSupportedManager(name string) bool {
	for _, mgr := range SupportedManagers {
		if mgr == name {
			return true
		}
	}
	return false
}
