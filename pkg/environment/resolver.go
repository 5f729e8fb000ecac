// Package environment confirms the host can be provisioned and resolves the
// user the desktop is being set up for.
package environment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"

	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/system"
	"github.com/rs/zerolog/log"
)

// InvokingUserEnv is set by sudo to the account that invoked it.
const InvokingUserEnv = "SUDO_USER"

// PrivilegedAccount is the account the process must run as.
const PrivilegedAccount = "root"

// Platform describes the supported host.
type Platform struct {
	// Distribution is the ID the detector must report, compared case-insensitively.
	Distribution string

	// Detector is the platform detection utility.
	Detector string

	// DetectorArgs make the detector print only the distribution ID.
	DetectorArgs []string
}

// DefaultPlatform returns the platform checked when nothing is configured.
func DefaultPlatform() Platform {
	return Platform{
		Distribution: "ubuntu",
		Detector:     "lsb_release",
		DetectorArgs: []string{"-is"},
	}
}

// Resolver builds the run context. Every failure it returns is a
// *engine.FatalError.
type Resolver struct {
	Platform Platform
	Prompter Prompter
	Runner   system.Runner

	// Hooks for the host; defaults use the real process and OS.
	Getenv     func(string) string
	Geteuid    func() int
	LookPath   system.LookPathFunc
	LookupUser func(string) (*user.User, error)
	Stat       func(string) (os.FileInfo, error)
}

// NewResolver creates a resolver backed by the real host.
func NewResolver(platform Platform, prompter Prompter, runner system.Runner) *Resolver {
	return &Resolver{
		Platform:   platform,
		Prompter:   prompter,
		Runner:     runner,
		Getenv:     os.Getenv,
		Geteuid:    os.Geteuid,
		LookPath:   exec.LookPath,
		LookupUser: user.Lookup,
		Stat:       os.Stat,
	}
}

// Resolve checks privileges and platform, then resolves the target user.
func (r *Resolver) Resolve(ctx context.Context) (*engine.RunContext, error) {
	if err := r.CheckPrivilege(); err != nil {
		return nil, err
	}
	if err := r.CheckPlatform(ctx); err != nil {
		return nil, err
	}

	username, err := r.resolveUsername()
	if err != nil {
		return nil, err
	}

	u, err := r.LookupUser(username)
	if err != nil {
		return nil, engine.NewFatalError(engine.FatalReasonIdentity,
			fmt.Sprintf("user %s does not exist", username), err)
	}

	uid, gid, err := parseIDs(u)
	if err != nil {
		return nil, engine.NewFatalError(engine.FatalReasonIdentity,
			fmt.Sprintf("invalid ids for user %s", username), err)
	}

	info, err := r.Stat(u.HomeDir)
	if err != nil || !info.IsDir() {
		return nil, engine.NewFatalError(engine.FatalReasonHome,
			fmt.Sprintf("home directory %s for user %s does not exist", u.HomeDir, username), err)
	}

	rc := engine.NewRunContext(username, u.HomeDir, uid, gid)

	log.Info().
		Str("run_id", rc.RunID).
		Str("user", rc.Username).
		Str("home", rc.UserHome).
		Msg("Resolved target user")

	return rc, nil
}

// CheckPrivilege fails unless the process has root privileges.
func (r *Resolver) CheckPrivilege() error {
	if euid := r.Geteuid(); euid != 0 {
		return engine.NewFatalError(engine.FatalReasonPrivilege,
			fmt.Sprintf("must run as %s (euid=%d)", PrivilegedAccount, euid), nil)
	}
	return nil
}

// CheckPlatform fails unless the detector is present and reports the
// supported distribution.
func (r *Resolver) CheckPlatform(ctx context.Context) error {
	p := r.Platform
	if _, err := r.LookPath(p.Detector); err != nil {
		return engine.NewFatalError(engine.FatalReasonPlatform,
			fmt.Sprintf("platform detection utility %s not found", p.Detector), err)
	}

	res, err := r.Runner.Run(ctx, system.Command{Name: p.Detector, Args: p.DetectorArgs})
	if err != nil {
		return engine.NewFatalError(engine.FatalReasonPlatform, "failed to detect platform", err)
	}

	id := strings.TrimSpace(res.Stdout)
	if !strings.EqualFold(id, p.Distribution) {
		return engine.NewFatalError(engine.FatalReasonPlatform,
			fmt.Sprintf("unsupported distribution %q (want %q)", id, p.Distribution), nil)
	}

	log.Debug().Str("distribution", id).Msg("Platform check passed")
	return nil
}

func (r *Resolver) resolveUsername() (string, error) {
	if name := strings.TrimSpace(r.Getenv(InvokingUserEnv)); name != "" && name != PrivilegedAccount {
		log.Debug().Str("user", name).Msg("Using invoking user")
		return name, nil
	}

	if r.Prompter == nil {
		return "", engine.NewFatalError(engine.FatalReasonIdentity,
			"no invoking user and no terminal to ask for one", nil)
	}

	name, err := r.Prompter.AskUsername(func(name string) error {
		if name == PrivilegedAccount {
			return fmt.Errorf("refusing to set up a desktop for %s", PrivilegedAccount)
		}
		if _, err := r.LookupUser(name); err != nil {
			return fmt.Errorf("user %s does not exist", name)
		}
		return nil
	})
	if err != nil {
		return "", engine.NewFatalError(engine.FatalReasonIdentity, "failed to read username", err)
	}
	return name, nil
}

func parseIDs(u *user.User) (int, int, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid gid %q: %w", u.Gid, err)
	}
	return uid, gid, nil
}
