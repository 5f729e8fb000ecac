// Package steps builds the ordered provisioning steps from the configuration.
//
// Every step is an engine.Guard: a side-effect free "already done" check, a
// precondition check and the effect itself. Only the package database
// refresh is fatal; every other step is isolated.
package steps

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/packagelist"
	"github.com/openfroyo/froyodesk/pkg/system"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Deps are the host collaborators the steps use.
type Deps struct {
	Runner   system.Runner
	LookPath system.LookPathFunc
	Client   *http.Client
	Loader   *packagelist.Loader
	Services *system.ServiceManager
	Git      *system.Git

	// PasswdPath is the account database read by the default shell step.
	PasswdPath string

	// StagingDir is the parent of temporary staging directories. Empty
	// means os.TempDir.
	StagingDir string

	// Progress receives operator-facing progress lines. Nil discards them.
	Progress func(msg string)

	Logger zerolog.Logger
}

// NewDeps returns collaborators backed by the real host.
func NewDeps(runner system.Runner, client *http.Client) *Deps {
	if client == nil {
		client = http.DefaultClient
	}
	return &Deps{
		Runner:     runner,
		LookPath:   exec.LookPath,
		Client:     client,
		Loader:     packagelist.NewLoader(client),
		Services:   system.NewServiceManager(runner),
		Git:        system.NewGit(runner),
		PasswdPath: system.DefaultPasswdPath,
		Logger:     log.Logger,
	}
}

func (d *Deps) progress(msg string) {
	if d.Progress != nil {
		d.Progress(msg)
	}
}

// credential is the account steps drop privileges to.
func credential(rc *engine.RunContext) *system.Credential {
	return &system.Credential{
		UID:  rc.UID,
		GID:  rc.GID,
		Home: rc.UserHome,
		User: rc.Username,
	}
}

// expand replaces $HOME and $USER with the target user's values.
func expand(s string, rc *engine.RunContext) string {
	return os.Expand(s, func(key string) string {
		switch key {
		case "HOME":
			return rc.UserHome
		case "USER":
			return rc.Username
		}
		return "$" + key
	})
}

// inHome resolves rel against the user's home directory.
func inHome(rc *engine.RunContext, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(rc.UserHome, rel)
}

// mkdirOwned creates rel under the home directory and hands every directory
// it creates to the target user.
func mkdirOwned(rc *engine.RunContext, rel string) (string, error) {
	full := inHome(rc, rel)
	path := rc.UserHome
	trimmed, err := filepath.Rel(rc.UserHome, full)
	if err != nil || strings.HasPrefix(trimmed, "..") {
		return full, os.MkdirAll(full, 0o755)
	}

	for _, part := range strings.Split(trimmed, string(filepath.Separator)) {
		if part == "" || part == "." {
			continue
		}
		path = filepath.Join(path, part)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.Mkdir(path, 0o755); err != nil {
			return full, err
		}
		if err := os.Lchown(path, rc.UID, rc.GID); err != nil {
			return full, err
		}
	}
	return full, nil
}
