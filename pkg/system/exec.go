// Package system wraps the host collaborators a provisioning run talks to:
// the package manager, the service manager, the filesystem, git, the font
// cache and the account database.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Credential identifies the account a command runs as.
type Credential struct {
	UID  int
	GID  int
	Home string
	User string
}

// Command describes a process to run.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory of the child. The parent's is never changed.
	Dir string

	// Env entries are appended to a minimal environment.
	Env []string

	Stdin io.Reader

	// AsUser drops privileges to the given account when set.
	AsUser *Credential
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// LookPathFunc resolves a binary name on PATH.
type LookPathFunc func(file string) (string, error)

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and waits for it. A non-zero exit status is
// returned as an error that includes the captured stderr.
func (ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("command is required")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Env = baseEnv(c)

	if c.AsUser != nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{
				Uid: uint32(c.AsUser.UID),
				Gid: uint32(c.AsUser.GID),
			},
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("%s exited with status %d: %s",
				c.Name, result.ExitCode, lastLine(result.Stderr))
		}
		return result, fmt.Errorf("failed to execute %s: %w", c.Name, err)
	}

	return result, nil
}

func baseEnv(c Command) []string {
	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"LANG=C.UTF-8",
	}
	if c.AsUser != nil {
		env = append(env,
			"HOME="+c.AsUser.Home,
			"USER="+c.AsUser.User,
			"LOGNAME="+c.AsUser.User,
		)
	}
	return append(env, c.Env...)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
