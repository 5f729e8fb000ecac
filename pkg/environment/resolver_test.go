package environment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/user"
	"strings"
	"testing"

	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/system"
)

type stubRunner struct {
	stdout string
	err    error
}

func (s stubRunner) Run(ctx context.Context, c system.Command) (*system.Result, error) {
	return &system.Result{Stdout: s.stdout}, s.err
}

type stubPrompter struct {
	answers []string
	asked   int
}

func (s *stubPrompter) Confirm(question string) (bool, error) {
	return true, nil
}

func (s *stubPrompter) AskUsername(validate func(string) error) (string, error) {
	for _, a := range s.answers {
		s.asked++
		if validate(a) == nil {
			return a, nil
		}
	}
	return "", errors.New("eof")
}

func newTestResolver(t *testing.T, env map[string]string, prompter Prompter) *Resolver {
	home := t.TempDir()
	users := map[string]*user.User{
		"alice": {Username: "alice", Uid: "1000", Gid: "1000", HomeDir: home},
		"root":  {Username: "root", Uid: "0", Gid: "0", HomeDir: "/root"},
		"ghost": {Username: "ghost", Uid: "1001", Gid: "1001", HomeDir: "/nonexistent/ghost"},
	}

	return &Resolver{
		Platform: DefaultPlatform(),
		Prompter: prompter,
		Runner:   stubRunner{stdout: "Ubuntu\n"},
		Getenv:   func(k string) string { return env[k] },
		Geteuid:  func() int { return 0 },
		LookPath: func(file string) (string, error) { return "/usr/bin/" + file, nil },
		LookupUser: func(name string) (*user.User, error) {
			if u, ok := users[name]; ok {
				return u, nil
			}
			return nil, user.UnknownUserError(name)
		},
		Stat: os.Stat,
	}
}

func TestResolve_InvokingUser(t *testing.T) {
	r := newTestResolver(t, map[string]string{"SUDO_USER": "alice"}, nil)

	rc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if rc.Username != "alice" || rc.UID != 1000 || rc.GID != 1000 {
		t.Errorf("unexpected context %+v", rc)
	}
	if rc.RunID == "" {
		t.Error("Expected run ID")
	}
}

func TestResolve_PromptsWhenInvokedAsRoot(t *testing.T) {
	prompter := &stubPrompter{answers: []string{"root", "nobody-here", "alice"}}
	r := newTestResolver(t, map[string]string{"SUDO_USER": "root"}, prompter)

	rc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if rc.Username != "alice" {
		t.Errorf("Username = %q, want alice", rc.Username)
	}
	if prompter.asked != 3 {
		t.Errorf("Expected 3 answers consumed, got %d", prompter.asked)
	}
}

func TestResolve_FatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Resolver)
		env    map[string]string
		want   error
	}{
		{
			name:   "not root",
			mutate: func(r *Resolver) { r.Geteuid = func() int { return 1000 } },
			env:    map[string]string{"SUDO_USER": "alice"},
			want:   engine.ErrPrivilege,
		},
		{
			name: "detector missing",
			mutate: func(r *Resolver) {
				r.LookPath = func(string) (string, error) { return "", errors.New("not found") }
			},
			env:  map[string]string{"SUDO_USER": "alice"},
			want: engine.ErrPlatform,
		},
		{
			name:   "wrong distribution",
			mutate: func(r *Resolver) { r.Runner = stubRunner{stdout: "Fedora\n"} },
			env:    map[string]string{"SUDO_USER": "alice"},
			want:   engine.ErrPlatform,
		},
		{
			name:   "detector fails",
			mutate: func(r *Resolver) { r.Runner = stubRunner{err: errors.New("exit 1")} },
			env:    map[string]string{"SUDO_USER": "alice"},
			want:   engine.ErrPlatform,
		},
		{
			name:   "unknown invoking user",
			mutate: func(r *Resolver) {},
			env:    map[string]string{"SUDO_USER": "bob"},
			want:   engine.ErrIdentity,
		},
		{
			name:   "no invoking user and no prompter",
			mutate: func(r *Resolver) {},
			env:    map[string]string{},
			want:   engine.ErrIdentity,
		},
		{
			name:   "missing home",
			mutate: func(r *Resolver) {},
			env:    map[string]string{"SUDO_USER": "ghost"},
			want:   engine.ErrHome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.env, nil)
			tt.mutate(r)

			_, err := r.Resolve(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
			if !engine.IsFatal(err) {
				t.Errorf("Expected fatal error, got %T", err)
			}
		})
	}
}

func TestLinePrompter_Confirm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr bool
		reasks  int
	}{
		{"yes", "y\n", true, false, 0},
		{"YES uppercase", "  YES \n", true, false, 0},
		{"no", "no\n", false, false, 0},
		{"reprompts on garbage", "maybe\n\nsure\nn\n", false, false, 3},
		{"eof without answer", "", false, true, 0},
		{"eof after garbage", "what\n", false, true, 1},
		{"final line without newline", "y", true, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewLinePrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm("Continue?")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Confirm() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if n := strings.Count(out.String(), "Please answer y or n."); n != tt.reasks {
				t.Errorf("re-prompted %d times, want %d", n, tt.reasks)
			}
		})
	}
}

func TestLinePrompter_AskUsername(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("\n  \nbob\nalice\n"), &out)

	name, err := p.AskUsername(func(name string) error {
		if name != "alice" {
			return errors.New("user " + name + " does not exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AskUsername() error: %v", err)
	}
	if name != "alice" {
		t.Errorf("name = %q", name)
	}
	if !strings.Contains(out.String(), "user bob does not exist") {
		t.Errorf("Expected validation message, got %q", out.String())
	}
	if n := strings.Count(out.String(), "Name of the user"); n != 4 {
		t.Errorf("prompted %d times, want 4", n)
	}
}
