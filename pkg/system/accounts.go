package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultPasswdPath is the local account database.
const DefaultPasswdPath = "/etc/passwd"

// LoginShell returns the login shell recorded for username in the passwd
// file at path.
func LoginShell(path, username string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) == 7 && fields[0] == username {
			return fields[6], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return "", fmt.Errorf("user %s not found in %s", username, path)
}

// ChangeShell sets the login shell of username with chsh.
func ChangeShell(ctx context.Context, runner Runner, username, shell string) error {
	if _, err := runner.Run(ctx, Command{Name: "chsh", Args: []string{"-s", shell, username}}); err != nil {
		return fmt.Errorf("failed to change shell: %w", err)
	}
	return nil
}

// RebuildFontCache refreshes the fontconfig cache for dir.
func RebuildFontCache(ctx context.Context, runner Runner, dir string, as *Credential) error {
	if _, err := runner.Run(ctx, Command{Name: "fc-cache", Args: []string{"-f", dir}, AsUser: as}); err != nil {
		return fmt.Errorf("failed to rebuild font cache: %w", err)
	}
	return nil
}
