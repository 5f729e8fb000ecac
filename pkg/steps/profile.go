package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// ProfileStepName names the profile lines step.
const ProfileStepName = "profile-lines"

// ProfileLines appends the configured lines that are missing from the
// user's profile and resource files.
func ProfileLines(d *Deps, files []config.ProfileConfig) engine.Step {
	return engine.Isolated(ProfileStepName, engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			for _, f := range files {
				missing, err := system.MissingLines(inHome(rc, f.File), f.Lines)
				if err != nil || len(missing) > 0 {
					return false, ""
				}
			}
			return true, "all profile lines present"
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			for _, f := range files {
				dir := filepath.Dir(inHome(rc, f.File))
				if info, err := os.Stat(dir); err != nil || !info.IsDir() {
					return fmt.Errorf("directory %s does not exist", dir)
				}
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			for _, f := range files {
				path := inHome(rc, f.File)
				n, err := system.AppendLines(path, f.Lines)
				if err != nil {
					return err
				}
				if n == 0 {
					continue
				}
				if err := os.Lchown(path, rc.UID, rc.GID); err != nil {
					return fmt.Errorf("failed to set ownership of %s: %w", path, err)
				}
				d.Logger.Info().Str("file", path).Int("lines", n).Msg("Appended profile lines")
			}
			return nil
		},
	})
}
