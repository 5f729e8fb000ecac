package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/openfroyo/froyodesk/pkg/staging"
	"github.com/openfroyo/froyodesk/pkg/system"
)

// FontsStepName names the fonts step.
const FontsStepName = "fonts"

// fontCacheTool rebuilds the fontconfig cache.
const fontCacheTool = "fc-cache"

// fontMarker is written into the font directory once the cache has been
// rebuilt. It holds the archive URL the fonts came from.
const fontMarker = ".froyodesk-installed"

// Fonts downloads a font archive, extracts it into the user's font
// directory and rebuilds the font cache.
func Fonts(d *Deps, cfg config.FontsConfig) engine.Step {
	fontDir := func(rc *engine.RunContext) string {
		return filepath.Join(inHome(rc, cfg.Dir), cfg.Name)
	}

	return engine.Isolated(FontsStepName, engine.Guard{
		Satisfied: func(ctx context.Context, rc *engine.RunContext) (bool, string) {
			dir := fontDir(rc)
			data, err := os.ReadFile(filepath.Join(dir, fontMarker))
			if err != nil || strings.TrimSpace(string(data)) != cfg.URL {
				return false, ""
			}
			return true, fmt.Sprintf("%s already present", dir)
		},
		Precondition: func(ctx context.Context, rc *engine.RunContext) error {
			if _, err := d.LookPath(fontCacheTool); err != nil {
				return fmt.Errorf("%s not found", fontCacheTool)
			}
			return nil
		},
		Effect: func(ctx context.Context, rc *engine.RunContext) error {
			return staging.WithDir(d.StagingDir, "froyodesk-fonts-*", func(dir string) error {
				archive := filepath.Join(dir, cfg.Name+".zip")
				d.progress(fmt.Sprintf("downloading %s fonts", cfg.Name))
				if err := system.Download(ctx, d.Client, cfg.URL, archive); err != nil {
					return err
				}

				staged := filepath.Join(dir, "fonts")
				files, err := staging.ExtractZip(archive, staged)
				if err != nil {
					return err
				}

				if _, err := mkdirOwned(rc, cfg.Dir); err != nil {
					return fmt.Errorf("failed to create font directory: %w", err)
				}
				dest := fontDir(rc)
				if err := staging.Replace(staged, dest); err != nil {
					return err
				}
				if err := staging.ChownTree(dest, rc.UID, rc.GID); err != nil {
					return err
				}

				if err := system.RebuildFontCache(ctx, d.Runner, dest, credential(rc)); err != nil {
					return err
				}
				marker := filepath.Join(dest, fontMarker)
				if err := staging.WriteFile(marker, []byte(cfg.URL+"\n"), 0o644); err != nil {
					return fmt.Errorf("failed to mark fonts installed: %w", err)
				}
				if err := os.Lchown(marker, rc.UID, rc.GID); err != nil {
					return fmt.Errorf("failed to set ownership of %s: %w", marker, err)
				}

				d.Logger.Info().Str("dir", dest).Int("files", len(files)).Msg("Installed fonts")
				return nil
			})
		},
	})
}
