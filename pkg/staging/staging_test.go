package staging

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWithDir_RemovedOnSuccess(t *testing.T) {
	parent := t.TempDir()
	var seen string

	err := WithDir(parent, "fonts-*", func(dir string) error {
		seen = dir
		return os.WriteFile(filepath.Join(dir, "font.ttf"), []byte("data"), 0644)
	})
	if err != nil {
		t.Fatalf("WithDir() error: %v", err)
	}

	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed, stat err = %v", seen, err)
	}
}

func TestWithDir_RemovedOnFailure(t *testing.T) {
	parent := t.TempDir()
	var seen string
	boom := errors.New("download interrupted")

	err := WithDir(parent, "dotfiles-*", func(dir string) error {
		seen = dir
		if err := os.MkdirAll(filepath.Join(dir, "nested", "deep"), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "nested", "partial"), []byte("x"), 0644); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected effect error, got %v", err)
	}

	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed, stat err = %v", seen, err)
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no trace in parent, found %d entries", len(entries))
	}
}

func TestWithDir_RemovedOnPanic(t *testing.T) {
	parent := t.TempDir()
	var seen string

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate")
			}
		}()
		_ = WithDir(parent, "panic-*", func(dir string) error {
			seen = dir
			panic("unexpected")
		})
	}()

	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed after panic", seen)
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "font.zip")
	writeZip(t, archive, map[string]string{
		"JetBrainsMono-Regular.ttf":  "regular",
		"subdir/JetBrainsMono-B.ttf": "bold",
	})

	dest := filepath.Join(dir, "out")
	written, err := ExtractZip(archive, dest)
	if err != nil {
		t.Fatalf("ExtractZip() error: %v", err)
	}
	if len(written) != 2 {
		t.Errorf("Expected 2 files written, got %v", written)
	}

	data, err := os.ReadFile(filepath.Join(dest, "subdir", "JetBrainsMono-B.ttf"))
	if err != nil || string(data) != "bold" {
		t.Errorf("Expected extracted content, got %q, %v", data, err)
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../escape.txt": "nope"})

	if _, err := ExtractZip(archive, filepath.Join(dir, "out")); err == nil {
		t.Error("Expected error for path traversal")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("Expected no file outside destination")
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.MkdirAll(filepath.Join(src, ".config", "nvim"), 0755))
	must(os.WriteFile(filepath.Join(src, ".config", "nvim", "init.lua"), []byte("-- nvim"), 0644))
	must(os.WriteFile(filepath.Join(src, ".zshrc"), []byte("# zsh"), 0644))
	must(os.MkdirAll(filepath.Join(src, ".git", "objects"), 0755))
	must(os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0644))
	must(os.Symlink(".zshrc", filepath.Join(src, ".bashrc")))

	must(CopyTree(src, dest, ".git"))

	if data, err := os.ReadFile(filepath.Join(dest, ".config", "nvim", "init.lua")); err != nil || string(data) != "-- nvim" {
		t.Errorf("nested file not copied: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, ".git")); !os.IsNotExist(err) {
		t.Error("Expected excluded directory to be skipped")
	}
	if link, err := os.Readlink(filepath.Join(dest, ".bashrc")); err != nil || link != ".zshrc" {
		t.Errorf("Expected symlink preserved, got %q, %v", link, err)
	}
}

func TestCopyTree_ReplacesPlantedSymlinks(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	outside := t.TempDir()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	secret := filepath.Join(outside, "sudoers")
	must(os.WriteFile(secret, []byte("root ALL=(ALL) ALL\n"), 0o440))
	must(os.WriteFile(filepath.Join(src, ".bashrc"), []byte("# bash"), 0o644))
	must(os.MkdirAll(filepath.Join(src, ".config"), 0o755))
	must(os.WriteFile(filepath.Join(src, ".config", "starship.toml"), []byte("add_newline = false"), 0o644))

	tests := []struct {
		name   string
		link   string
		target string
	}{
		{"file", ".bashrc", secret},
		{"directory", ".config", outside},
	}
	for _, tt := range tests {
		must(os.Symlink(tt.target, filepath.Join(dest, tt.link)))
	}

	must(CopyTree(src, dest))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Lstat(filepath.Join(dest, tt.link))
			if err != nil {
				t.Fatalf("Expected %s in destination: %v", tt.link, err)
			}
			if info.Mode()&os.ModeSymlink != 0 {
				t.Errorf("Expected %s to be replaced, still a symlink", tt.link)
			}
		})
	}

	if data, err := os.ReadFile(secret); err != nil || string(data) != "root ALL=(ALL) ALL\n" {
		t.Errorf("Expected file outside destination untouched, got %q, %v", data, err)
	}
	if info, err := os.Stat(secret); err != nil || info.Mode().Perm() != 0o440 {
		t.Errorf("Expected mode of file outside destination untouched, got %v, %v", info.Mode(), err)
	}
	if _, err := os.Stat(filepath.Join(outside, "starship.toml")); !os.IsNotExist(err) {
		t.Error("Expected no file written through the directory symlink")
	}
}

func TestExtractZip_ReplacesPlantedSymlink(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "target")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(dir, "font.zip")
	writeZip(t, archive, map[string]string{"Mono.ttf": "font"})
	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dest, "Mono.ttf")); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractZip(archive, dest); err != nil {
		t.Fatalf("ExtractZip() error: %v", err)
	}
	if data, _ := os.ReadFile(outside); string(data) != "keep" {
		t.Errorf("Expected symlink target untouched, got %q", data)
	}
	if data, err := os.ReadFile(filepath.Join(dest, "Mono.ttf")); err != nil || string(data) != "font" {
		t.Errorf("Expected extracted content, got %q, %v", data, err)
	}
}

func TestReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staged")
	dest := filepath.Join(dir, "fonts")

	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "New.ttf"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "Partial.ttf"), []byte("half"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Replace(src, dest); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "Partial.ttf")); !os.IsNotExist(err) {
		t.Error("Expected the previous content to be removed")
	}
	if data, err := os.ReadFile(filepath.Join(dest, "New.ttf")); err != nil || string(data) != "new" {
		t.Errorf("Expected staged content in place, got %q, %v", data, err)
	}
}
