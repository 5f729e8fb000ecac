// Package staging provides scoped temporary directories and filesystem
// helpers that always take explicit paths instead of changing the process
// working directory.
package staging

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WithDir creates a temporary directory under parent (os.TempDir when empty),
// calls fn with its path and removes it afterwards. Removal happens on every
// exit path, including an error or panic from fn.
func WithDir(parent, pattern string, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove staging directory %s: %w", dir, rmErr)
		}
	}()

	return fn(dir)
}

// ExtractZip extracts the archive at src into dest. Entries that would
// escape dest are rejected.
func ExtractZip(src, dest string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	root := filepath.Clean(dest) + string(os.PathSeparator)
	var written []string

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return written, fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}
		written = append(written, target)
	}

	return written, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := createFile(target, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}

// CopyTree copies the directory src into dest, skipping any top-level
// entry whose name is in exclude. Existing files are overwritten.
func CopyTree(src, dest string, exclude ...string) error {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dest, 0755)
		}

		top := strings.SplitN(rel, string(os.PathSeparator), 2)[0]
		if skip[top] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dest, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return mkdirNoFollow(target, info.Mode().Perm()|0700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

// ChownTree changes ownership of root and everything below it.
// Symlinks are changed themselves, not followed.
func ChownTree(root string, uid, gid int) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			return fmt.Errorf("failed to set ownership of %s: %w", path, err)
		}
		return nil
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := createFile(dst, mode)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Chmod(mode)
}

// WriteFile writes data to path as a new regular file, replacing anything
// at path without following a symlink there.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	f, err := createFile(path, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// createFile creates path as a new regular file. Whatever sits at path is
// removed first, so a symlink there is replaced rather than written through.
func createFile(path string, mode os.FileMode) (*os.File, error) {
	if info, err := os.Lstat(path); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
}

// mkdirNoFollow creates the directory path, replacing a symlink found there.
func mkdirNoFollow(path string, mode os.FileMode) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		if err := os.Remove(path); err != nil {
			return err
		}
	case !os.IsNotExist(err):
		return err
	}
	return os.Mkdir(path, mode)
}

// Replace moves the directory src to dest, removing whatever was at dest.
// When a rename is not possible, such as across filesystems, the tree is
// copied instead and src is left for its owner to clean up.
func Replace(src, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dest, err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := CopyTree(src, dest); err != nil {
		os.RemoveAll(dest)
		return fmt.Errorf("failed to move %s into place: %w", src, err)
	}
	return nil
}
