package system

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Checksum returns the hex SHA-256 of content.
func Checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// FileMatches reports whether path exists with exactly the given content.
func FileMatches(path string, content []byte) bool {
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return Checksum(existing) == Checksum(content)
}

// WriteFile writes content to path, creating parent directories, and keeps
// a .bak copy of any previous differing content. It returns false when the
// file already had the content.
func WriteFile(path string, content []byte, mode os.FileMode) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("path is required")
	}
	if FileMatches(path, content) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return false, fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if err := os.WriteFile(path, content, mode); err != nil {
		return false, fmt.Errorf("failed to write file: %w", err)
	}
	return true, nil
}

// MissingLines returns the lines not present verbatim in the file at path.
// A missing file is missing every line.
func MissingLines(path string, lines []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	present := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		present[strings.TrimRight(scanner.Text(), " \t")] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	var missing []string
	for _, line := range lines {
		if !present[strings.TrimRight(line, " \t")] {
			missing = append(missing, line)
		}
	}
	return missing, nil
}

// AppendLines appends the lines missing from path and returns how many were
// written. Re-running with the same lines appends nothing.
func AppendLines(path string, lines []string) (int, error) {
	missing, err := MissingLines(path, lines)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, line := range missing {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return len(missing), nil
}
