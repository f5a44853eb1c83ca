// Package fsutil has small filesystem helpers shared by the report
// and screenshot writers.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates the directory and any parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}

	return nil
}

// WriteFile writes data to name inside dir, creating dir if needed,
// and returns the full path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}

// Slug turns an arbitrary name into a filesystem-safe token: lower
// case, runs of non-alphanumerics collapsed to single underscores.
func Slug(name string) string {
	var b strings.Builder

	lastUnderscore := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')

				lastUnderscore = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
