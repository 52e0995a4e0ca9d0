// Package filex contains small filesystem helpers for the client's local
// data directory.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir resolves (and creates if missing) the Quietpage data
// directory under the user config dir, optionally nested by subDir.
// It returns the absolute path of the directory.
func EnsureDataDir(subDir string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}

	dir := filepath.Join(base, "quietpage", subDir)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
