// Package dotdir manages the .askbase/ and ~/.askbase directories.
//
// The directory holds config.toml and small pieces of CLI state, such as the
// last answer received from "askbase ask", which "askbase feedback" rates.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the askbase directory.
	DirName = ".askbase"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .askbase/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.askbase/ dir
//  3. Home ~/.askbase/ dir
//
// Returns an empty string when no override is given and neither the local nor
// the home directory exists.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating askbase directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if m.localDirExists() {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, DirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	homeDir := filepath.Join(home, DirName)
	info, err := os.Stat(homeDir)
	if err == nil && info.IsDir() {
		return homeDir, nil
	}

	return "", nil
}

// localDirExists checks whether a .askbase/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
