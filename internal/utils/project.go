package utils

import (
	"fmt"
	"path/filepath"
)

// GetProjectName returns the name of the current project (directory).
func GetProjectName() (string, error) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to get project directory: %w", err)
	}

	// Commands other than init run this too, so a missing project is not an error.
	if projectRoot == "" {
		return "", nil
	}

	return filepath.Base(projectRoot), nil
}
