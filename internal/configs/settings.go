package configs

import (
	"fmt"
	"path/filepath"

	"github.com/PolarWolf314/kaitiaki/internal/utils"
)

type ProjectSettings struct {
	ProjectName string
	ProjectPath string
	ConfigPath  string
	AuditPath   string
}

var ProjectKaitiakiSettings = &ProjectSettings{}

// InitProjectSettings locates the project root from the working directory.
// Paths stay empty when no project is found.
func InitProjectSettings() error {
	projectName, err := utils.GetProjectName()
	if err != nil {
		return fmt.Errorf("error getting project name: %w", err)
	}

	projectPath, err := utils.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("error getting project root: %w", err)
	}

	if projectPath == "" {
		ProjectKaitiakiSettings = &ProjectSettings{}
		return nil
	}

	ProjectKaitiakiSettings = NewProjectSettings(projectPath)
	ProjectKaitiakiSettings.ProjectName = projectName
	return nil
}

// NewProjectSettings derives the project paths for a root directory.
func NewProjectSettings(projectPath string) *ProjectSettings {
	dir := filepath.Join(projectPath, utils.ProjectDirName)
	return &ProjectSettings{
		ProjectName: filepath.Base(projectPath),
		ProjectPath: projectPath,
		ConfigPath:  filepath.Join(dir, "config.toml"),
		AuditPath:   filepath.Join(dir, "audit.jsonl"),
	}
}
