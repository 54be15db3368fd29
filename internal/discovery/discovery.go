package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amterp/sitegate/internal/config"
)

// ResolveConfigPath picks the config file to use.
// Priority:
// 1. Explicit path (--config)
// 2. $SITEGATE_CONFIG
// 3. sitegate.toml in the working directory or a parent
// 4. ~/.config/sitegate/config.toml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" || os.Getenv(config.ConfigEnvVar) != "" {
		return config.ConfigPath(explicit), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	project, err := FindProjectConfigFrom(cwd)
	if err != nil {
		return "", err
	}
	if project != "" {
		return project, nil
	}
	return config.ConfigPath(""), nil
}

// FindProjectConfigFrom walks up from startDir looking for sitegate.toml.
// Returns "" if none is found.
func FindProjectConfigFrom(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, config.ProjectConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		// Move up to parent
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, no project config found
			return "", nil
		}
		dir = parent
	}
}
