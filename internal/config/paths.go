package config

import (
	"os"
	"path/filepath"
)

const (
	ConfigFileName        = "config.toml"
	ConfigDir             = ".config/sitegate"
	ProjectConfigFileName = "sitegate.toml"

	// ConfigEnvVar overrides the config file location.
	ConfigEnvVar = "SITEGATE_CONFIG"
)

// ConfigPath returns the path to the config file. An explicit path wins,
// then $SITEGATE_CONFIG, then ~/.config/sitegate/config.toml.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return env
	}
	dir := ConfigDirPath()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ConfigFileName)
}

// ConfigDirPath returns the default directory for the config file.
func ConfigDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ConfigDir)
}

// ResolveLocal makes a config-relative path absolute against the config
// file's directory. Absolute paths are returned unchanged.
func ResolveLocal(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if p == "~" || len(p) > 1 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
