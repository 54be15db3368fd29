package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/model"
	"github.com/amterp/sitegate/internal/version"
)

// FileConfigStore implements ConfigStore using a TOML file.
type FileConfigStore struct {
	path string
}

// NewConfigStore creates a store for the config file at path.
func NewConfigStore(path string) *FileConfigStore {
	return &FileConfigStore{path: path}
}

// Path returns the config file location.
func (s *FileConfigStore) Path() string {
	return s.path
}

// Exists reports whether the config file is present.
func (s *FileConfigStore) Exists() bool {
	if s.path == "" {
		return false
	}
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the config from disk and fills defaults.
// Returns a NotFoundError if the file doesn't exist.
func (s *FileConfigStore) Load() (*model.SiteConfig, error) {
	if s.path == "" {
		return nil, fmt.Errorf("cannot locate config: no home directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sgerr.FileNotFound(s.path)
		}
		return nil, err
	}

	return Decode(s.path, data)
}

// Decode parses config file contents read from path and fills defaults.
func Decode(path string, data []byte) (*model.SiteConfig, error) {
	var cfg model.SiteConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Strict version validation
	if cfg.SitegateSchema == "" {
		return nil, version.MissingConfigSchema(path)
	}
	if cfg.SitegateSchema != version.CurrentConfigSchema() {
		return nil, version.InvalidConfigSchema(path, cfg.SitegateSchema)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes the config to disk.
func (s *FileConfigStore) Save(cfg *model.SiteConfig) error {
	// Stamp current schema version
	cfg.SitegateSchema = version.CurrentConfigSchema()

	if s.path == "" {
		return fmt.Errorf("cannot locate config: no home directory")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
