package store

import "github.com/amterp/sitegate/internal/model"

// ConfigStore handles site config persistence.
type ConfigStore interface {
	Load() (*model.SiteConfig, error)
	Save(config *model.SiteConfig) error
	Exists() bool
	Path() string
}
