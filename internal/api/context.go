package api

import (
	"context"
	"fmt"

	"github.com/amterp/sitegate/internal/content"
	"github.com/amterp/sitegate/internal/intercept"
	"github.com/amterp/sitegate/internal/render"
)

// DocumentLoader produces a finalized document for the site's entry point.
type DocumentLoader interface {
	Load(ctx context.Context) (string, error)
}

// Site bundles the per-site dependencies needed by the HTTP handlers.
type Site struct {
	Loader DocumentLoader
	Store  content.Store
	Rules  *intercept.Rules
	Host   *render.Host
	// Source describes where content comes from, e.g. "acme/site@gh-pages".
	Source string
}

// Validate checks that every dependency is present.
//
// This is a pure check; the Site is not loaded or fetched from.
func (s *Site) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("site is required")
	case s.Loader == nil:
		return fmt.Errorf("site loader is required")
	case s.Store == nil:
		return fmt.Errorf("site content store is required")
	case s.Rules == nil:
		return fmt.Errorf("site interception rules are required")
	case s.Host == nil:
		return fmt.Errorf("site render host is required")
	}
	return nil
}

// cacheSize reports the store's cache size when it keeps one.
func (s *Site) cacheSize() int {
	if c, ok := s.Store.(interface{ CacheLen() int }); ok {
		return c.CacheLen()
	}
	return 0
}
