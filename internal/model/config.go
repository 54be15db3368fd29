package model

import (
	"fmt"
	"strings"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/intercept"
)

// Content sources.
const (
	SourceAPI = "api" // Repository contents API
	SourceDir = "dir" // Local directory, e.g. a build output
	SourceGit = "git" // Branch of a local clone
)

// Defaults applied to empty fields.
const (
	DefaultAPIBase = "https://api.github.com"
	DefaultBranch  = "gh-pages"
	DefaultEntry   = "index.html"
	DefaultPort    = 3000
)

// SiteConfig describes the site sitegate serves.
// Stored at ~/.config/sitegate/config.toml
// Schema changes require a version bump (see internal/version/version.go).
type SiteConfig struct {
	SitegateSchema string `toml:"sitegate_schema"`

	Source   string `toml:"source,omitempty"`
	APIBase  string `toml:"api_base,omitempty"`
	Owner    string `toml:"owner,omitempty"`
	Repo     string `toml:"repo,omitempty"`
	Branch   string `toml:"branch,omitempty"`
	LocalDir string `toml:"local_dir,omitempty"` // For the dir and git sources

	Entry      string `toml:"entry,omitempty"`
	RootPrefix string `toml:"root_prefix,omitempty"` // Deployment path segment, e.g. "medical-flow"

	InterceptPrefixes  []string          `toml:"intercept_prefixes,omitempty"`
	PassPrefixes       []string          `toml:"pass_prefixes,omitempty"`
	ImagePrefixes      []string          `toml:"image_prefixes,omitempty"`
	ContentTypes       map[string]string `toml:"content_types,omitempty"` // extension -> MIME type
	DefaultContentType string            `toml:"default_content_type,omitempty"`

	Port      int    `toml:"port,omitempty"`
	TokenFile string `toml:"token_file,omitempty"`
}

// ApplyDefaults fills empty fields.
func (c *SiteConfig) ApplyDefaults() {
	if c.Source == "" {
		c.Source = SourceAPI
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate checks the fields the configured source needs.
func (c *SiteConfig) Validate() error {
	switch c.Source {
	case SourceAPI:
		if c.Owner == "" {
			return sgerr.InvalidField("owner", "repository owner is required")
		}
		if c.Repo == "" {
			return sgerr.InvalidField("repo", "repository name is required")
		}
		if !strings.HasPrefix(c.APIBase, "http://") && !strings.HasPrefix(c.APIBase, "https://") {
			return sgerr.InvalidField("api_base", fmt.Sprintf("must be an http(s) URL, got %q", c.APIBase))
		}
	case SourceDir, SourceGit:
		if c.LocalDir == "" {
			return sgerr.InvalidField("local_dir", fmt.Sprintf("required for the %s source", c.Source))
		}
	default:
		return sgerr.InvalidField("source", fmt.Sprintf("must be %s, %s or %s, got %q", SourceAPI, SourceDir, SourceGit, c.Source))
	}

	if c.Port < 0 || c.Port > 65535 {
		return sgerr.InvalidField("port", fmt.Sprintf("out of range: %d", c.Port))
	}
	if strings.ContainsAny(c.Entry, "?#") {
		return sgerr.InvalidField("entry", "must be a plain path")
	}
	return nil
}

// Rules builds the interception rules.
func (c *SiteConfig) Rules() *intercept.Rules {
	return intercept.NewRules(intercept.Options{
		Prefixes:           c.InterceptPrefixes,
		PassPrefixes:       c.PassPrefixes,
		ImagePrefixes:      c.ImagePrefixes,
		ContentTypes:       c.ContentTypes,
		DefaultContentType: c.DefaultContentType,
	})
}

// Describe returns a short human-readable name for the content source.
func (c *SiteConfig) Describe() string {
	switch c.Source {
	case SourceDir:
		return "dir:" + c.LocalDir
	case SourceGit:
		return fmt.Sprintf("git:%s@%s", c.LocalDir, c.Branch)
	}
	return fmt.Sprintf("%s/%s@%s", c.Owner, c.Repo, c.Branch)
}
