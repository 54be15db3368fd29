package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/model"
	"github.com/amterp/sitegate/internal/version"
)

func TestConfigStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	s := NewConfigStore(path)

	if s.Exists() {
		t.Fatal("Exists() = true before Save")
	}

	cfg := &model.SiteConfig{
		Owner:             "acme",
		Repo:              "site",
		RootPrefix:        "medical-flow",
		InterceptPrefixes: []string{"data", "ml"},
		ContentTypes:      map[string]string{".csv": "text/csv"},
	}
	if err := s.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if cfg.SitegateSchema != version.CurrentConfigSchema() {
		t.Errorf("Save did not stamp schema, got %q", cfg.SitegateSchema)
	}
	if !s.Exists() {
		t.Error("Exists() = false after Save")
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Owner != "acme" || loaded.Repo != "site" || loaded.RootPrefix != "medical-flow" {
		t.Errorf("Load() = %+v", loaded)
	}
	if len(loaded.InterceptPrefixes) != 2 || loaded.InterceptPrefixes[1] != "ml" {
		t.Errorf("InterceptPrefixes = %v", loaded.InterceptPrefixes)
	}
	if loaded.ContentTypes[".csv"] != "text/csv" {
		t.Errorf("ContentTypes = %v", loaded.ContentTypes)
	}
	// Defaults are filled on load
	if loaded.Branch != model.DefaultBranch || loaded.Port != model.DefaultPort {
		t.Errorf("defaults not applied: branch=%q port=%d", loaded.Branch, loaded.Port)
	}
}

func TestConfigStore_LoadMissing(t *testing.T) {
	s := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))

	_, err := s.Load()
	if !sgerr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestConfigStore_SchemaValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMin string
	}{
		{"missing schema", "owner = \"acme\"\n", ""},
		{"unknown schema", "sitegate_schema = \"board/1\"\n", ""},
		{"future schema", "sitegate_schema = \"config/9\"\n", "a newer version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := NewConfigStore(path).Load()
			var schemaErr *version.SchemaVersionError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaVersionError, got %v", err)
			}
			if schemaErr.MinRequired != tt.wantMin {
				t.Errorf("MinRequired = %q, want %q", schemaErr.MinRequired, tt.wantMin)
			}
		})
	}
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("owner = [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewConfigStore(path).Load()
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}
