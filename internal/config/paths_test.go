package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigPath(t *testing.T) {
	t.Setenv(ConfigEnvVar, "")

	if got := ConfigPath("/etc/site.toml"); got != "/etc/site.toml" {
		t.Errorf("ConfigPath(explicit) = %q, want /etc/site.toml", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	want := filepath.Join(home, ".config", "sitegate", "config.toml")
	if got := ConfigPath(""); got != want {
		t.Errorf("ConfigPath(\"\") = %q, want %q", got, want)
	}
}

func TestConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(ConfigEnvVar, "/tmp/other.toml")

	if got := ConfigPath(""); got != "/tmp/other.toml" {
		t.Errorf("ConfigPath(\"\") = %q, want /tmp/other.toml", got)
	}
	if got := ConfigPath("/explicit.toml"); got != "/explicit.toml" {
		t.Errorf("explicit path should beat the environment, got %q", got)
	}
}

func TestResolveLocal(t *testing.T) {
	cfg := filepath.Join("/srv", "sitegate", "config.toml")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/dist", "/abs/dist"},
		{"dist", filepath.Join("/srv", "sitegate", "dist")},
		{"../token", filepath.Join("/srv", "token")},
	}

	for _, tt := range tests {
		if got := ResolveLocal(cfg, tt.in); got != tt.want {
			t.Errorf("ResolveLocal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
