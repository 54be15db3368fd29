package cli

import "testing"

func TestConfigFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"long flag equals", []string{"sitegate", "serve", "--config=site.toml"}, "site.toml"},
		{"short flag equals", []string{"sitegate", "serve", "-c=site.toml"}, "site.toml"},
		{"long flag space", []string{"sitegate", "fetch", "--config", "site.toml", "index.html"}, "site.toml"},
		{"short flag space", []string{"sitegate", "fetch", "-c", "site.toml", "index.html"}, "site.toml"},
		{"no flag", []string{"sitegate", "fetch", "index.html"}, ""},
		{"flag at end", []string{"sitegate", "fetch", "-c"}, ""},
		{"empty equals value", []string{"sitegate", "fetch", "--config=", "index.html"}, ""},
		{"first flag wins", []string{"sitegate", "-c", "a.toml", "-c", "b.toml"}, "a.toml"},
		{"nil args", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configFromArgs(tt.args); got != tt.want {
				t.Errorf("configFromArgs(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCompleteSources(t *testing.T) {
	got, _ := completeSources("d")
	if len(got) != 1 || got[0] != "dir" {
		t.Errorf("completeSources(\"d\") = %v, want [dir]", got)
	}

	all, _ := completeSources("")
	if len(all) != 3 {
		t.Errorf("completeSources(\"\") = %v, want 3 sources", all)
	}
}
