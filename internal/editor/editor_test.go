package editor

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")

	if got := NewEditor().Resolve(); got != "vi" {
		t.Errorf("Resolve() = %q, want vi", got)
	}

	t.Setenv("EDITOR", "nano")
	if got := NewEditor().Resolve(); got != "nano" {
		t.Errorf("Resolve() = %q, want nano", got)
	}

	t.Setenv("VISUAL", "code -w")
	if got := NewEditor().Resolve(); got != "code -w" {
		t.Errorf("Resolve() = %q, want 'code -w'", got)
	}

	e := &Editor{Command: "ed"}
	if got := e.Resolve(); got != "ed" {
		t.Errorf("Resolve() = %q, want ed", got)
	}
}

func TestEdit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// A fake editor that appends a line to the file it is given
	script := filepath.Join(t.TempDir(), "fake-editor")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'port = 8080' >> \"$1\"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	e := &Editor{Command: script}
	got, err := e.Edit("owner = \"acme\"\n")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if want := "owner = \"acme\"\nport = 8080\n"; got != want {
		t.Errorf("Edit() = %q, want %q", got, want)
	}
}
