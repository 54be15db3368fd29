package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Editor handles editor resolution and invocation.
type Editor struct {
	// Command overrides the resolved editor, mainly for tests.
	Command string
}

// NewEditor creates a new Editor.
func NewEditor() *Editor {
	return &Editor{}
}

// Resolve returns the editor command to use.
// Order: Command > $VISUAL > $EDITOR > vi
func (e *Editor) Resolve() string {
	if e.Command != "" {
		return e.Command
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	return "vi"
}

// Edit opens the editor with the given content and returns the edited content.
func (e *Editor) Edit(content string) (string, error) {
	tmpFile, err := os.CreateTemp("", "sitegate-*.toml")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return "", err
	}
	tmpFile.Close()

	// Editors may carry arguments, e.g. "code -w"
	args := strings.Fields(e.Resolve())
	if len(args) == 0 {
		return "", fmt.Errorf("no editor configured")
	}
	cmd := exec.Command(args[0], append(args[1:], tmpPath)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", err
	}

	return string(edited), nil
}
