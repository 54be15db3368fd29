package cli

import (
	"encoding/json"
	"fmt"

	"github.com/amterp/sitegate/internal/locator"
	"github.com/amterp/sitegate/internal/rewrite"
)

// referenceJson describes a script or stylesheet reference for JSON output.
type referenceJson struct {
	Kind    string `json:"kind"`
	Locator string `json:"locator"`
	Path    string `json:"path,omitempty"` // Store path; empty when left as is
	InScope bool   `json:"in_scope"`
}

// CheckOutput wraps the result of 'sitegate check' for JSON output.
type CheckOutput struct {
	Source     string          `json:"source"`
	Entry      string          `json:"entry"`
	References []referenceJson `json:"references"`
}

// NewCheckOutput creates a CheckOutput from the entry document's references.
// Always returns an empty array (not null) when there are no references.
func NewCheckOutput(source, entry string, refs []rewrite.Reference, normalizer *locator.Normalizer) CheckOutput {
	result := make([]referenceJson, 0, len(refs))
	for _, ref := range refs {
		r := referenceJson{
			Kind:    string(ref.Kind),
			Locator: ref.Locator,
			InScope: ref.InScope(),
		}
		if r.InScope {
			r.Path = normalizer.Normalize(ref.Locator)
		}
		result = append(result, r)
	}
	return CheckOutput{Source: source, Entry: entry, References: result}
}

// printJson marshals the value as indented JSON and prints it to stdout.
func printJson(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

// warnJsonNotSupported prints a warning to stderr when --json is used on an unsupported command.
func warnJsonNotSupported(command string) {
	PrintWarning("--json is not supported for '%s' (flag ignored)", command)
}
