package version

import (
	"fmt"
)

// SchemaVersionError indicates a schema version problem while reading a file.
type SchemaVersionError struct {
	FilePath    string // Path to the problematic file
	Found       string // What was found (e.g., "missing", "config/2")
	Expected    string // What was expected (e.g., "config/1")
	MinRequired string // Minimum sitegate version required (if upgrade needed)
}

func (e *SchemaVersionError) Error() string {
	if e.MinRequired != "" {
		return fmt.Sprintf(
			"config schema %s requires sitegate >= %s (file: %s, supports up to: %s)",
			e.Found, e.MinRequired, e.FilePath, e.Expected,
		)
	}
	if e.Found == "missing" {
		return fmt.Sprintf(
			"config has no sitegate_schema (file: %s). Run 'sitegate init --force' to recreate it.",
			e.FilePath,
		)
	}
	return fmt.Sprintf(
		"config has invalid schema: found %s, expected %s (file: %s)",
		e.Found, e.Expected, e.FilePath,
	)
}

// MissingConfigSchema creates an error for a config missing sitegate_schema.
func MissingConfigSchema(path string) error {
	return &SchemaVersionError{
		FilePath: path,
		Found:    "missing",
		Expected: CurrentConfigSchema(),
	}
}

// InvalidConfigSchema creates an error for a config with an unsupported schema.
func InvalidConfigSchema(path, found string) error {
	e := &SchemaVersionError{
		FilePath: path,
		Found:    found,
		Expected: CurrentConfigSchema(),
	}
	// A future version names the release that can read it
	if v, err := ParseConfigVersion(found); err == nil && v > CurrentConfigVersion {
		if minVersion, ok := MinSitegateVersion[found]; ok {
			e.MinRequired = minVersion
		} else {
			e.MinRequired = "a newer version"
		}
	}
	return e
}
