package credential

import (
	"fmt"
	"os"
	"strings"

	"github.com/amterp/sitegate/internal/prompt"
)

// EnvVar holds the access token for the content store.
const EnvVar = "SITEGATE_TOKEN"

// GetToken returns the access token for the content store API using
// fallback chain:
// 1. $SITEGATE_TOKEN environment variable
// 2. Contents of tokenFile, if set
// 3. Password prompt (fails in non-interactive mode)
// 4. Explicit helpful error
func GetToken(tokenFile string, prompter prompt.Prompter) (string, error) {
	// 1. SITEGATE_TOKEN env var (highest priority)
	if token := strings.TrimSpace(os.Getenv(EnvVar)); token != "" {
		return token, nil
	}

	// 2. token_file
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	// 3. Prompt
	if prompter != nil {
		token, err := prompter.Secret("Access token for the content repository")
		if err == nil && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}

	// 4. Explicit error with helpful message
	return "", fmt.Errorf("no access token: set $%s, set token_file in the config, or run interactively", EnvVar)
}
