package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Client provides git operations used to suggest config defaults.
type Client struct{}

// NewClient creates a new git client.
func NewClient() *Client {
	return &Client{}
}

// GetRepoRoot returns the repository root directory.
// Returns an error if not in a git repository.
func (c *Client) GetRepoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRemoteURL returns the URL of the named remote.
func (c *Client) GetRemoteURL(remote string) (string, error) {
	cmd := exec.Command("git", "remote", "get-url", remote)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git remote %s: %w", remote, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo returns true if the current directory is inside a git repository.
func (c *Client) IsRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// ParseRemote extracts owner and repository from a hosted remote URL.
// Handles https://host/owner/repo(.git) and git@host:owner/repo(.git).
func ParseRemote(url string) (owner, repo string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "ssh://"):
		_, after, found := strings.Cut(url, "://")
		if !found {
			return "", "", false
		}
		_, rest, found = strings.Cut(after, "/")
		if !found {
			return "", "", false
		}
	case strings.Contains(url, "@") && strings.Contains(url, ":"):
		_, rest, _ = strings.Cut(url, ":")
	default:
		return "", "", false
	}

	rest = strings.TrimSuffix(strings.TrimSuffix(rest, "/"), ".git")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
