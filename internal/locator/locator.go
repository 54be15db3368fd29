// Package locator maps resource references found in markup to content store paths.
package locator

import (
	"regexp"
	"strings"
)

// scheme matches an RFC 3986 scheme prefix such as "https:" or "javascript:".
var scheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// IsExternal reports whether loc is addressed outside the content store:
// an absolute URL, a protocol-relative URL, or a pseudo-protocol.
func IsExternal(loc string) bool {
	loc = strings.TrimSpace(loc)
	if strings.HasPrefix(loc, "//") {
		return true
	}
	return scheme.MatchString(loc)
}

// InScope reports whether loc should be resolved through the content store.
func InScope(loc string) bool {
	loc = strings.TrimSpace(loc)
	return loc != "" && !IsExternal(loc)
}

// Normalizer strips deployment-time prefixes from locators.
type Normalizer struct {
	// RootPrefix is the hosting root the site was built for, e.g. "medical-flow".
	// Only stripped from rooted locators. Empty disables it.
	RootPrefix string
}

// NewNormalizer creates a normalizer for the given deployment root.
func NewNormalizer(rootPrefix string) *Normalizer {
	return &Normalizer{RootPrefix: strings.Trim(rootPrefix, "/")}
}

// Normalize returns the root-relative store path for loc.
// External locators are returned unchanged. The result never starts with "/",
// so normalizing twice is the same as normalizing once.
func (n *Normalizer) Normalize(loc string) string {
	if IsExternal(loc) {
		return loc
	}

	loc = strings.TrimSpace(loc)
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}

	rooted := strings.HasPrefix(loc, "/")
	loc = trimSeparators(loc)

	root := strings.Trim(n.RootPrefix, "/")
	if rooted && root != "" {
		if loc == root {
			return ""
		}
		if strings.HasPrefix(loc, root+"/") {
			loc = trimSeparators(loc[len(root)+1:])
		}
	}

	return loc
}

func trimSeparators(loc string) string {
	for {
		switch {
		case strings.HasPrefix(loc, "/"):
			loc = loc[1:]
		case strings.HasPrefix(loc, "./"):
			loc = loc[2:]
		default:
			return loc
		}
	}
}
