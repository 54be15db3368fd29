// Package intercept decides which page requests are served from the content
// store and how their responses are typed. The runtime shim and the render
// host's fallback handler share these rules.
package intercept

import (
	"path"
	"sort"
	"strings"

	"github.com/amterp/sitegate/internal/locator"
)

// Handling says what happens to a request matching a Rule.
type Handling string

const (
	// Redirect sends the request through the authenticated channel.
	Redirect Handling = "redirect"
	// Pass leaves the request untouched.
	Pass Handling = "pass"
)

// Rule matches request URLs containing Prefix.
type Rule struct {
	Prefix   string
	Handling Handling
}

// Default namespaces and content types.
var (
	DefaultPrefixes      = []string{"/data/", "/ml/", "/images/"}
	DefaultImagePrefixes = []string{"images/"}
	DefaultContentTypes  = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
	}
)

// DefaultContentType is used for extensions missing from the table.
const DefaultContentType = "application/json"

// Rules is an immutable set of interception rules plus the content-type table.
type Rules struct {
	rules         []Rule
	imagePrefixes []string
	contentTypes  map[string]string
	defaultType   string
}

// Options configures NewRules. Empty fields take the defaults.
type Options struct {
	Prefixes           []string
	PassPrefixes       []string
	ImagePrefixes      []string
	ContentTypes       map[string]string
	DefaultContentType string
}

// NewRules builds a rule set. Prefixes are normalized to "/name/".
func NewRules(opts Options) *Rules {
	prefixes := opts.Prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	imagePrefixes := opts.ImagePrefixes
	if len(imagePrefixes) == 0 {
		imagePrefixes = DefaultImagePrefixes
	}
	contentTypes := opts.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = DefaultContentTypes
	}
	defaultType := opts.DefaultContentType
	if defaultType == "" {
		defaultType = DefaultContentType
	}

	r := &Rules{
		imagePrefixes: make([]string, 0, len(imagePrefixes)),
		contentTypes:  make(map[string]string, len(contentTypes)),
		defaultType:   defaultType,
	}
	for _, p := range prefixes {
		if p = segment(p); p != "" {
			r.rules = append(r.rules, Rule{Prefix: p, Handling: Redirect})
		}
	}
	for _, p := range opts.PassPrefixes {
		if p = segment(p); p != "" {
			r.rules = append(r.rules, Rule{Prefix: p, Handling: Pass})
		}
	}
	for _, p := range imagePrefixes {
		if p = strings.Trim(p, "/"); p != "" {
			r.imagePrefixes = append(r.imagePrefixes, p+"/")
		}
	}
	for ext, typ := range contentTypes {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.contentTypes[ext] = typ
	}
	return r
}

// DefaultRules returns the rules for the data, model and image namespaces.
func DefaultRules() *Rules {
	return NewRules(Options{})
}

// Match returns the store path for a request path or relative URL, and
// whether the request should be redirected. Relative URLs are treated as
// rooted; absolute URLs never match. The earliest prefix occurrence wins; at
// the same position the longest prefix wins.
func (r *Rules) Match(url string) (string, bool) {
	if locator.IsExternal(url) {
		return "", false
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}

	best := -1
	var rule Rule
	for _, candidate := range r.rules {
		i := strings.Index(url, candidate.Prefix)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || (i == best && len(candidate.Prefix) > len(rule.Prefix)) {
			best = i
			rule = candidate
		}
	}
	if best < 0 || rule.Handling != Redirect {
		return "", false
	}

	p := url[best:]
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.TrimLeft(p, "/"), true
}

// IsImage reports whether a store path is served as raw bytes.
func (r *Rules) IsImage(p string) bool {
	for _, prefix := range r.imagePrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// ContentType returns the response content type for a store path.
func (r *Rules) ContentType(p string) string {
	if typ, ok := r.contentTypes[strings.ToLower(path.Ext(p))]; ok {
		return typ
	}
	return r.defaultType
}

// Rules returns the rules in declaration order.
func (r *Rules) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Prefixes returns the redirected prefixes.
func (r *Rules) Prefixes() []string {
	var out []string
	for _, rule := range r.rules {
		if rule.Handling == Redirect {
			out = append(out, rule.Prefix)
		}
	}
	return out
}

// ImagePrefixes returns the image path prefixes.
func (r *Rules) ImagePrefixes() []string {
	return append([]string{}, r.imagePrefixes...)
}

// ContentTypes returns a copy of the extension table.
func (r *Rules) ContentTypes() map[string]string {
	out := make(map[string]string, len(r.contentTypes))
	for k, v := range r.contentTypes {
		out[k] = v
	}
	return out
}

// DefaultContentType returns the fallback content type.
func (r *Rules) DefaultContentType() string {
	return r.defaultType
}

// Extensions returns the known extensions, sorted.
func (r *Rules) Extensions() []string {
	exts := make([]string, 0, len(r.contentTypes))
	for ext := range r.contentTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func segment(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p + "/"
}
