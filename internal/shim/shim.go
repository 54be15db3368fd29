// Package shim generates the runtime script injected into rendered documents.
//
// The script runs inside the browser, isolated from this process. Everything
// it needs is embedded by value into its source when it is built.
package shim

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/intercept"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerAttr identifies an injected runtime script.
const MarkerAttr = "data-sitegate-runtime"

//go:embed runtime.js.tmpl
var runtimeSource string

var runtimeTemplate = template.Must(template.New("runtime").Parse(runtimeSource))

// Config is embedded into the generated script.
type Config struct {
	Token   string
	APIBase string
	Owner   string
	Repo    string
	Branch  string

	Rules *intercept.Rules

	// ProxyBase, when set, sends intercepted requests to a same-origin
	// endpoint instead of the content store API, and the token is not embedded.
	ProxyBase string

	// ReloadURL, when set, is a WebSocket URL announcing re-rendered documents.
	ReloadURL string
}

// Validate checks the config has what the chosen mode needs.
func (c Config) Validate() error {
	if c.Rules == nil {
		return sgerr.InvalidField("rules", "interception rules are required")
	}
	if c.ProxyBase != "" {
		return nil
	}
	if c.Token == "" {
		return sgerr.InvalidField("token", "a token is required unless requests are proxied")
	}
	if c.APIBase == "" || c.Owner == "" || c.Repo == "" || c.Branch == "" {
		return sgerr.InvalidField("store", "api base, owner, repo and branch are required")
	}
	return nil
}

type ruleJSON struct {
	Prefix   string `json:"prefix"`
	Handling string `json:"handling"`
}

type configJSON struct {
	Token              string            `json:"token,omitempty"`
	APIBase            string            `json:"apiBase,omitempty"`
	Owner              string            `json:"owner,omitempty"`
	Repo               string            `json:"repo,omitempty"`
	Branch             string            `json:"branch,omitempty"`
	Rules              []ruleJSON        `json:"rules"`
	ImagePrefixes      []string          `json:"imagePrefixes"`
	ContentTypes       map[string]string `json:"contentTypes"`
	DefaultContentType string            `json:"defaultContentType"`
	ProxyBase          string            `json:"proxyBase,omitempty"`
	ReloadURL          string            `json:"reloadURL,omitempty"`
}

// Build returns the runtime script source for cfg. Values are serialized as a
// JSON literal; encoding/json escapes '<', '>', '&', U+2028 and U+2029, so
// no value can terminate the script element or the literal.
func Build(cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	payload := configJSON{
		APIBase:            strings.TrimRight(cfg.APIBase, "/"),
		Owner:              cfg.Owner,
		Repo:               cfg.Repo,
		Branch:             cfg.Branch,
		ImagePrefixes:      cfg.Rules.ImagePrefixes(),
		ContentTypes:       cfg.Rules.ContentTypes(),
		DefaultContentType: cfg.Rules.DefaultContentType(),
		ProxyBase:          strings.TrimRight(cfg.ProxyBase, "/"),
		ReloadURL:          cfg.ReloadURL,
	}
	if cfg.ProxyBase == "" {
		payload.Token = cfg.Token
	}
	payload.Rules = make([]ruleJSON, 0, len(cfg.Rules.Rules()))
	for _, r := range cfg.Rules.Rules() {
		payload.Rules = append(payload.Rules, ruleJSON{Prefix: r.Prefix, Handling: string(r.Handling)})
	}

	configLiteral, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode runtime config: %w", err)
	}

	var b strings.Builder
	if err := runtimeTemplate.Execute(&b, struct{ ConfigJSON string }{string(configLiteral)}); err != nil {
		return "", fmt.Errorf("failed to render runtime script: %w", err)
	}
	return b.String(), nil
}

// Inject inserts the runtime script as the first element of the document
// head so it runs before any other script. Returns false without changing
// doc when a runtime script is already present.
func Inject(doc *html.Node, source string) bool {
	if Injected(doc) {
		return false
	}

	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: MarkerAttr, Val: ""}},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: source})

	head := ensureHead(doc)
	head.InsertBefore(script, head.FirstChild)
	return true
}

// Injected reports whether doc already carries a runtime script.
func Injected(doc *html.Node) bool {
	return find(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			return false
		}
		for _, a := range n.Attr {
			if a.Key == MarkerAttr {
				return true
			}
		}
		return false
	}) != nil
}

func ensureHead(doc *html.Node) *html.Node {
	if head := find(doc, isElement(atom.Head)); head != nil {
		return head
	}

	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	root := find(doc, isElement(atom.Html))
	if root == nil {
		root = doc
	}
	root.InsertBefore(head, root.FirstChild)
	return head
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func find(n *html.Node, fn func(*html.Node) bool) *html.Node {
	if fn(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, fn); found != nil {
			return found
		}
	}
	return nil
}
