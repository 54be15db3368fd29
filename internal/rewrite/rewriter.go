// Package rewrite inlines a site's own scripts and stylesheets into its entry
// document so it can be rendered without a server behind it.
package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/locator"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is the kind of resource an InlineRule handles.
type Kind string

const (
	KindScript     Kind = "script"
	KindStylesheet Kind = "stylesheet"
)

// ResolveFunc returns the text content stored at a normalized path.
type ResolveFunc func(ctx context.Context, path string) (string, error)

// InlineRule pairs a selector and locator attribute with the element that
// replaces a matched reference.
type InlineRule struct {
	Kind    Kind
	Attr    string
	Match   func(n *html.Node) bool
	Replace func(orig *html.Node, content string) *html.Node
}

// Reference is a resource reference found in a document.
type Reference struct {
	Kind    Kind
	Locator string
	Node    *html.Node
}

// InScope reports whether the reference will be inlined.
func (r Reference) InScope() bool {
	return locator.InScope(r.Locator)
}

// DefaultRules returns the inline rules in evaluation order: scripts, then stylesheets.
func DefaultRules() []InlineRule {
	return []InlineRule{
		{
			Kind:    KindScript,
			Attr:    "src",
			Match:   isExternalScript,
			Replace: inlineScript,
		},
		{
			Kind:    KindStylesheet,
			Attr:    "href",
			Match:   isStylesheetLink,
			Replace: inlineStyle,
		},
	}
}

// Rewriter inlines in-scope resource references.
type Rewriter struct {
	rules      []InlineRule
	normalizer *locator.Normalizer
}

// New creates a rewriter using DefaultRules.
func New(normalizer *locator.Normalizer) *Rewriter {
	if normalizer == nil {
		normalizer = locator.NewNormalizer("")
	}
	return &Rewriter{rules: DefaultRules(), normalizer: normalizer}
}

// Rewrite parses src, inlines every in-scope reference and returns the
// serialized result. Nothing is returned unless every reference resolved.
func (r *Rewriter) Rewrite(ctx context.Context, src string, resolve ResolveFunc) (string, error) {
	doc, err := Parse(src)
	if err != nil {
		return "", err
	}
	if err := r.RewriteDocument(ctx, doc, resolve); err != nil {
		return "", err
	}
	return Render(doc)
}

// RewriteDocument inlines references in doc in place. Resolution is
// sequential: rules in order, elements in document order. The first failure
// aborts with a *errors.ResolveError; doc is then partially rewritten and
// must be discarded.
func (r *Rewriter) RewriteDocument(ctx context.Context, doc *html.Node, resolve ResolveFunc) error {
	for _, rule := range r.rules {
		// Snapshot before replacing anything.
		nodes := collect(doc, rule.Match)

		for _, n := range nodes {
			loc, ok := attr(n, rule.Attr)
			if !ok || !locator.InScope(loc) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			path := r.normalizer.Normalize(loc)
			text, err := resolve(ctx, path)
			if err != nil {
				return &sgerr.ResolveError{Kind: string(rule.Kind), Locator: loc, Path: path, Err: err}
			}

			replaceNode(n, rule.Replace(n, text))
		}
	}
	return nil
}

// References lists every reference the rules match, in resolution order,
// including out-of-scope ones.
func (r *Rewriter) References(doc *html.Node) []Reference {
	var refs []Reference
	for _, rule := range r.rules {
		for _, n := range collect(doc, rule.Match) {
			loc, _ := attr(n, rule.Attr)
			refs = append(refs, Reference{Kind: rule.Kind, Locator: loc, Node: n})
		}
	}
	return refs
}

// Parse parses an entry document. Input that isn't UTF-8 is rejected.
func Parse(src string) (*html.Node, error) {
	if !utf8.ValidString(src) {
		return nil, &sgerr.ParseError{Message: "document is not valid UTF-8"}
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, &sgerr.ParseError{Message: "failed to parse markup", Err: err}
	}
	return doc, nil
}

// Render serializes doc.
func Render(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

func isExternalScript(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Script || n.Namespace != "" {
		return false
	}
	_, ok := attr(n, "src")
	return ok
}

func isStylesheetLink(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Link || n.Namespace != "" {
		return false
	}
	if _, ok := attr(n, "href"); !ok {
		return false
	}
	rel, _ := attr(n, "rel")
	stylesheet := false
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		switch token {
		case "stylesheet":
			stylesheet = true
		case "alternate":
			// Alternate sheets are disabled by default; inlining would enable them.
			return false
		}
	}
	return stylesheet
}

// rawTextEnd matches an end tag that would close an inlined element early.
var rawTextEnd = regexp.MustCompile(`(?i)</(script|style)`)

func escapeRawText(content string) string {
	return rawTextEnd.ReplaceAllString(content, `<\/$1`)
}

func inlineScript(orig *html.Node, content string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	if typ, ok := attr(orig, "type"); ok && typ != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "type", Val: typ})
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: escapeRawText(content)})
	return n
}

func inlineStyle(orig *html.Node, content string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
	if media, ok := attr(orig, "media"); ok && media != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "media", Val: media})
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: escapeRawText(content)})
	return n
}

func replaceNode(old, repl *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
}

// collect returns the nodes under root matching fn, in document order.
func collect(root *html.Node, fn func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if fn(n) {
			out = append(out, n)
		}
		// Template contents are inert until cloned by script.
		if n.Type == html.ElementNode && n.DataAtom == atom.Template {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Attr returns the value of an element's attribute.
func Attr(n *html.Node, key string) (string, bool) {
	return attr(n, key)
}

// Find returns the first node under root matching fn, or nil.
func Find(root *html.Node, fn func(*html.Node) bool) *html.Node {
	if nodes := collect(root, fn); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}
