// Package proxy turns a site's entry document into a single self-contained
// document: in-scope scripts and stylesheets inlined, runtime shim injected.
package proxy

import (
	"context"
	"fmt"

	"github.com/amterp/sitegate/internal/content"
	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/locator"
	"github.com/amterp/sitegate/internal/rewrite"
	"github.com/amterp/sitegate/internal/shim"
)

// DefaultEntry is the entry document path in the content store.
const DefaultEntry = "index.html"

// Loader runs the load pipeline against a content store.
type Loader struct {
	store    content.Fetcher
	rewriter *rewrite.Rewriter
	entry    string
	runtime  shim.Config
}

// NewLoader creates a loader. An empty entry means DefaultEntry.
func NewLoader(store content.Fetcher, rewriter *rewrite.Rewriter, entry string, runtime shim.Config) *Loader {
	if entry == "" {
		entry = DefaultEntry
	}
	if rewriter == nil {
		rewriter = rewrite.New(nil)
	}
	return &Loader{
		store:    store,
		rewriter: rewriter,
		entry:    locator.NewNormalizer("").Normalize(entry),
		runtime:  runtime,
	}
}

// Entry returns the normalized entry path.
func (l *Loader) Entry() string {
	return l.entry
}

// Load fetches the entry document and processes it.
func (l *Loader) Load(ctx context.Context) (string, error) {
	src, err := l.fetchEntry(ctx)
	if err != nil {
		return "", err
	}
	return l.Process(ctx, src)
}

// fetchEntry reads the entry document. Stores exposing raw bytes get a strict
// encoding check; resources stay leniently decoded.
func (l *Loader) fetchEntry(ctx context.Context) (string, error) {
	s, ok := l.store.(content.Store)
	if !ok {
		src, err := l.store.Fetch(ctx, l.entry)
		if err != nil {
			return "", l.entryError(err)
		}
		return src, nil
	}

	b, err := s.FetchBytes(ctx, l.entry)
	if err != nil {
		return "", l.entryError(err)
	}
	if !content.ValidText(b) {
		return "", &sgerr.ParseError{Message: fmt.Sprintf("%s is not valid UTF-8", l.entry)}
	}
	return content.DecodeText(b), nil
}

func (l *Loader) entryError(err error) error {
	return &sgerr.ResolveError{Kind: "entry", Locator: l.entry, Path: l.entry, Err: err}
}

// Process rewrites src, injects the runtime shim and serializes the result.
// No output is produced unless every step succeeds.
func (l *Loader) Process(ctx context.Context, src string) (string, error) {
	doc, err := rewrite.Parse(src)
	if err != nil {
		return "", err
	}

	if err := l.rewriter.RewriteDocument(ctx, doc, l.store.Fetch); err != nil {
		return "", err
	}

	runtime, err := shim.Build(l.runtime)
	if err != nil {
		return "", fmt.Errorf("failed to build runtime: %w", err)
	}
	shim.Inject(doc, runtime)

	return rewrite.Render(doc)
}
