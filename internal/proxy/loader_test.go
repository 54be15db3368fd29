package proxy

import (
	"context"
	"strings"
	"testing"

	"github.com/amterp/sitegate/internal/content"
	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/intercept"
	"github.com/amterp/sitegate/internal/locator"
	"github.com/amterp/sitegate/internal/rewrite"
	"github.com/amterp/sitegate/internal/shim"
	"github.com/amterp/sitegate/testutil"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func newLoader(api *testutil.ContentAPI, token, rootPrefix string) *Loader {
	coords := content.Coordinates{Owner: testutil.Owner, Repo: testutil.Repo, Branch: testutil.Branch}
	client := content.NewClient(api.URL(), coords, token)
	runtime := shim.Config{
		Token:   token,
		APIBase: api.URL(),
		Owner:   testutil.Owner,
		Repo:    testutil.Repo,
		Branch:  testutil.Branch,
		Rules:   intercept.DefaultRules(),
	}
	return NewLoader(client, rewrite.New(locator.NewNormalizer(rootPrefix)), "", runtime)
}

func TestLoad_InlinesAndInjects(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.Put("index.html", `<!DOCTYPE html><html><head><link rel="stylesheet" href="/app/site.css"><script src="/app/main.js"></script></head><body><div id="root"></div></body></html>`)
	api.Put("main.js", "console.log(1)")
	api.Put("site.css", "body{margin:0}")

	out, err := newLoader(api, testutil.Token, "app").Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !strings.Contains(out, "<script>console.log(1)</script>") {
		t.Errorf("script not inlined:\n%s", out)
	}
	if !strings.Contains(out, "<style>body{margin:0}</style>") {
		t.Errorf("stylesheet not inlined:\n%s", out)
	}
	if api.Hits("main.js") != 1 || api.Hits("site.css") != 1 {
		t.Errorf("hits main.js=%d site.css=%d, want 1 each", api.Hits("main.js"), api.Hits("site.css"))
	}

	doc, err := rewrite.Parse(out)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if !shim.Injected(doc) {
		t.Error("runtime shim missing from output")
	}
	head := rewrite.Find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Head
	})
	first := firstElement(head)
	if first == nil {
		t.Fatal("head is empty")
	}
	if _, ok := rewrite.Attr(first, shim.MarkerAttr); !ok {
		t.Errorf("first head element is <%s>, want the runtime shim", first.Data)
	}
}

func TestLoad_OutOfScopeOnly(t *testing.T) {
	api := testutil.NewContentAPI(t)
	src := `<html><head><script src="https://cdn.example.com/x.js"></script></head><body><p>hi</p></body></html>`
	api.Put("index.html", src)

	out, err := newLoader(api, testutil.Token, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Removing the shim yields the plain parse-and-render of the input.
	doc, _ := rewrite.Parse(out)
	shimNode := rewrite.Find(doc, func(n *html.Node) bool {
		_, ok := rewrite.Attr(n, shim.MarkerAttr)
		return ok
	})
	shimNode.Parent.RemoveChild(shimNode)
	got, _ := rewrite.Render(doc)

	want, _ := rewrite.Parse(src)
	wantOut, _ := rewrite.Render(want)
	if got != wantOut {
		t.Errorf("document changed beyond the shim:\ngot:  %s\nwant: %s", got, wantOut)
	}
	if api.Requests() != 1 {
		t.Errorf("requests = %d, want only the entry document", api.Requests())
	}
}

func TestLoad_SecondPassIsStable(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.Put("index.html", `<html><head><script src="a.js"></script></head><body></body></html>`)
	api.Put("a.js", "1")

	l := newLoader(api, testutil.Token, "")
	once, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	before := api.Requests()
	twice, err := l.Process(context.Background(), once)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if api.Requests() != before {
		t.Error("second pass issued store requests")
	}
	if strings.Count(twice, shim.MarkerAttr) != 1 {
		t.Error("second pass injected another shim")
	}
	if once != twice {
		t.Error("second pass changed the document")
	}
}

func TestLoad_AuthFailureAfterOneAttempt(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.Put("index.html", `<html><head><script src="a.js"></script></head></html>`)
	api.Put("a.js", "1")

	_, err := newLoader(api, "expired", "").Load(context.Background())
	if !sgerr.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if api.Requests() != 1 {
		t.Errorf("requests = %d, want 1", api.Requests())
	}
}

func TestLoad_MissingResourceAborts(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.Put("index.html", `<html><head><script src="gone.js"></script><script src="a.js"></script></head></html>`)
	api.Put("a.js", "1")

	out, err := newLoader(api, testutil.Token, "").Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if out != "" {
		t.Error("partial output returned")
	}
	if !sgerr.IsResolve(err) || !sgerr.IsNotFound(err) {
		t.Errorf("expected resolve/not-found error, got %v", err)
	}
	if api.Hits("a.js") != 0 {
		t.Error("resolution continued after the first failure")
	}
}

func TestLoad_MissingEntry(t *testing.T) {
	api := testutil.NewContentAPI(t)

	_, err := newLoader(api, testutil.Token, "").Load(context.Background())
	if !sgerr.IsResolve(err) || !sgerr.IsNotFound(err) {
		t.Errorf("expected resolve/not-found error, got %v", err)
	}
}

func TestLoad_InvalidEntryEncoding(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.PutBytes("index.html", []byte("<html><body>caf\xe9</body></html>"))

	_, err := newLoader(api, testutil.Token, "").Load(context.Background())
	if !sgerr.IsParse(err) {
		t.Errorf("expected parse error, got %v", err)
	}
	if sgerr.IsResolve(err) {
		t.Error("parse failure should not be reported as a resolution failure")
	}
}

func TestLoad_FetcherOnlyStore(t *testing.T) {
	store := content.FetcherFunc(func(ctx context.Context, path string) (string, error) {
		if path == "index.html" {
			return `<html><head><script src="a.js"></script></head></html>`, nil
		}
		return "var a;", nil
	})
	l := NewLoader(store, nil, "", shim.Config{Rules: intercept.DefaultRules(), ProxyBase: "http://localhost:1"})

	out, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(out, "<script>var a;</script>") {
		t.Errorf("script not inlined:\n%s", out)
	}
}

func TestLoad_LargeScript(t *testing.T) {
	api := testutil.NewContentAPI(t)
	api.Put("index.html", `<html><head><script src="./bundle.js"></script></head></html>`)
	api.PutLarge("bundle.js", strings.Repeat("x", 4096))

	out, err := newLoader(api, testutil.Token, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(out, strings.Repeat("x", 4096)) {
		t.Error("large script not inlined")
	}
	if api.BlobHits() != 1 {
		t.Errorf("blob hits = %d, want 1", api.BlobHits())
	}
}

func TestNewLoader_NormalizesEntry(t *testing.T) {
	l := NewLoader(content.FetcherFunc(nil), nil, "/site/index.html?v=1", shim.Config{})
	if l.Entry() != "site/index.html" {
		t.Errorf("Entry() = %q, want site/index.html", l.Entry())
	}
	if NewLoader(nil, nil, "", shim.Config{}).Entry() != DefaultEntry {
		t.Error("empty entry should default")
	}
}

func firstElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
