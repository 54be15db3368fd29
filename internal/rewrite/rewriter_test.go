package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/locator"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// recordingResolver serves files from a map and records every call in order.
type recordingResolver struct {
	files map[string]string
	calls []string
	errs  map[string]error
}

func newResolver(files map[string]string) *recordingResolver {
	return &recordingResolver{files: files, errs: map[string]error{}}
}

func (r *recordingResolver) resolve(ctx context.Context, path string) (string, error) {
	r.calls = append(r.calls, path)
	if err, ok := r.errs[path]; ok {
		return "", err
	}
	content, ok := r.files[path]
	if !ok {
		return "", sgerr.FileNotFound(path)
	}
	return content, nil
}

// canonical parses and renders src so outputs can be compared structurally.
func canonical(t *testing.T, src string) string {
	t.Helper()
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return out
}

func elements(doc *html.Node, a atom.Atom) []*html.Node {
	return collect(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	})
}

func TestRewrite_InlinesScript(t *testing.T) {
	rw := New(locator.NewNormalizer("app"))
	res := newResolver(map[string]string{"main.js": "console.log(1)"})

	out, err := rw.Rewrite(context.Background(),
		`<html><head><script src="/app/main.js"></script></head><body></body></html>`, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if len(res.calls) != 1 || res.calls[0] != "main.js" {
		t.Errorf("resolve calls = %v, want [main.js]", res.calls)
	}
	if !strings.Contains(out, "<script>console.log(1)</script>") {
		t.Errorf("expected inline script in output:\n%s", out)
	}
	if strings.Contains(out, "src=") {
		t.Errorf("output still has a src attribute:\n%s", out)
	}
}

func TestRewrite_InlinesStylesheet(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"css/site.css": "body > p { color: red; }"})

	out, err := rw.Rewrite(context.Background(),
		`<html><head><link rel="stylesheet" href="css/site.css" media="screen"></head><body></body></html>`, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if !strings.Contains(out, `<style media="screen">body > p { color: red; }</style>`) {
		t.Errorf("expected inline style with raw text:\n%s", out)
	}
	if strings.Contains(out, "<link") {
		t.Errorf("stylesheet link should be replaced:\n%s", out)
	}
}

func TestRewrite_PreservesScriptType(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"m.js": "export {}", "c.js": "x"})

	out, err := rw.Rewrite(context.Background(),
		`<html><head><script type="module" src="m.js" defer></script><script src="c.js" async></script></head></html>`, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if !strings.Contains(out, `<script type="module">export {}</script>`) {
		t.Errorf("module type not preserved:\n%s", out)
	}
	if !strings.Contains(out, `<script>x</script>`) {
		t.Errorf("classic script should have no attributes:\n%s", out)
	}
}

func TestRewrite_OrderScriptsThenStylesheets(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{
		"a.css": "a", "b.js": "b", "c.css": "c", "d.js": "d", "e.js": "e",
	})

	src := `<!DOCTYPE html><html><head>
<link rel="stylesheet" href="a.css">
<script src="b.js"></script>
<link rel="stylesheet" href="c.css">
</head><body>
<script src="d.js"></script>
<div><script src="e.js"></script></div>
</body></html>`

	out, err := rw.Rewrite(context.Background(), src, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	want := []string{"b.js", "d.js", "e.js", "a.css", "c.css"}
	if fmt.Sprint(res.calls) != fmt.Sprint(want) {
		t.Errorf("resolve order = %v, want %v", res.calls, want)
	}

	// Positions are preserved: a's style precedes b's script, which precedes c's style.
	ia := strings.Index(out, "<style>a</style>")
	ib := strings.Index(out, "<script>b</script>")
	ic := strings.Index(out, "<style>c</style>")
	if !(ia >= 0 && ia < ib && ib < ic) {
		t.Errorf("replacements not in original positions:\n%s", out)
	}
}

func TestRewrite_OutOfScopeUnchanged(t *testing.T) {
	rw := New(nil)
	res := newResolver(nil)

	src := `<!DOCTYPE html><html><head>
<script src="https://cdn.example.com/lib.js"></script>
<script src="//cdn.example.com/other.js"></script>
<script src="data:text/javascript,void 0"></script>
<script src=""></script>
<script>inline()</script>
<link rel="stylesheet" href="http://cdn.example.com/x.css">
<link rel="icon" href="favicon.ico">
<link rel="alternate stylesheet" href="dark.css">
</head><body><svg><script href="svg.js"></script></svg></body></html>`

	out, err := rw.Rewrite(context.Background(), src, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if len(res.calls) != 0 {
		t.Errorf("expected no resolve calls, got %v", res.calls)
	}
	if out != canonical(t, src) {
		t.Errorf("out-of-scope document changed:\ngot:  %s\nwant: %s", out, canonical(t, src))
	}
}

func TestRewrite_EscapesClosingTagInInlinedScript(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{
		"a.js":  `var s = "</script><p>x</p>";`,
		"s.css": `/* </STYLE><p>y</p> */`,
	})

	out, err := rw.Rewrite(context.Background(),
		`<html><head><script src="a.js"></script><link rel="stylesheet" href="s.css"></head><body></body></html>`,
		res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	doc, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse of output failed: %v", err)
	}
	if ps := elements(doc, atom.P); len(ps) != 0 {
		t.Errorf("inlined text leaked %d <p> elements into the document:\n%s", len(ps), out)
	}
	scripts := elements(doc, atom.Script)
	if len(scripts) != 1 {
		t.Fatalf("got %d scripts, want 1:\n%s", len(scripts), out)
	}
	want := `var s = "<\/script><p>x</p>";`
	if got := scripts[0].FirstChild.Data; got != want {
		t.Errorf("script text = %q, want %q", got, want)
	}
	styles := elements(doc, atom.Style)
	if len(styles) != 1 || styles[0].FirstChild.Data != `/* <\/STYLE><p>y</p> */` {
		t.Errorf("style not escaped:\n%s", out)
	}
}

func TestRewrite_SkipsTemplateContents(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"b.js": "b()", "t.css": "t{}"})

	src := `<html><head></head><body><template><script src="b.js"></script><link rel="stylesheet" href="t.css"></template></body></html>`
	out, err := rw.Rewrite(context.Background(), src, res.resolve)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if len(res.calls) != 0 {
		t.Errorf("expected no resolve calls, got %v", res.calls)
	}
	if out != canonical(t, src) {
		t.Errorf("template contents changed:\ngot:  %s\nwant: %s", out, canonical(t, src))
	}
}

func TestRewrite_AbortsOnFirstFailure(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"a.js": "a", "c.js": "c", "s.css": "s"})

	src := `<html><head><script src="a.js"></script><script src="/b.js"></script><script src="c.js"></script><link rel="stylesheet" href="s.css"></head></html>`

	out, err := rw.Rewrite(context.Background(), src, res.resolve)
	if err == nil {
		t.Fatal("expected error")
	}
	if out != "" {
		t.Errorf("partial output returned: %q", out)
	}

	var re *sgerr.ResolveError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ResolveError, got %T: %v", err, err)
	}
	if re.Locator != "/b.js" || re.Path != "b.js" || re.Kind != "script" {
		t.Errorf("ResolveError = %+v", re)
	}
	if !sgerr.IsNotFound(err) {
		t.Error("cause should remain visible through the ResolveError")
	}
	if want := []string{"a.js", "b.js"}; fmt.Sprint(res.calls) != fmt.Sprint(want) {
		t.Errorf("resolve calls = %v, want %v", res.calls, want)
	}
}

func TestRewrite_AuthFailureNotRetried(t *testing.T) {
	rw := New(nil)
	res := newResolver(nil)
	res.errs["a.js"] = &sgerr.AuthError{Status: 401}

	_, err := rw.Rewrite(context.Background(),
		`<html><head><script src="a.js"></script><script src="b.js"></script></head></html>`, res.resolve)

	if !sgerr.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(res.calls) != 1 {
		t.Errorf("resolve called %d times, want 1", len(res.calls))
	}
}

func TestRewrite_HonoursCancellation(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"a.js": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rw.Rewrite(ctx, `<html><head><script src="a.js"></script></head></html>`, res.resolve)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(res.calls) != 0 {
		t.Errorf("resolve should not run after cancellation, got %v", res.calls)
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"a.js": "var x = '<b>';", "s.css": "p{}"})

	src := `<html><head><script src="a.js"></script><link rel="stylesheet" href="s.css"></head><body></body></html>`
	once, err := rw.Rewrite(context.Background(), src, res.resolve)
	if err != nil {
		t.Fatalf("first Rewrite failed: %v", err)
	}

	res.calls = nil
	twice, err := rw.Rewrite(context.Background(), once, res.resolve)
	if err != nil {
		t.Fatalf("second Rewrite failed: %v", err)
	}
	if len(res.calls) != 0 {
		t.Errorf("second pass resolved %v, want nothing", res.calls)
	}
	if once != twice {
		t.Errorf("second pass changed the document:\n%s\n---\n%s", once, twice)
	}
}

func TestRewrite_NoInScopeReferencesRemain(t *testing.T) {
	rw := New(nil)
	res := newResolver(map[string]string{"a.js": "1", "b.js": "2", "x.css": "3"})

	doc, _ := Parse(`<html><head><script src="a.js"></script><link rel="stylesheet" href="x.css"></head><body><script src="./b.js"></script><script src="https://x/y.js"></script></body></html>`)
	if err := rw.RewriteDocument(context.Background(), doc, res.resolve); err != nil {
		t.Fatalf("RewriteDocument failed: %v", err)
	}

	for _, ref := range rw.References(doc) {
		if ref.InScope() {
			t.Errorf("in-scope %s reference remains: %q", ref.Kind, ref.Locator)
		}
	}
	if n := len(elements(doc, atom.Script)); n != 3 {
		t.Errorf("script count = %d, want 3", n)
	}
}

func TestReferences(t *testing.T) {
	rw := New(nil)
	doc, _ := Parse(`<html><head><link rel="Stylesheet" href="a.css"><script src="b.js"></script></head><body><script src="https://c/d.js"></script></body></html>`)

	refs := rw.References(doc)
	if len(refs) != 3 {
		t.Fatalf("References = %d, want 3", len(refs))
	}
	if refs[0].Kind != KindScript || refs[0].Locator != "b.js" || !refs[0].InScope() {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].Kind != KindScript || refs[1].InScope() {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[2].Kind != KindStylesheet || refs[2].Locator != "a.css" {
		t.Errorf("refs[2] = %+v", refs[2])
	}
}

func TestParse_RejectsInvalidUTF8(t *testing.T) {
	_, err := Parse("<html>\xff\xfe</html>")
	if !sgerr.IsParse(err) {
		t.Errorf("expected parse error, got %v", err)
	}

	rw := New(nil)
	_, err = rw.Rewrite(context.Background(), "\xc3\x28", newResolver(nil).resolve)
	if !sgerr.IsParse(err) {
		t.Errorf("Rewrite: expected parse error, got %v", err)
	}
}
