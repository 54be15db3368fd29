package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/amterp/sitegate/internal/locator"
	"github.com/amterp/sitegate/internal/rewrite"
)

func TestNewCheckOutput(t *testing.T) {
	doc, err := rewrite.Parse(`<html><head>
<script src="/app/main.js"></script>
<script src="https://cdn.example.com/lib.js"></script>
<link rel="stylesheet" href="css/site.css">
</head><body></body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	normalizer := locator.NewNormalizer("app")
	refs := rewrite.New(normalizer).References(doc)

	out := NewCheckOutput("acme/site@gh-pages", "index.html", refs, normalizer)

	if len(out.References) != 3 {
		t.Fatalf("expected 3 references, got %d", len(out.References))
	}

	want := []referenceJson{
		{Kind: "script", Locator: "/app/main.js", Path: "main.js", InScope: true},
		{Kind: "script", Locator: "https://cdn.example.com/lib.js"},
		{Kind: "stylesheet", Locator: "css/site.css", Path: "css/site.css", InScope: true},
	}
	for i, w := range want {
		if out.References[i] != w {
			t.Errorf("References[%d] = %+v, want %+v", i, out.References[i], w)
		}
	}
}

func TestNewCheckOutput_EmptyArrayNotNull(t *testing.T) {
	out := NewCheckOutput("dir:dist", "index.html", nil, locator.NewNormalizer(""))

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"references":[]`) {
		t.Errorf("expected empty references array, got %s", data)
	}
}
