package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/amterp/sitegate/internal/content"
	"github.com/amterp/sitegate/internal/render"
)

// Handler contains all HTTP handlers for the render host.
//
// Single site, single session: every browser tab sees the same current
// document. Loads are serialized so a burst of reload triggers produces
// documents one at a time.
type Handler struct {
	site     *Site
	loadMu   sync.Mutex
	onReload func(doc *render.Document)
}

// NewHandler creates a new handler for the given site.
func NewHandler(site *Site) *Handler {
	return &Handler{site: site}
}

// SetOnReload sets a callback that's called after a new document is published.
// Used by Server to notify open viewers.
func (h *Handler) SetOnReload(fn func(doc *render.Document)) {
	h.onReload = fn
}

// RegisterRoutes sets up all routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Document routes
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /view/{id}", h.ViewDocument)

	// Control routes
	mux.HandleFunc("POST /api/v1/reload", h.ReloadDocument)
	mux.HandleFunc("DELETE /api/v1/cache", h.ClearCache)
	mux.HandleFunc("GET /api/v1/status", h.Status)

	// Everything else is either intercepted content or nothing
	mux.HandleFunc("/", h.ServeContent)
}

// DocumentURL returns the path a document is served under.
func DocumentURL(docID string) string {
	return "/view/" + docID
}

// Reload loads the entry document and publishes it, releasing the previous one.
func (h *Handler) Reload(ctx context.Context) (*render.Document, error) {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()
	return h.load(ctx)
}

// current returns the live document, loading one if there is none.
func (h *Handler) current(ctx context.Context) (*render.Document, error) {
	if doc := h.site.Host.Current(); doc != nil {
		return doc, nil
	}

	h.loadMu.Lock()
	defer h.loadMu.Unlock()
	if doc := h.site.Host.Current(); doc != nil {
		return doc, nil
	}
	return h.load(ctx)
}

func (h *Handler) load(ctx context.Context) (*render.Document, error) {
	start := time.Now()
	html, err := h.site.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := h.site.Host.Publish(html)
	if err != nil {
		return nil, err
	}
	log.Printf("Published document %s (%d bytes) in %v", doc.ID, len(html), time.Since(start))

	if h.onReload != nil {
		h.onReload(doc)
	}
	return doc, nil
}

// --- Document Handlers ---

// Index redirects to the current document.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	doc, err := h.current(r.Context())
	if err != nil {
		log.Printf("Load failed: %v", err)
		ErrorPage(w, err)
		return
	}
	http.Redirect(w, r, DocumentURL(doc.ID), http.StatusFound)
}

// ViewDocument serves a published document.
func (h *Handler) ViewDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.site.Host.Get(r.PathValue("id"))
	if err != nil {
		Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.HTML))
}

// --- Control Handlers ---

// DocumentResponse is the JSON response for a published document.
type DocumentResponse struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	CreatedAtMillis int64  `json:"created_at_millis"`
}

func toDocumentResponse(doc *render.Document) DocumentResponse {
	return DocumentResponse{
		ID:              doc.ID,
		URL:             DocumentURL(doc.ID),
		CreatedAtMillis: doc.CreatedAt.UnixMilli(),
	}
}

// ReloadDocument re-renders the site.
func (h *Handler) ReloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Reload(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, toDocumentResponse(doc))
}

// ClearCache drops the content store's revalidation cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	resetter, ok := h.site.Store.(content.Resetter)
	if ok {
		resetter.Reset()
	}
	JSON(w, http.StatusOK, map[string]bool{"cleared": ok})
}

// StatusResponse is the JSON response for the render host status.
type StatusResponse struct {
	Source   string            `json:"source"`
	Current  *DocumentResponse `json:"current,omitempty"`
	Cached   int               `json:"cached"`
	Prefixes []string          `json:"prefixes"`
}

// Status reports the current document and cache state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Source:   h.site.Source,
		Cached:   h.site.cacheSize(),
		Prefixes: h.site.Rules.Prefixes(),
	}
	if doc := h.site.Host.Current(); doc != nil {
		d := toDocumentResponse(doc)
		resp.Current = &d
	}
	JSON(w, http.StatusOK, resp)
}

// --- Content Handlers ---

// ServeContent serves intercepted paths from the content store. It covers
// requests the runtime shim forwards and ones it never sees, such as image
// elements.
func (h *Handler) ServeContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	path, ok := h.site.Rules.Match(r.URL.Path)
	if !ok {
		NotFound(w, "path", r.URL.Path)
		return
	}

	body, err := h.site.Store.FetchBytes(r.Context(), path)
	if err != nil {
		Error(w, err)
		return
	}
	if !h.site.Rules.IsImage(path) {
		body = []byte(content.DecodeText(body))
	}

	w.Header().Set("Content-Type", h.site.Rules.ContentType(path))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(body)
	}
}
