// Package render holds finalized documents in memory and addresses them by
// generated IDs, the way a browser addresses a blob URL.
package render

import (
	"sync"
	"time"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/amterp/sitegate/internal/id"
)

// Document is a published, finalized document.
type Document struct {
	ID        string
	HTML      string
	CreatedAt time.Time
}

// Host owns published documents. Publishing a new document releases the one
// it supersedes, so at most one document is live at a time.
type Host struct {
	mu      sync.RWMutex
	docs    map[string]*Document
	current string
	closed  bool
	newID   func() string
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		docs:  make(map[string]*Document),
		newID: id.Generate,
	}
}

// Publish stores html under a new ID and makes it current.
func (h *Host) Publish(html string) (*Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, sgerr.InvalidField("host", "render host is closed")
	}

	doc := &Document{ID: h.newID(), HTML: html, CreatedAt: time.Now()}
	if h.current != "" {
		delete(h.docs, h.current)
	}
	h.docs[doc.ID] = doc
	h.current = doc.ID
	return doc, nil
}

// Get returns a live document.
func (h *Host) Get(docID string) (*Document, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	doc, ok := h.docs[docID]
	if !ok {
		return nil, sgerr.DocumentNotFound(docID)
	}
	return doc, nil
}

// Current returns the current document, or nil when none is live.
func (h *Host) Current() *Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.docs[h.current]
}

// Release drops a document. Releasing an unknown ID is a no-op.
func (h *Host) Release(docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.docs, docID)
	if h.current == docID {
		h.current = ""
	}
}

// Close releases every document; later publishes fail.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.docs = make(map[string]*Document)
	h.current = ""
	h.closed = true
}

// Len returns the number of live documents.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}
