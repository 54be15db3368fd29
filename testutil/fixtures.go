package testutil

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// Store coordinates served by ContentAPI.
const (
	Owner  = "acme"
	Repo   = "site"
	Branch = "gh-pages"
	Token  = "test-token"
)

// ContentAPI is a fake of the repository contents API: inline base64 content
// with strong ETags, git blobs for large objects, and bearer-token checks.
type ContentAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	files     map[string][]byte
	large     map[string]bool
	noSHA     map[string]bool
	hits      map[string]int
	blobHits  int
	requests  int
	token     string
	etagsSeen []string
}

// NewContentAPI starts a fake contents API accepting Token.
// The server is closed when the test finishes.
func NewContentAPI(t *testing.T) *ContentAPI {
	t.Helper()

	api := &ContentAPI{
		files: make(map[string][]byte),
		large: make(map[string]bool),
		noSHA: make(map[string]bool),
		hits:  make(map[string]int),
		token: Token,
	}

	mux := http.NewServeMux()
	contentsPrefix := fmt.Sprintf("/repos/%s/%s/contents/", Owner, Repo)
	blobsPrefix := fmt.Sprintf("/repos/%s/%s/git/blobs/", Owner, Repo)
	repoPath := fmt.Sprintf("/repos/%s/%s", Owner, Repo)

	mux.HandleFunc(contentsPrefix, func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		path := strings.TrimPrefix(r.URL.Path, contentsPrefix)
		api.serveContents(w, r, path)
	})
	mux.HandleFunc(blobsPrefix, func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		api.serveBlob(w, strings.TrimPrefix(r.URL.Path, blobsPrefix))
	})
	mux.HandleFunc(repoPath, func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"full_name": Owner + "/" + Repo, "private": true})
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the API base URL.
func (a *ContentAPI) URL() string {
	return a.Server.URL
}

// Put stores a file served inline.
func (a *ContentAPI) Put(path, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = []byte(content)
	delete(a.large, path)
}

// PutBytes stores a binary file served inline.
func (a *ContentAPI) PutBytes(path string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = content
	delete(a.large, path)
}

// PutLarge stores a file whose contents descriptor has no inline content,
// forcing the blob fallback.
func (a *ContentAPI) PutLarge(path, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = []byte(content)
	a.large[path] = true
}

// PutLargeWithoutSHA stores a large file whose descriptor lacks an object identifier.
func (a *ContentAPI) PutLargeWithoutSHA(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = []byte("unreachable")
	a.large[path] = true
	a.noSHA[path] = true
}

// SetToken changes the accepted token, invalidating the old one.
func (a *ContentAPI) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Hits returns how many contents requests were made for path.
func (a *ContentAPI) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

// BlobHits returns how many blob requests were made.
func (a *ContentAPI) BlobHits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blobHits
}

// Requests returns the total number of requests received, rejected ones included.
func (a *ContentAPI) Requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests
}

// ETagsSeen returns the If-None-Match values received, in order.
func (a *ContentAPI) ETagsSeen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.etagsSeen...)
}

// SHA returns the object identifier for content.
func SHA(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

func (a *ContentAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	a.mu.Lock()
	a.requests++
	token := a.token
	a.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return false
	}
	return true
}

func (a *ContentAPI) serveContents(w http.ResponseWriter, r *http.Request, path string) {
	a.mu.Lock()
	a.hits[path]++
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		a.etagsSeen = append(a.etagsSeen, inm)
	}
	content, ok := a.files[path]
	large := a.large[path]
	noSHA := a.noSHA[path]
	a.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	sha := SHA(content)
	etag := `"` + sha + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	desc := map[string]any{
		"name": filepath.Base(path),
		"path": path,
		"sha":  sha,
		"size": len(content),
		"type": "file",
	}
	if large {
		desc["encoding"] = "none"
		desc["content"] = ""
		if noSHA {
			delete(desc, "sha")
		}
	} else {
		desc["encoding"] = "base64"
		desc["content"] = wrapBase64(content)
	}

	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, desc)
}

func (a *ContentAPI) serveBlob(w http.ResponseWriter, sha string) {
	a.mu.Lock()
	a.blobHits++
	var found []byte
	for _, content := range a.files {
		if SHA(content) == sha {
			found = content
			break
		}
	}
	a.mu.Unlock()

	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sha":      sha,
		"size":     len(found),
		"encoding": "base64",
		"content":  wrapBase64(found),
	})
}

// wrapBase64 encodes like the real API: base64 with a newline every 60 chars.
func wrapBase64(content []byte) string {
	enc := base64.StdEncoding.EncodeToString(content)
	var b strings.Builder
	for len(enc) > 60 {
		b.WriteString(enc[:60])
		b.WriteByte('\n')
		enc = enc[60:]
	}
	b.WriteString(enc)
	b.WriteByte('\n')
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteSite writes files under dir, creating parent directories.
func WriteSite(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}
