package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const acceptHeader = "application/vnd.github.v3+json"

// Coordinates identify a branch of a repository in the content store.
type Coordinates struct {
	Owner  string
	Repo   string
	Branch string
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%s/%s@%s", c.Owner, c.Repo, c.Branch)
}

// CacheEntry is the last content seen for a path and its validator (ETag).
type CacheEntry struct {
	Content   []byte
	Validator string
}

// Client fetches files through the repository contents API.
//
// Each client owns its revalidation cache. Entries are added on the first
// successful fetch that carries a validator and removed only by Reset.
// Safe for concurrent use.
type Client struct {
	apiBase    string
	coords     Coordinates
	token      string
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]CacheEntry
	group singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given API base URL, coordinates and token.
func NewClient(apiBase string, coords Coordinates, token string, opts ...ClientOption) *Client {
	c := &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		coords:     coords,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      make(map[string]CacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coordinates returns the store coordinates this client reads from.
func (c *Client) Coordinates() Coordinates {
	return c.coords
}

// Fetch returns the file at path decoded as text.
func (c *Client) Fetch(ctx context.Context, path string) (string, error) {
	data, err := c.FetchBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return DecodeText(data), nil
}

// FetchBytes returns the raw bytes of the file at path, revalidating against
// the cached validator when one is known. Concurrent calls for the same path
// share a single request; a caller whose ctx ends stops waiting without
// failing the others.
func (c *Client) FetchBytes(ctx context.Context, path string) ([]byte, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(path, func() (any, error) {
		return c.fetch(shared, path)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Reset drops every cached entry.
func (c *Client) Reset() {
	c.mu.Lock()
	c.cache = make(map[string]CacheEntry)
	c.mu.Unlock()
}

// CacheLen returns the number of cached entries.
func (c *Client) CacheLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// CheckAccess verifies the token can read the repository.
func (c *Client) CheckAccess(ctx context.Context) error {
	u := fmt.Sprintf("%s/repos/%s/%s", c.apiBase, url.PathEscape(c.coords.Owner), url.PathEscape(c.coords.Repo))
	resp, err := c.get(ctx, u, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &sgerr.AuthError{Status: resp.StatusCode, URL: u}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("access denied to %s/%s: %w", c.coords.Owner, c.coords.Repo,
			&sgerr.StatusError{Status: resp.StatusCode, URL: u})
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	cached, hasCached := c.lookup(path)

	u := c.contentsURL(path)
	validator := ""
	if hasCached {
		validator = cached.Validator
	}

	resp, err := c.get(ctx, u, validator)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && hasCached {
		return cached.Content, nil
	}
	if err := checkStatus(resp, u, path); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data, err := c.payload(ctx, path, body)
	if err != nil {
		return nil, err
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		c.store(path, data, etag)
	}
	return data, nil
}

// payload decodes a contents descriptor, following the blob endpoint when
// the object is too large to be returned inline.
func (c *Client) payload(ctx context.Context, path string, body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, &sgerr.DescriptorError{Path: path, Message: "response is not JSON"}
	}
	desc := gjson.ParseBytes(body)
	if desc.IsArray() {
		return nil, &sgerr.DescriptorError{Path: path, Message: "path is a directory"}
	}

	encoding := desc.Get("encoding").String()
	inline := desc.Get("content").String()
	if encoding != "none" && inline != "" {
		return decodePayload(path, encoding, inline)
	}

	sha := desc.Get("sha").String()
	if sha == "" {
		return nil, &sgerr.DescriptorError{Path: path, Message: "large object has no sha"}
	}
	return c.fetchBlob(ctx, path, sha)
}

func (c *Client) fetchBlob(ctx context.Context, path, sha string) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s", c.apiBase,
		url.PathEscape(c.coords.Owner), url.PathEscape(c.coords.Repo), url.PathEscape(sha))

	resp, err := c.get(ctx, u, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, u, path); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob for %s: %w", path, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, &sgerr.DescriptorError{Path: path, Message: "blob response is not JSON"}
	}

	blob := gjson.ParseBytes(body)
	return decodePayload(path, blob.Get("encoding").String(), blob.Get("content").String())
}

func decodePayload(path, encoding, payload string) ([]byte, error) {
	switch encoding {
	case "", "base64":
		data, err := DecodeBase64(payload)
		if err != nil {
			return nil, &sgerr.DescriptorError{Path: path, Message: fmt.Sprintf("bad base64 payload: %v", err)}
		}
		return data, nil
	case "utf-8", "utf8":
		return []byte(payload), nil
	default:
		return nil, &sgerr.DescriptorError{Path: path, Message: fmt.Sprintf("unsupported encoding %q", encoding)}
	}
}

func (c *Client) get(ctx context.Context, u, validator string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	if validator != "" {
		req.Header.Set("If-None-Match", validator)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, u, path string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &sgerr.AuthError{Status: resp.StatusCode, URL: u}
	case resp.StatusCode == http.StatusNotFound:
		return sgerr.FileNotFound(path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &sgerr.StatusError{Status: resp.StatusCode, URL: u}
	}
	return nil
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	q := url.Values{"ref": {c.coords.Branch}}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?%s", c.apiBase,
		url.PathEscape(c.coords.Owner), url.PathEscape(c.coords.Repo),
		strings.Join(segments, "/"), q.Encode())
}

func (c *Client) lookup(path string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[path]
	return entry, ok
}

func (c *Client) store(path string, content []byte, validator string) {
	c.mu.Lock()
	c.cache[path] = CacheEntry{Content: content, Validator: validator}
	c.mu.Unlock()
}
