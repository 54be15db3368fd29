// Package content retrieves site files from the authenticated content store.
package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"unicode"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Fetcher resolves a root-relative path to text content.
// This is the only contract the document rewriter depends on.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// Store is a Fetcher that can also return raw bytes, e.g. for images.
type Store interface {
	Fetcher
	FetchBytes(ctx context.Context, path string) ([]byte, error)
}

// Resetter is implemented by stores that keep a revalidation cache.
type Resetter interface {
	Reset()
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// DecodeBase64 decodes a transport payload, ignoring embedded whitespace.
func DecodeBase64(payload string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, payload)
	return base64.StdEncoding.DecodeString(clean)
}

// DecodeText converts stored bytes to text. A byte-order mark selects the
// encoding and is dropped; otherwise UTF-8 is assumed and invalid sequences
// become U+FFFD.
func DecodeText(b []byte) string {
	decoder := textunicode.BOMOverride(textunicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// ValidText reports whether DecodeText can convert b without substituting
// replacement characters for malformed UTF-8. UTF-16 input is recognized by
// its byte-order mark.
func ValidText(b []byte) bool {
	if bytes.HasPrefix(b, []byte{0xFE, 0xFF}) || bytes.HasPrefix(b, []byte{0xFF, 0xFE}) {
		return true
	}
	return utf8.Valid(b)
}
