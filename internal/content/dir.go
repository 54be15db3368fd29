package content

import (
	"context"
	"errors"
	"io/fs"
	"os"

	sgerr "github.com/amterp/sitegate/internal/errors"
)

// Dir serves site files from a local build directory, e.g. for previewing a
// build before it is pushed.
type Dir struct {
	root string
	fsys fs.FS
}

// NewDir creates a store rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{root: dir, fsys: os.DirFS(dir)}
}

// Root returns the directory being served.
func (d *Dir) Root() string {
	return d.root
}

// Fetch returns the file at path decoded as text.
func (d *Dir) Fetch(ctx context.Context, path string) (string, error) {
	data, err := d.FetchBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return DecodeText(data), nil
}

// FetchBytes returns the raw file at path. Paths escaping the root are
// reported as not found.
func (d *Dir) FetchBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(path) {
		return nil, sgerr.FileNotFound(path)
	}

	data, err := fs.ReadFile(d.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sgerr.FileNotFound(path)
		}
		return nil, err
	}
	return data, nil
}
