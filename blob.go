package vpk

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Blob is a named source of bytes, such as one file of a VPK. Bytes is called
// at most once per load for a given blob, and may block.
type Blob interface {
	Name() string
	Bytes(ctx context.Context) ([]byte, error)
}

type memBlob struct {
	name string
	data []byte
}

// NewBlob returns a Blob serving data.
func NewBlob(name string, data []byte) Blob {
	return &memBlob{name, data}
}

func (b *memBlob) Name() string { return b.name }

func (b *memBlob) Bytes(ctx context.Context) ([]byte, error) {
	return b.data, nil
}

type fileBlob struct {
	path string
}

// OpenBlob returns a Blob reading the file at path when its bytes are first
// needed.
func OpenBlob(path string) Blob {
	return &fileBlob{path}
}

func (b *fileBlob) Name() string { return filepath.Base(b.path) }

func (b *fileBlob) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(b.path)
}

type fsBlob struct {
	fsys fs.FS
	name string
}

// FSBlob returns a Blob reading name from fsys.
func FSBlob(fsys fs.FS, name string) Blob {
	return &fsBlob{fsys, name}
}

func (b *fsBlob) Name() string { return path.Base(b.name) }

func (b *fsBlob) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(b.fsys, b.name)
}
