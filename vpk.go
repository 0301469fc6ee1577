// Package vpk reads Valve VPK archives: a _dir.vpk directory blob describing
// a virtual file tree, plus numbered _NNN.vpk blobs holding file data.
package vpk

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Archive is a loaded VPK. The zero value is ready to use, and is
// uninitialized until Load succeeds.
//
// Load must not be called concurrently with itself. Everything else is safe
// for concurrent use.
type Archive struct {
	lenientTreeSize  bool
	foldEmptyMarkers bool

	mu sync.RWMutex
	st *archiveState // nil until loaded
}

type archiveState struct {
	set   *ArchiveSet
	dir   *Dir
	cache *readerCache
}

// Option configures an Archive.
type Option func(*Archive)

// WithStrictTreeSize controls whether Load rejects version 1 and 2
// directories whose tree does not match the header's tree size. It defaults
// to true.
func WithStrictTreeSize(strict bool) Option {
	return func(a *Archive) {
		a.lenientTreeSize = !strict
	}
}

// WithFoldEmptyMarkers controls whether a tree path or extension of a single
// space is treated as empty, so " /readme.txt" is indexed as "readme.txt". It
// defaults to false.
func WithFoldEmptyMarkers(fold bool) Option {
	return func(a *Archive) {
		a.foldEmptyMarkers = fold
	}
}

// New creates a new Archive.
func New(opts ...Option) *Archive {
	a := new(Archive)
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Load replaces the archive's contents with the VPK made up of blobs. The
// previous contents are discarded before anything is read, and are not
// restored if Load fails.
func (a *Archive) Load(ctx context.Context, blobs ...Blob) error {
	a.mu.Lock()
	a.st = nil
	a.mu.Unlock()

	set, err := Classify(blobs)
	if err != nil {
		return err
	}
	cache := newReaderCache(set)

	c, err := cache.get(ctx, ArchiveIndexDir)
	if err != nil {
		return &Error{Kind: InternalError, Op: "load", Name: set.Dir.Name(), Err: err}
	}
	dir, err := ParseDir(c, ParseOptions{
		StrictTreeSize:   !a.lenientTreeSize,
		FoldEmptyMarkers: a.foldEmptyMarkers,
	})
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Op, e.Name = "load", set.Dir.Name()
		}
		return err
	}

	a.mu.Lock()
	a.st = &archiveState{set, dir, cache}
	a.mu.Unlock()
	return nil
}

func (a *Archive) state(op, name string) (*archiveState, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.st == nil {
		return nil, &Error{Kind: Uninitialized, Op: op, Name: name}
	}
	return a.st, nil
}

// Header returns the directory header of the loaded VPK.
func (a *Archive) Header() (Header, error) {
	st, err := a.state("header", "")
	if err != nil {
		return Header{}, err
	}
	return st.dir.Header, nil
}

// ListFiles returns the sorted normalized filenames in the loaded VPK, or nil
// if it isn't loaded.
func (a *Archive) ListFiles() []string {
	st, err := a.state("list", "")
	if err != nil {
		return nil
	}
	return st.dir.Index.Names()
}

// Entry looks up the entry for a file without reading its data.
func (a *Archive) Entry(name string) (FileEntry, error) {
	st, err := a.state("stat", name)
	if err != nil {
		return FileEntry{}, err
	}
	e, ok := st.dir.Index.Lookup(name)
	if !ok {
		return FileEntry{}, &Error{Kind: FileNotFound, Op: "stat", Name: name}
	}
	return e, nil
}

// File is the content of a file read from a VPK.
type File struct {
	Name  string // as requested
	Path  string // normalized
	Entry FileEntry
	Data  []byte
}

// Verify checks the file's data against the CRC32 in its entry.
func (f *File) Verify() error {
	if n := uint32(len(f.Data)); n != f.Entry.Length {
		return fmt.Errorf("size mismatch: expected %d, got %d", f.Entry.Length, n)
	}
	if c := crc32.ChecksumIEEE(f.Data); c != f.Entry.CRC32 {
		return fmt.Errorf("crc mismatch: expected %08X, got %08X", f.Entry.CRC32, c)
	}
	return nil
}

// GetFile reads the contents of a file. The name is normalized before lookup.
func (a *Archive) GetFile(ctx context.Context, name string) (*File, error) {
	st, err := a.state("get", name)
	if err != nil {
		return nil, err
	}
	norm := Normalize(name)
	e, ok := st.dir.Index[norm]
	if !ok {
		return nil, &Error{Kind: FileNotFound, Op: "get", Name: name}
	}

	var (
		idx  ArchiveIndex
		base int64
	)
	switch loc := e.Locate(st.dir.DataOffset).(type) {
	case Inline:
		idx, base = ArchiveIndexDir, loc.Base
	case External:
		idx, base = loc.Index, 0
	}
	if _, ok := st.set.Blob(idx); !ok {
		return nil, &Error{Kind: InvalidArchive, Op: "get", Name: name, Err: fmt.Errorf("archive %s", idx)}
	}

	c, err := st.cache.get(ctx, idx)
	if err != nil {
		return nil, &Error{Kind: InternalError, Op: "get", Name: name, Err: err}
	}
	b, err := c.Bytes(base+int64(e.Offset), int64(e.Length))
	if err != nil {
		return nil, &Error{Kind: InternalError, Op: "get", Name: name, Err: fmt.Errorf("read archive %s: %w", idx, err)}
	}
	return &File{Name: name, Path: norm, Entry: e, Data: b}, nil
}

// readerCache lazily fetches blobs and keeps a cursor for each. Concurrent
// fetches of the same blob are merged.
type readerCache struct {
	set *ArchiveSet
	mu  sync.Mutex
	c   map[ArchiveIndex]*Cursor
	g   singleflight.Group
}

func newReaderCache(set *ArchiveSet) *readerCache {
	return &readerCache{set: set, c: map[ArchiveIndex]*Cursor{}}
}

func (r *readerCache) get(ctx context.Context, idx ArchiveIndex) (*Cursor, error) {
	r.mu.Lock()
	c, ok := r.c[idx]
	r.mu.Unlock()
	if ok {
		return c, nil
	}
	v, err, _ := r.g.Do(idx.String(), func() (any, error) {
		r.mu.Lock()
		c, ok := r.c[idx]
		r.mu.Unlock()
		if ok {
			return c, nil
		}
		b, ok := r.set.Blob(idx)
		if !ok {
			return nil, fmt.Errorf("archive %s not provided", idx)
		}
		buf, err := b.Bytes(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch %q: %w", b.Name(), err)
		}
		c = NewCursor(buf)
		r.mu.Lock()
		r.c[idx] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cursor), nil
}
