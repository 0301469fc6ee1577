package vpk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

var (
	_ fs.FS          = (*Archive)(nil)
	_ fs.ReadFileFS  = (*Archive)(nil)
	_ fs.ReadDirFS   = (*Archive)(nil)
	_ fs.StatFS      = (*Archive)(nil)
	_ fs.File        = (*readerFile)(nil)
	_ fs.ReadDirFile = (*readerDir)(nil)
	_ fs.DirEntry    = (*readerInfo)(nil)
	_ fs.FileInfo    = (*readerInfo)(nil)
)

type readerFile struct {
	info readerInfo
	r    *bytes.Reader
}

func (f *readerFile) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerFile) Read(b []byte) (n int, err error) {
	return f.r.Read(b)
}

func (f *readerFile) Close() error {
	return nil
}

type readerDir struct {
	info   readerInfo
	entry  []*readerInfo
	offset int
}

func (f *readerDir) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerDir) Read(b []byte) (n int, err error) {
	return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrInvalid}
}

func (f *readerDir) Close() error {
	return nil
}

func (d *readerDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entry) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	for i := range list {
		list[i] = d.entry[d.offset+i]
	}
	d.offset += n
	return list, nil
}

type readerInfo struct {
	name  string
	entry *FileEntry // nil for directories
}

func (i *readerInfo) Info() (fs.FileInfo, error) {
	return i, nil
}

func (i *readerInfo) Type() fs.FileMode {
	return i.Mode().Type()
}

func (i *readerInfo) Name() string {
	return i.name
}

func (i *readerInfo) Size() int64 {
	if i.IsDir() {
		return 0
	}
	return int64(i.entry.Length)
}

func (i *readerInfo) Mode() fs.FileMode {
	if i.IsDir() {
		return 0555 | fs.ModeDir
	}
	return 0444
}

func (i *readerInfo) ModTime() time.Time {
	return time.Time{}
}

func (i *readerInfo) IsDir() bool {
	return i.entry == nil
}

func (i *readerInfo) Sys() any {
	if i.IsDir() {
		return nil
	}
	return *i.entry
}

// pathError converts err to an fs.PathError, keeping the *Error in the chain.
func pathError(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}

// Open implements fs.FS. Names are matched after normalization, so lookups
// are case-insensitive.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, pathError("open", name, fs.ErrInvalid)
	}
	st, err := a.state("open", name)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	var norm string
	if name != "." {
		norm = Normalize(name)
	}
	if e, ok := st.dir.Index[norm]; ok && norm != "" {
		f, err := a.GetFile(context.Background(), name)
		if err != nil {
			return nil, pathError("open", name, err)
		}
		return &readerFile{readerInfo{path.Base(name), &e}, bytes.NewReader(f.Data)}, nil
	}
	things := map[string]*FileEntry{}
	var prefix string
	if norm != "" {
		prefix = norm + "/"
	}
	for p, e := range st.dir.Index {
		e := e // per-iteration copy (go1.22 loop semantics)
		if tmp, ok := strings.CutPrefix(p, prefix); ok {
			if i := strings.Index(tmp, "/"); i < 0 {
				things[tmp] = &e
			} else {
				things[tmp[:i]] = nil
			}
		}
	}
	if len(things) == 0 && norm != "" {
		return nil, pathError("open", name, &Error{Kind: FileNotFound, Op: "open", Name: name}) // not a file, and not a prefix of any
	}
	var dirents []*readerInfo
	for thing, entry := range things {
		dirents = append(dirents, &readerInfo{thing, entry})
	}
	sort.Slice(dirents, func(i, j int) bool {
		return dirents[i].name < dirents[j].name
	})
	return &readerDir{readerInfo{path.Base(name), nil}, dirents, 0}, nil
}

// ReadFile implements fs.ReadFileFS.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, pathError("readfile", name, fs.ErrInvalid)
	}
	f, err := a.GetFile(context.Background(), name)
	if err != nil {
		return nil, pathError("readfile", name, err)
	}
	return f.Data, nil
}

// ReadDir implements fs.ReadDirFS.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	f, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	d, ok := f.(*readerDir)
	if !ok {
		return nil, pathError("readdir", name, errors.New("not a directory"))
	}
	return d.ReadDir(-1)
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, pathError("stat", name, fs.ErrInvalid)
	}
	if e, err := a.Entry(name); err == nil {
		return &readerInfo{path.Base(name), &e}, nil
	} else if KindOf(err) != FileNotFound {
		return nil, pathError("stat", name, err)
	}
	f, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	return f.Stat()
}
