package vpk

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"
)

type treeExt struct {
	ext  string
	dirs []treeDir
}

type treeDir struct {
	dir   string
	files []treeFile
}

type treeFile struct {
	name    string
	entry   FileEntry
	preload []byte
}

// buildTree encodes a directory tree. Entry preload sizes are taken from the
// preload data.
func buildTree(tree []treeExt) []byte {
	var b bytes.Buffer
	str := func(s string) {
		b.WriteString(s)
		b.WriteByte(0)
	}
	for _, x := range tree {
		str(x.ext)
		for _, d := range x.dirs {
			str(d.dir)
			for _, f := range d.files {
				str(f.name)
				e := f.entry
				binary.Write(&b, binary.LittleEndian, e.CRC32)
				binary.Write(&b, binary.LittleEndian, uint16(len(f.preload)))
				binary.Write(&b, binary.LittleEndian, uint16(e.Archive))
				binary.Write(&b, binary.LittleEndian, e.Offset)
				binary.Write(&b, binary.LittleEndian, e.Length)
				b.Write(f.preload)
				binary.Write(&b, binary.LittleEndian, uint16(0xFFFF))
			}
			str("")
		}
		str("")
	}
	str("")
	return b.Bytes()
}

// buildDir encodes a directory blob with the inline data appended after the
// tree. For version 2, the four extra header fields are 1, 2, 3 and 4.
func buildDir(version uint32, tree []treeExt, inline []byte) []byte {
	t := buildTree(tree)
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, Magic)
	binary.Write(&b, binary.LittleEndian, version)
	binary.Write(&b, binary.LittleEndian, uint32(len(t)))
	if version == 2 {
		binary.Write(&b, binary.LittleEndian, [4]uint32{1, 2, 3, 4})
	}
	b.Write(t)
	b.Write(inline)
	return b.Bytes()
}

// headerSize returns the size of the header for version.
func headerSize(version uint32) int {
	if version == 2 {
		return 28
	}
	return 12
}

// pattern returns n bytes where each byte depends on its position and seed.
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) ^ seed
	}
	return b
}

// countingBlob counts fetches of the wrapped blob, optionally blocking each
// fetch until gate is closed.
type countingBlob struct {
	Blob
	n    atomic.Int64
	gate chan struct{}
}

func (b *countingBlob) Bytes(ctx context.Context) ([]byte, error) {
	b.n.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	return b.Blob.Bytes(ctx)
}

type errorBlob struct {
	name string
	err  error
}

func (b errorBlob) Name() string { return b.name }

func (b errorBlob) Bytes(ctx context.Context) ([]byte, error) { return nil, b.err }

var errFetch = errors.New("fetch failed")

func mustLoad(t *testing.T, blobs ...Blob) *Archive {
	t.Helper()
	a := New()
	if err := a.Load(context.Background(), blobs...); err != nil {
		t.Fatalf("load: %v", err)
	}
	return a
}
