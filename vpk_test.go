package vpk

import (
	"context"
	"errors"
	"hash/crc32"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveInline(t *testing.T) {
	inline := pattern(256, 0x5A)
	dir := buildDir(1, []treeExt{
		{"mdl", []treeDir{
			{"models/player", []treeFile{
				{"pyro", FileEntry{CRC32: crc32.ChecksumIEEE(inline[:128]), Archive: ArchiveIndexDir, Offset: 0, Length: 128}, nil},
				{"scout", FileEntry{Archive: ArchiveIndexDir, Offset: 100, Length: 156}, []byte{9, 9}},
			}},
		}},
	}, inline)
	a := mustLoad(t, NewBlob("anything", dir))

	assert.Equal(t, []string{"models/player/pyro.mdl", "models/player/scout.mdl"}, a.ListFiles())

	h, err := a.Header()
	require.NoError(t, err)
	assert.Equal(t, int64(len(dir)-len(inline)), h.DataOffset)

	f, err := a.GetFile(context.Background(), "Models/Player/pyro.MDL")
	require.NoError(t, err)
	assert.Equal(t, "Models/Player/pyro.MDL", f.Name)
	assert.Equal(t, "models/player/pyro.mdl", f.Path)
	assert.Equal(t, inline[:128], f.Data)
	assert.Equal(t, dir[h.DataOffset:h.DataOffset+128], f.Data)
	assert.NoError(t, f.Verify())

	f, err = a.GetFile(context.Background(), "\\models\\player\\scout.mdl")
	require.NoError(t, err)
	assert.Equal(t, inline[100:], f.Data)
	assert.Error(t, f.Verify(), "crc is zero")
}

func TestArchiveExternal(t *testing.T) {
	archive := pattern(1024, 3)
	dir := buildDir(2, []treeExt{
		{"wav", []treeDir{
			{"sound", []treeFile{
				{"a", FileEntry{Archive: 3, Offset: 512, Length: 64}, nil},
				{"b", FileEntry{Archive: ArchiveIndexDir, Offset: 4, Length: 4}, nil},
				{"c", FileEntry{Archive: 5, Offset: 0, Length: 1}, nil},
				{"d", FileEntry{Archive: 3, Offset: 1000, Length: 25}, nil},
				{"e", FileEntry{Archive: 3, Offset: 1024, Length: 0}, nil},
			}},
		}},
	}, pattern(8, 1))
	a := mustLoad(t, NewBlob("pak01_dir.vpk", dir), NewBlob("pak01_003.vpk", archive))
	ctx := context.Background()

	f, err := a.GetFile(ctx, "sound/a.wav")
	require.NoError(t, err)
	assert.Equal(t, archive[512:576], f.Data, "no inline offset for archived files")

	f, err = a.GetFile(ctx, "sound/b.wav")
	require.NoError(t, err)
	assert.Equal(t, pattern(8, 1)[4:], f.Data)

	f, err = a.GetFile(ctx, "sound/e.wav")
	require.NoError(t, err)
	assert.Empty(t, f.Data)

	_, err = a.GetFile(ctx, "sound/c.wav")
	assert.ErrorIs(t, err, InvalidArchive)

	_, err = a.GetFile(ctx, "sound/d.wav")
	assert.ErrorIs(t, err, InternalError)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = a.GetFile(ctx, "sound/z.wav")
	assert.ErrorIs(t, err, FileNotFound)
}

func TestArchiveHighIndex(t *testing.T) {
	archive := pattern(64, 7)
	dir := buildDir(1, []treeExt{
		{"bin", []treeDir{
			{"high", []treeFile{
				{"a", FileEntry{Archive: 0x8000, Offset: 8, Length: 16}, nil},
				{"b", FileEntry{Archive: 0xFFFF, Offset: 0, Length: 4}, nil},
			}},
		}},
	}, nil)
	a := mustLoad(t,
		NewBlob("pak01_dir.vpk", dir),
		NewBlob("pak01_32768.vpk", archive),
		NewBlob("pak01_32767.vpk", pattern(4, 1)),
		NewBlob("pak01_65535.vpk", pattern(4, 2)),
		NewBlob("pak01_70000.vpk", pattern(4, 3)),
	)

	f, err := a.GetFile(context.Background(), "high/a.bin")
	require.NoError(t, err)
	assert.Equal(t, archive[8:24], f.Data)

	f, err = a.GetFile(context.Background(), "high/b.bin")
	require.NoError(t, err)
	assert.Equal(t, pattern(4, 2), f.Data)
}

func TestArchiveInlineOutOfRange(t *testing.T) {
	dir := buildDir(1, []treeExt{
		{"txt", []treeDir{{"a", []treeFile{{"b", FileEntry{Archive: ArchiveIndexDir, Offset: 2, Length: 3}, nil}}}}},
	}, []byte{1, 2, 3, 4})
	a := mustLoad(t, NewBlob("x", dir))
	_, err := a.GetFile(context.Background(), "a/b.txt")
	assert.ErrorIs(t, err, InternalError)
}

func TestArchiveUninitialized(t *testing.T) {
	var a Archive
	_, err := a.GetFile(context.Background(), "a/b.txt")
	assert.ErrorIs(t, err, Uninitialized)
	_, err = a.Header()
	assert.ErrorIs(t, err, Uninitialized)
	_, err = a.Entry("a/b.txt")
	assert.ErrorIs(t, err, Uninitialized)
	assert.Nil(t, a.ListFiles())
}

func TestArchiveLoadErrors(t *testing.T) {
	good := buildDir(1, testTree, nil)
	bad := append([]byte(nil), good...)
	bad[0] ^= 0xFF

	for _, x := range []struct {
		Name  string
		Blobs []Blob
		Kind  ErrorKind
	}{
		{"None", nil, NoFileProvided},
		{"Magic", []Blob{NewBlob("pak01_dir.vpk", bad)}, FormatError},
		{"Truncated", []Blob{NewBlob("pak01_dir.vpk", good[:len(good)-1])}, FormatError},
		{"NoDirectory", []Blob{NewBlob("pak01_000.vpk", good), NewBlob("pak01_001.vpk", good)}, NoDirectory},
		{"DuplicateDirectory", []Blob{NewBlob("a_dir.vpk", good), NewBlob("b_dir.vpk", good)}, DuplicateDirectory},
		{"UnknownFilename", []Blob{NewBlob("a_dir.vpk", good), NewBlob("a.zip", good)}, UnknownFilename},
		{"Fetch", []Blob{errorBlob{"a_dir.vpk", errFetch}}, InternalError},
	} {
		t.Run(x.Name, func(t *testing.T) {
			a := mustLoad(t, NewBlob("pak01_dir.vpk", good))
			require.NotEmpty(t, a.ListFiles())

			err := a.Load(context.Background(), x.Blobs...)
			require.Error(t, err)
			assert.ErrorIs(t, err, x.Kind)
			assert.Equal(t, x.Kind, KindOf(err))

			// nothing from either load remains
			assert.Nil(t, a.ListFiles())
			_, err = a.GetFile(context.Background(), "readme.txt")
			assert.ErrorIs(t, err, Uninitialized)
		})
	}
}

func TestArchiveFetchError(t *testing.T) {
	dir := buildDir(1, []treeExt{
		{"txt", []treeDir{{"a", []treeFile{{"b", FileEntry{Archive: 1, Length: 1}, nil}}}}},
	}, nil)
	a := mustLoad(t, NewBlob("x_dir.vpk", dir), errorBlob{"x_001.vpk", errFetch})

	_, err := a.GetFile(context.Background(), "a/b.txt")
	assert.ErrorIs(t, err, InternalError)
	assert.ErrorIs(t, err, errFetch)
}

func TestArchiveReload(t *testing.T) {
	a := New()
	ctx := context.Background()

	one := buildDir(1, []treeExt{
		{"txt", []treeDir{{"one", []treeFile{{"f", FileEntry{Archive: ArchiveIndexDir, Length: 3}, nil}}}}},
	}, []byte("one"))
	two := buildDir(1, []treeExt{
		{"txt", []treeDir{{"two", []treeFile{{"f", FileEntry{Archive: ArchiveIndexDir, Length: 3}, nil}}}}},
	}, []byte("two"))

	require.NoError(t, a.Load(ctx, NewBlob("one", one)))
	f, err := a.GetFile(ctx, "one/f.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), f.Data)

	require.NoError(t, a.Load(ctx, NewBlob("two", two)))
	assert.Equal(t, []string{"two/f.txt"}, a.ListFiles(), "indexes are replaced, not merged")
	_, err = a.GetFile(ctx, "one/f.txt")
	assert.ErrorIs(t, err, FileNotFound)
	f, err = a.GetFile(ctx, "two/f.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), f.Data, "cached readers are discarded")
}

func TestArchiveStrictTreeSize(t *testing.T) {
	b := buildDir(1, testTree, nil)
	b[8]++

	err := New().Load(context.Background(), NewBlob("x", b))
	assert.ErrorIs(t, err, FormatError)

	a := New(WithStrictTreeSize(false))
	require.NoError(t, a.Load(context.Background(), NewBlob("x", b)))
	assert.Len(t, a.ListFiles(), 4)
}

func TestArchiveFoldEmptyMarkers(t *testing.T) {
	dir := buildDir(1, []treeExt{
		{"txt", []treeDir{{" ", []treeFile{{"readme", FileEntry{Archive: ArchiveIndexDir, Length: 2}, nil}}}}},
		{" ", []treeDir{{"bin", []treeFile{{"makefile", FileEntry{Archive: ArchiveIndexDir, Offset: 2, Length: 3}, nil}}}}},
	}, []byte("hiall"))
	ctx := context.Background()

	a := mustLoad(t, NewBlob("x", dir))
	assert.Equal(t, []string{" /readme.txt", "bin/makefile. "}, a.ListFiles())
	f, err := a.GetFile(ctx, " /readme.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), f.Data)
	f, err = a.GetFile(ctx, "bin/makefile. ")
	require.NoError(t, err)
	assert.Equal(t, []byte("all"), f.Data)
	_, err = a.GetFile(ctx, "readme.txt")
	assert.ErrorIs(t, err, FileNotFound)

	a = New(WithFoldEmptyMarkers(true))
	require.NoError(t, a.Load(ctx, NewBlob("x", dir)))
	assert.Equal(t, []string{"bin/makefile", "readme.txt"}, a.ListFiles())
	f, err = a.GetFile(ctx, "README.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), f.Data)
}

func TestArchiveEntry(t *testing.T) {
	a := mustLoad(t, NewBlob("x", buildDir(1, testTree, nil)))

	e, err := a.Entry("MODELS/player/scout.mdl")
	require.NoError(t, err)
	assert.Equal(t, ArchiveIndex(3), e.Archive)
	assert.Equal(t, uint32(512), e.Offset)

	_, err = a.Entry("nope")
	assert.ErrorIs(t, err, FileNotFound)
}

func TestArchiveConcurrentFetch(t *testing.T) {
	archive := pattern(4096, 9)
	var tree []treeFile
	for i := 0; i < 16; i++ {
		tree = append(tree, treeFile{string(rune('a' + i)), FileEntry{Archive: 0, Offset: uint32(i * 256), Length: 256}, nil})
	}
	dirBlob := &countingBlob{Blob: NewBlob("x_dir.vpk", buildDir(1, []treeExt{{"bin", []treeDir{{"data", tree}}}}, []byte("inline")))}
	archiveBlob := &countingBlob{Blob: NewBlob("x_000.vpk", archive), gate: make(chan struct{})}

	a := mustLoad(t, dirBlob, archiveBlob)

	var wg sync.WaitGroup
	errs := make(chan error, len(tree))
	for i, f := range tree {
		i, f := i, f // per-iteration copy (go1.22 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.GetFile(context.Background(), "data/"+f.name+".bin")
			if err != nil {
				errs <- err
				return
			}
			if string(got.Data) != string(archive[i*256:(i+1)*256]) {
				errs <- errors.New("wrong data for " + f.name)
			}
		}()
	}
	close(archiveBlob.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, int64(1), dirBlob.n.Load(), "directory fetched once")
	assert.Equal(t, int64(1), archiveBlob.n.Load(), "archive fetched once")
}

func TestArchiveDirFetchedOnce(t *testing.T) {
	dirBlob := &countingBlob{Blob: NewBlob("x", buildDir(1, []treeExt{
		{"txt", []treeDir{{"a", []treeFile{{"b", FileEntry{Archive: ArchiveIndexDir, Length: 2}, nil}}}}},
	}, []byte("hi")))}
	a := mustLoad(t, dirBlob)
	for i := 0; i < 3; i++ {
		f, err := a.GetFile(context.Background(), "a/b.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), f.Data)
	}
	assert.Equal(t, int64(1), dirBlob.n.Load())
}

func TestFileVerify(t *testing.T) {
	data := []byte("hello world")
	f := &File{Entry: FileEntry{CRC32: crc32.ChecksumIEEE(data), Length: uint32(len(data))}, Data: data}
	assert.NoError(t, f.Verify())

	f.Entry.CRC32++
	assert.ErrorContains(t, f.Verify(), "crc mismatch")

	f.Entry.Length++
	assert.ErrorContains(t, f.Verify(), "size mismatch")
}
