package vpk

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize converts a virtual filename into the form used as an index key:
// lower-case, forward slashes only, with empty path components removed. It is
// idempotent. Bytes which aren't valid UTF-8 are kept as-is.
func Normalize(name string) string {
	name = strings.ReplaceAll(lower(name), "\\", "/")
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '/' }), "/")
}

// lower is strings.ToLower without replacing invalid bytes with U+FFFD, so
// distinct raw names stay distinct.
func lower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && n == 1 {
			b.WriteByte(s[i])
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		i += n
	}
	return b.String()
}

// ArchiveIndex is the number of the archive blob holding a file's data.
type ArchiveIndex uint16

// ArchiveIndexDir refers to data stored after the tree in the _dir.vpk.
const ArchiveIndexDir ArchiveIndex = 0x7FFF

func (i ArchiveIndex) String() string {
	if i == ArchiveIndexDir {
		return "dir"
	}
	return fmt.Sprintf("%03d", uint16(i))
}

func (i ArchiveIndex) GoString() string {
	if i == ArchiveIndexDir {
		return "ArchiveIndexDir"
	}
	return "ArchiveIndex(" + strconv.FormatUint(uint64(i), 10) + ")"
}

// FileEntry describes where a file's data is stored. The checksum is not
// verified when reading.
type FileEntry struct {
	CRC32        uint32
	PreloadBytes uint16
	Archive      ArchiveIndex
	Offset       uint32
	Length       uint32
}

// Location is where a file's data lives, either Inline or External.
type Location interface {
	location()
}

// Inline data is stored in the directory blob, at Base plus the entry offset.
type Inline struct {
	Base int64
}

// External data is stored in the numbered archive blob Index, at the entry
// offset.
type External struct {
	Index ArchiveIndex
}

func (Inline) location()   {}
func (External) location() {}

// Locate resolves the entry's archive index, using base as the start of the
// inline data region.
func (e FileEntry) Locate(base int64) Location {
	if e.Archive == ArchiveIndexDir {
		return Inline{Base: base}
	}
	return External{Index: e.Archive}
}

// FileIndex maps normalized filenames to entries.
type FileIndex map[string]FileEntry

// Lookup normalizes name and looks it up.
func (x FileIndex) Lookup(name string) (FileEntry, bool) {
	e, ok := x[Normalize(name)]
	return e, ok
}

// Names returns the sorted filenames in the index.
func (x FileIndex) Names() []string {
	ns := make([]string, 0, len(x))
	for n := range x {
		ns = append(ns, n)
	}
	slices.Sort(ns)
	return ns
}
