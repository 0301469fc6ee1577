package vpk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Ext is the file extension of a VPK.
const Ext = ".vpk"

// ErrArchiveIndexRange is returned (wrapped) by SplitName for a well-formed
// _NNN.vpk name whose index cannot be stored in an entry (above 0xFFFF) or
// collides with ArchiveIndexDir. Classify ignores such blobs.
var ErrArchiveIndexRange = errors.New("vpk index out of range")

// SplitName splits a blob name into the VPK name and its index. Names ending
// with _dir.vpk have index ArchiveIndexDir, and names ending with _NNN.vpk
// have index NNN (decimal, any width).
func SplitName(fn string) (name string, idx ArchiveIndex, err error) {
	var ok bool

	// ensure it's a vpk
	if fn, ok = strings.CutSuffix(fn, Ext); !ok {
		return "", 0, fmt.Errorf("split %q: does not have extension %s", fn, Ext)
	}

	// find the suffix and parse it
	i := strings.LastIndex(fn, "_")
	if i == -1 || i == len(fn)-1 {
		return "", 0, fmt.Errorf("split %q: vpk does not have an index suffix", fn)
	}
	if s := fn[i+1:]; s == ArchiveIndexDir.String() {
		idx = ArchiveIndexDir
	} else if strings.Trim(s, "0123456789") != "" {
		return "", 0, fmt.Errorf("split %q: vpk index suffix %q is not a number", fn, s)
	} else if n, err := strconv.ParseUint(s, 10, 16); err != nil || ArchiveIndex(n) == ArchiveIndexDir {
		return "", 0, fmt.Errorf("split %q: suffix %q: %w", fn, s, ErrArchiveIndexRange)
	} else {
		idx = ArchiveIndex(n)
	}
	return fn[:i], idx, nil
}

// JoinName is the inverse of SplitName.
func JoinName(name string, idx ArchiveIndex) string {
	return name + "_" + idx.String() + Ext
}

// ArchiveSet is a classified set of blobs making up a VPK.
type ArchiveSet struct {
	Dir      Blob                  // nil if not provided
	Archives map[ArchiveIndex]Blob // sparse
}

// Classify sorts blobs into the directory and numbered archives. A single
// blob is always the directory, regardless of its name. Archives with the
// same index replace earlier ones, and archives whose index no entry can
// reference are skipped.
func Classify(blobs []Blob) (*ArchiveSet, error) {
	s := &ArchiveSet{Archives: map[ArchiveIndex]Blob{}}
	switch len(blobs) {
	case 0:
		return nil, &Error{Kind: NoFileProvided, Op: "classify"}
	case 1:
		s.Dir = blobs[0]
		return s, nil
	}
	for _, b := range blobs {
		_, idx, err := SplitName(b.Name())
		if errors.Is(err, ErrArchiveIndexRange) {
			continue
		}
		if err != nil {
			return nil, &Error{Kind: UnknownFilename, Op: "classify", Name: b.Name(), Err: err}
		}
		if idx == ArchiveIndexDir {
			if s.Dir != nil {
				return nil, &Error{Kind: DuplicateDirectory, Op: "classify", Name: b.Name()}
			}
			s.Dir = b
			continue
		}
		s.Archives[idx] = b
	}
	if s.Dir == nil {
		return nil, &Error{Kind: NoDirectory, Op: "classify"}
	}
	return s, nil
}

// Blob returns the blob for idx, which may be ArchiveIndexDir.
func (s *ArchiveSet) Blob(idx ArchiveIndex) (Blob, bool) {
	if idx == ArchiveIndexDir {
		return s.Dir, s.Dir != nil
	}
	b, ok := s.Archives[idx]
	return b, ok && b != nil
}
