package vpk

import (
	"fmt"
)

// Magic is the signature at the start of every directory blob.
const Magic uint32 = 0x55AA1234

// Header is the directory blob header.
type Header struct {
	Version  uint32
	TreeSize uint32

	// Version 2 only.
	FileDataSectionSize   uint32
	ArchiveMD5SectionSize uint32
	OtherMD5SectionSize   uint32
	SignatureSectionSize  uint32

	// DataOffset is the position right after the tree, which is where data
	// for files with ArchiveIndexDir starts.
	DataOffset int64
}

// Dir is a parsed directory blob.
type Dir struct {
	Header
	Index FileIndex
}

// ParseOptions controls ParseDir.
type ParseOptions struct {
	// StrictTreeSize fails the parse if a version 1 or 2 tree does not end
	// exactly TreeSize bytes after the header.
	StrictTreeSize bool

	// FoldEmptyMarkers treats a tree path or extension of a single space as
	// empty, the way Valve's packer writes root files and files without an
	// extension. By default, names are composed as path/name.ext verbatim.
	FoldEmptyMarkers bool
}

// ParseDir parses a directory blob from c, which must be positioned at the
// start of the blob. On failure, the returned error has kind FormatError.
func ParseDir(c *Cursor, opt ParseOptions) (*Dir, error) {
	d, err := parseDir(c, opt)
	if err != nil {
		return nil, &Error{Kind: FormatError, Op: "parse directory", Err: err}
	}
	return d, nil
}

func parseDir(c *Cursor, opt ParseOptions) (*Dir, error) {
	d := &Dir{Index: FileIndex{}}
	if magic, err := c.Uint32(); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	} else if magic != Magic {
		return nil, fmt.Errorf("read magic: expected %08X, got %08X", Magic, magic)
	}
	var err error
	if d.Version, err = c.Uint32(); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if d.TreeSize, err = c.Uint32(); err != nil {
		return nil, fmt.Errorf("read tree size: %w", err)
	}
	// other versions are read as version 1
	if d.Version == 2 {
		for _, x := range []struct {
			name string
			v    *uint32
		}{
			{"file data section size", &d.FileDataSectionSize},
			{"archive md5 section size", &d.ArchiveMD5SectionSize},
			{"other md5 section size", &d.OtherMD5SectionSize},
			{"signature section size", &d.SignatureSectionSize},
		} {
			if *x.v, err = c.Uint32(); err != nil {
				return nil, fmt.Errorf("read %s: %w", x.name, err)
			}
		}
	}
	start := c.Tell()
	if err := parseTree(c, d.Index, opt.FoldEmptyMarkers); err != nil {
		return nil, fmt.Errorf("read directory tree: %w", err)
	}
	d.DataOffset = int64(c.Tell())

	if opt.StrictTreeSize && (d.Version == 1 || d.Version == 2) {
		if n := c.Tell() - start; int64(n) != int64(d.TreeSize) {
			return nil, fmt.Errorf("read directory tree: expected tree size %d, got %d", d.TreeSize, n)
		}
	}
	return d, nil
}

func parseTree(c *Cursor, idx FileIndex, fold bool) error {
	for {
		ext, err := c.NullString()
		if err != nil {
			return fmt.Errorf("read extension: %w", err)
		}
		if ext == "" {
			return nil
		}
		for {
			dir, err := c.NullString()
			if err != nil {
				return fmt.Errorf("read path (ext %q): %w", ext, err)
			}
			if dir == "" {
				break
			}
			for {
				base, err := c.NullString()
				if err != nil {
					return fmt.Errorf("read name (%s/*.%s): %w", dir, ext, err)
				}
				if base == "" {
					break
				}
				var e FileEntry
				if err := parseEntry(c, &e); err != nil {
					return fmt.Errorf("read entry %s/%s.%s: %w", dir, base, ext, err)
				}
				idx[joinPath(dir, base, ext, fold)] = e
			}
		}
	}
}

func parseEntry(c *Cursor, e *FileEntry) error {
	var err error
	if e.CRC32, err = c.Uint32(); err != nil {
		return fmt.Errorf("read crc32: %w", err)
	}
	if e.PreloadBytes, err = c.Uint16(); err != nil {
		return fmt.Errorf("read preload size: %w", err)
	}
	var idx uint16
	if idx, err = c.Uint16(); err != nil {
		return fmt.Errorf("read archive index: %w", err)
	}
	e.Archive = ArchiveIndex(idx)
	if e.Offset, err = c.Uint32(); err != nil {
		return fmt.Errorf("read offset: %w", err)
	}
	if e.Length, err = c.Uint32(); err != nil {
		return fmt.Errorf("read length: %w", err)
	}
	if err := c.Skip(int(e.PreloadBytes)); err != nil {
		return fmt.Errorf("skip preload bytes: %w", err)
	}
	// terminator, should be 0xFFFF
	if err := c.Skip(2); err != nil {
		return fmt.Errorf("skip terminator: %w", err)
	}
	return nil
}

// joinPath composes a tree path. If fold is set, a single space stands for an
// empty directory or extension.
func joinPath(dir, base, ext string, fold bool) string {
	if !fold {
		return Normalize(dir + "/" + base + "." + ext)
	}
	fn := base
	if ext != " " {
		fn += "." + ext
	}
	if dir != " " {
		fn = dir + "/" + fn
	}
	return Normalize(fn)
}
