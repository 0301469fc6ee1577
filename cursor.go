package vpk

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Cursor is a sequential little-endian reader over an in-memory blob. It also
// supports extracting arbitrary byte ranges by absolute offset.
//
// Reads past the end of the buffer return io.ErrUnexpectedEOF and leave the
// position unchanged.
type Cursor struct {
	b   []byte
	off int
}

// NewCursor creates a new Cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int {
	return len(c.b)
}

// Tell returns the current absolute position.
func (c *Cursor) Tell() int {
	return c.off
}

func (c *Cursor) next(n int) ([]byte, error) {
	if n < 0 || n > len(c.b)-c.off {
		return nil, fmt.Errorf("need %d bytes at offset %d of %d: %w", n, c.off, len(c.b), io.ErrUnexpectedEOF)
	}
	b := c.b[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Uint16 reads a little-endian uint16.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// NullString reads a null-terminated string, consuming the terminator.
func (c *Cursor) NullString() (string, error) {
	for i := c.off; i < len(c.b); i++ {
		if c.b[i] == 0 {
			s := string(c.b[c.off:i])
			c.off = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d: %w", c.off, io.ErrUnexpectedEOF)
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.next(n)
	return err
}

// Bytes returns a copy of n bytes at the absolute offset off without moving
// the position.
func (c *Cursor) Bytes(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off > int64(len(c.b)) || n > int64(len(c.b))-off {
		return nil, fmt.Errorf("range [%d, %d) outside blob of %d bytes: %w", off, off+n, len(c.b), io.ErrUnexpectedEOF)
	}
	b := make([]byte, n)
	copy(b, c.b[off:])
	return b, nil
}
