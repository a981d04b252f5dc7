package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a read or peek falls outside the image.
var ErrOutOfRange = errors.New("read outside image bounds")

// Reader is a bounds-checked, randomly addressable view over image bytes.
// Peek* methods address the image by absolute offset and do not move the
// cursor; Read* methods consume from the cursor. All failures are
// recoverable errors, never panics.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over the given image bytes.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total image size.
func (r *Reader) Len() int {
	return len(r.data)
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos moves the cursor. Positions beyond the image are allowed; the
// next read reports the range error.
func (r *Reader) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	r.pos = pos
}

func (r *Reader) check(off, n int) error {
	if off < 0 || n < 0 || off+n < 0 || off+n > len(r.data) {
		return fmt.Errorf("offset %#x length %d: %w", off, n, ErrOutOfRange)
	}
	return nil
}

// PeekBytes copies length bytes starting at off without moving the cursor.
func (r *Reader) PeekBytes(off, length int) ([]byte, error) {
	if err := r.check(off, length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	copy(buf, r.data[off:off+length])
	return buf, nil
}

// PeekU8 reads one byte at off.
func (r *Reader) PeekU8(off int) (uint8, error) {
	if err := r.check(off, 1); err != nil {
		return 0, err
	}
	return r.data[off], nil
}

// PeekU16 reads a little-endian uint16 at off.
func (r *Reader) PeekU16(off int) (uint16, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.data[off:]), nil
}

// PeekU32 reads a little-endian uint32 at off.
func (r *Reader) PeekU32(off int) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.data[off:]), nil
}

// PeekU64 reads a little-endian uint64 at off.
func (r *Reader) PeekU64(off int) (uint64, error) {
	if err := r.check(off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.data[off:]), nil
}

// ReadU8 reads one byte at the cursor and advances it.
func (r *Reader) ReadU8() (uint8, error) {
	v, err := r.PeekU8(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos++
	return v, nil
}

// ReadU16 reads a little-endian uint16 at the cursor and advances it.
func (r *Reader) ReadU16() (uint16, error) {
	v, err := r.PeekU16(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32 at the cursor and advances it.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.PeekU32(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64 at the cursor and advances it.
func (r *Reader) ReadU64() (uint64, error) {
	v, err := r.PeekU64(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += 8
	return v, nil
}

// ReadBytes reads length bytes at the cursor and advances it.
func (r *Reader) ReadBytes(length int) ([]byte, error) {
	buf, err := r.PeekBytes(r.pos, length)
	if err != nil {
		return nil, err
	}
	r.pos += length
	return buf, nil
}

// PeekInto decodes one fixed-layout little-endian record at off into v
// without moving the cursor. v must be a pointer to a fixed-size value
// as understood by encoding/binary.
func (r *Reader) PeekInto(off int, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("type %T has no fixed size", v)
	}
	if err := r.check(off, n); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(r.data[off:off+n]), binary.LittleEndian, v)
}

// ReadInto decodes one fixed-layout record at the cursor and advances it.
func (r *Reader) ReadInto(v any) error {
	if err := r.PeekInto(r.pos, v); err != nil {
		return err
	}
	r.pos += binary.Size(v)
	return nil
}

// PeekString reads a NUL-terminated string starting at off, scanning at
// most max bytes. A string that reaches max or the image end without a
// terminator is returned as read; the offset itself must be in range.
func (r *Reader) PeekString(off, max int) (string, error) {
	if err := r.check(off, 0); err != nil {
		return "", err
	}
	if off >= len(r.data) {
		return "", fmt.Errorf("offset %#x: %w", off, ErrOutOfRange)
	}
	end := off + max
	if end > len(r.data) || end < off {
		end = len(r.data)
	}
	for i := off; i < end; i++ {
		if r.data[i] == 0 {
			return string(r.data[off:i]), nil
		}
	}
	return string(r.data[off:end]), nil
}
