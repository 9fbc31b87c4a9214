/*
Package byteview implements bounds checked random access reads over a decoded
byte buffer.

All multi-byte integers are read at an arbitrary byte offset. A read that
would fall outside the buffer returns a *RangeError rather than panicking,
which lets the decoders built on top of it treat every offset recorded in the
data as untrusted.
*/
package byteview

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is the error wrapped by every RangeError.
var ErrTruncated = errors.New("byteview: truncated input")

// RangeError reports a read of Size bytes at Offset in a buffer of Len bytes.
type RangeError struct {
	Offset int
	Size   int
	Len    int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("byteview: read of %d bytes at offset %d outside buffer of %d bytes", e.Size, e.Offset, e.Len)
}

// Unwrap returns ErrTruncated.
func (e *RangeError) Unwrap() error {
	return ErrTruncated
}

// View is a read-only window over a byte slice. It never owns or copies the
// underlying bytes.
type View []byte

// Len returns the length of the view in bytes.
func (v View) Len() int {
	return len(v)
}

func (v View) check(off, n int) error {
	if off < 0 || n < 0 || off > len(v)-n {
		return &RangeError{Offset: off, Size: n, Len: len(v)}
	}
	return nil
}

// Slice returns the n bytes at off, sharing the underlying array.
func (v View) Slice(off, n int) ([]byte, error) {
	if err := v.check(off, n); err != nil {
		return nil, err
	}
	return v[off : off+n : off+n], nil
}

// Uint8 reads one byte.
func (v View) Uint8(off int) (uint8, error) {
	if err := v.check(off, 1); err != nil {
		return 0, err
	}
	return v[off], nil
}

// Uint16LE reads a little-endian 16-bit unsigned integer.
func (v View) Uint16LE(off int) (uint16, error) {
	if err := v.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v[off:]), nil
}

// Uint32LE reads a little-endian 32-bit unsigned integer.
func (v View) Uint32LE(off int) (uint32, error) {
	if err := v.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v[off:]), nil
}

// Uint32BE reads a big-endian 32-bit unsigned integer.
func (v View) Uint32BE(off int) (uint32, error) {
	if err := v.check(off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v[off:]), nil
}

// Int32LE reads a little-endian 32-bit signed integer.
func (v View) Int32LE(off int) (int32, error) {
	u, err := v.Uint32LE(off)
	return int32(u), err
}

// String reads n bytes at off as an ASCII string.
func (v View) String(off, n int) (string, error) {
	b, err := v.Slice(off, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StringReverse reads n bytes at off as an ASCII string with the byte order
// reversed, which is how four character tags are stored inside MOBD files.
func (v View) StringReverse(off, n int) (string, error) {
	b, err := v.Slice(off, n)
	if err != nil {
		return "", err
	}
	r := make([]byte, n)
	for i, c := range b {
		r[n-1-i] = c
	}
	return string(r), nil
}
