/*
Package compression implements the whole-file compression wrapper used by
KKND2 asset files (.lpk, .lps, .lpm and friends).

A file starts with a 16 byte header followed by a sequence of chunks. Each
chunk records its decoded and encoded size; when the two are equal the chunk
is stored verbatim, otherwise it is coded with a small LZ scheme. Chunks are
decoded until the total size recorded in the header is reached.
*/
package compression

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	headerSize      = 16
	chunkHeaderSize = 8

	// Upper bounds on what is allocated up front from sizes read from the
	// input; buffers still grow to whatever the input actually holds.
	maxPrealloc   = 1 << 20
	chunkPrealloc = 64 << 10
)

var (
	// ErrTruncatedInput is returned when the input ends before a field or
	// chunk it declares.
	ErrTruncatedInput = errors.New("compression: truncated input")
	// ErrCorruptChunk is returned when a chunk does not decode to the
	// sizes it declares.
	ErrCorruptChunk = errors.New("compression: corrupt chunk")
)

// Header is the fixed size header at the start of every compressed file.
// It implements the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler
// interfaces.
type Header struct {
	Version          uint32
	Timestamp        uint32
	UncompressedSize uint32
	// ReservedSize is present in every file but plays no part in decoding.
	ReservedSize uint32
}

// MarshalBinary encodes the header. Note the uncompressed size is the only
// big-endian field.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:], h.Version)
	binary.LittleEndian.PutUint32(b[4:], h.Timestamp)
	binary.BigEndian.PutUint32(b[8:], h.UncompressedSize)
	binary.LittleEndian.PutUint32(b[12:], h.ReservedSize)
	return b, nil
}

// UnmarshalBinary decodes the header from the first 16 bytes of b.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < headerSize {
		return ErrTruncatedInput
	}
	h.Version = binary.LittleEndian.Uint32(b[0:])
	h.Timestamp = binary.LittleEndian.Uint32(b[4:])
	h.UncompressedSize = binary.BigEndian.Uint32(b[8:])
	h.ReservedSize = binary.LittleEndian.Uint32(b[12:])
	return nil
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncatedInput
	}
	return err
}

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}
