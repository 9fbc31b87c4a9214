package compression

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bodgit/kknd/diag"
	"github.com/pkg/errors"
)

type decoder struct {
	r io.Reader
	c diag.Collector

	header Header
	out    []byte

	tmp [chunkHeaderSize]byte
	src bytes.Buffer
}

func (d *decoder) readHeader() error {
	var b [headerSize]byte
	if err := readFull(d.r, b[:]); err != nil {
		return errors.Wrap(err, "reading header")
	}
	return d.header.UnmarshalBinary(b[:])
}

func (d *decoder) readChunk() error {
	start := len(d.out)
	if err := readFull(d.r, d.tmp[:]); err != nil {
		return errors.Wrapf(err, "reading chunk header at output offset %d", start)
	}
	uncompressed := binary.LittleEndian.Uint32(d.tmp[0:])
	compressed := binary.LittleEndian.Uint32(d.tmp[4:])

	if uncompressed == 0 {
		return errors.Wrapf(ErrCorruptChunk, "empty chunk at output offset %d", start)
	}
	if uint64(start)+uint64(uncompressed) > uint64(d.header.UncompressedSize) {
		return errors.Wrapf(ErrCorruptChunk, "chunk at output offset %d: %d bytes overrun total size %d", start, uncompressed, d.header.UncompressedSize)
	}

	src, err := d.readPayload(compressed)
	if err != nil {
		return errors.Wrapf(err, "chunk at output offset %d: want %d bytes", start, compressed)
	}

	d.c.Chunk(uncompressed == compressed, int(compressed), int(uncompressed))

	if uncompressed == compressed {
		d.out = append(d.out, src...)
		return nil
	}

	consumed, err := d.expand(src)
	if err != nil {
		return errors.WithMessagef(err, "chunk at output offset %d", start)
	}
	if consumed != len(src) {
		return errors.Wrapf(ErrCorruptChunk, "chunk at output offset %d: consumed %d bytes, want %d", start, consumed, len(src))
	}
	if n := len(d.out) - start; n != int(uncompressed) {
		return errors.Wrapf(ErrCorruptChunk, "chunk at output offset %d: decoded %d bytes, want %d", start, n, uncompressed)
	}
	return nil
}

// readPayload reads n bytes of chunk payload. The declared size is not
// trusted, so the buffer only grows with what is actually read.
func (d *decoder) readPayload(n uint32) ([]byte, error) {
	d.src.Reset()
	if n < chunkPrealloc {
		d.src.Grow(int(n))
	} else {
		d.src.Grow(chunkPrealloc)
	}
	if _, err := io.CopyN(&d.src, d.r, int64(n)); err != nil {
		if err == io.EOF {
			return nil, ErrTruncatedInput
		}
		return nil, err
	}
	return d.src.Bytes(), nil
}

// expand decodes one LZ coded chunk, appending to d.out, and returns how
// many source bytes were consumed. Back references may reach into the output
// of earlier chunks.
func (d *decoder) expand(src []byte) (int, error) {
	n := 0
	for n < len(src) {
		if n+2 > len(src) {
			return n + 2, nil
		}
		mask := uint16(src[n]) | uint16(src[n+1])<<8
		n += 2

		for bit := uint(0); bit < 16 && n < len(src); bit++ {
			if mask>>bit&1 == 0 {
				d.out = append(d.out, src[n])
				n++
				continue
			}

			if n+2 > len(src) {
				return n + 2, nil
			}
			length := 1 + int(lowerNibble(src[n]))
			distance := int(upperNibble(src[n]))<<4 | int(src[n+1])
			n += 2

			end := len(d.out)
			if distance == 0 || distance > end {
				return n, errors.Wrapf(ErrCorruptChunk, "back reference distance %d with %d bytes of output", distance, end)
			}
			for i := 0; i < length; i++ {
				d.out = append(d.out, d.out[end-distance+i%distance])
			}
		}
	}
	return n, nil
}

func (d *decoder) decode(r io.Reader) error {
	d.r = r

	if err := d.readHeader(); err != nil {
		return err
	}

	size := d.header.UncompressedSize
	prealloc := size
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	d.out = make([]byte, 0, prealloc)

	for uint32(len(d.out)) < size {
		if err := d.readChunk(); err != nil {
			return err
		}
	}
	return nil
}

// Decompress reads a complete compressed asset file from r and returns the
// decoded bytes together with the file header. The length of the returned
// buffer always equals Header.UncompressedSize; any other outcome is an
// error and no partial output is returned.
func Decompress(r io.Reader) ([]byte, Header, error) {
	return DecompressCollect(r, nil)
}

// DecompressCollect is like Decompress but reports every chunk to c.
func DecompressCollect(r io.Reader, c diag.Collector) ([]byte, Header, error) {
	d := decoder{c: diag.Or(c)}
	if err := d.decode(r); err != nil {
		return nil, Header{}, err
	}
	return d.out, d.header, nil
}
