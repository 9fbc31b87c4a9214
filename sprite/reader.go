package sprite

import (
	"errors"

	"github.com/bodgit/kknd/byteview"
	"github.com/bodgit/kknd/diag"
	"github.com/golang/glog"
	perrors "github.com/pkg/errors"
)

var (
	// ErrTruncatedImage is returned when pixel data runs past the end of
	// the buffer.
	ErrTruncatedImage = errors.New("sprite: truncated image")
	// ErrCorruptImage is returned for impossible image dimensions.
	ErrCorruptImage = errors.New("sprite: corrupt image")
)

const (
	literalRun = 0x80
)

type decoder struct {
	v byteview.View
	c diag.Collector

	start int
	pos   int

	width  int
	height int
	flags  Flags
	pixels []byte
}

func (d *decoder) truncated(err error) error {
	return perrors.Wrapf(ErrTruncatedImage, "image at %d: %v", d.start, err)
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.v.Uint8(d.pos)
	if err != nil {
		return 0, d.truncated(err)
	}
	d.pos++
	return b, nil
}

func (d *decoder) readHeader() error {
	w, err := d.v.Int32LE(d.start)
	if err != nil {
		return d.truncated(err)
	}
	h, err := d.v.Int32LE(d.start + 4)
	if err != nil {
		return d.truncated(err)
	}
	if w < 0 || h < 0 || int64(w)*int64(h) > maxPixels {
		return perrors.Wrapf(ErrCorruptImage, "image at %d: dimensions %dx%d", d.start, w, h)
	}
	d.width, d.height = int(w), int(h)
	d.pos = d.start + headerSize
	return nil
}

func (d *decoder) decodeLiteral() error {
	b, err := d.v.Slice(d.pos, d.width*d.height)
	if err != nil {
		return d.truncated(err)
	}
	d.pixels = append([]byte(nil), b...)
	return nil
}

func (d *decoder) emit(n int, b byte) {
	for i := 0; i < n; i++ {
		d.pixels = append(d.pixels, b)
	}
}

// literalNibbles handles a 16 colour row that is a single run of n packed
// bytes. The second nibble of a byte is dropped once the row is full.
func (d *decoder) literalNibbles(n int) error {
	cnt := 0
	for i := 0; i < n; i++ {
		b, err := d.readByte()
		if err != nil {
			return err
		}
		d.pixels = append(d.pixels, upperNibble(b)>>4)
		cnt++
		if cnt < d.width {
			d.pixels = append(d.pixels, lowerNibble(b))
			cnt++
		}
	}
	return nil
}

// chunks handles a row coded as length bytes of chunks. Each chunk is either
// a run of transparent pixels or a run of literal pixels.
func (d *decoder) chunks(length int) error {
	end := d.pos + length
	for d.pos < end {
		h, err := d.readByte()
		if err != nil {
			return err
		}
		if h < literalRun {
			d.emit(int(h), transparent)
			continue
		}

		n := int(h - literalRun)
		if d.flags.Has256Colors() {
			b, err := d.v.Slice(d.pos, n)
			if err != nil {
				return d.truncated(err)
			}
			d.pixels = append(d.pixels, b...)
			d.pos += n
			continue
		}

		bytes := n/2 + n%2
		for i := 0; i < bytes; i++ {
			b, err := d.readByte()
			if err != nil {
				return err
			}
			d.pixels = append(d.pixels, upperNibble(b)>>4)
			if i+1 < bytes || n%2 == 0 {
				d.pixels = append(d.pixels, lowerNibble(b))
			}
		}
	}
	return nil
}

func (d *decoder) decodeRows() error {
	size := d.width * d.height
	d.pixels = make([]byte, 0, size)

	for row := 0; len(d.pixels) < size; row++ {
		rowStart := len(d.pixels)

		var prefix int
		if d.flags.Has256Colors() {
			p, err := d.v.Uint16LE(d.pos)
			if err != nil {
				return d.truncated(err)
			}
			d.pos += 2
			prefix = int(p)
		} else {
			p, err := d.readByte()
			if err != nil {
				return err
			}
			prefix = int(p)
		}

		var err error
		switch {
		case prefix == 0:
			d.emit(d.width, transparent)
		case !d.flags.Has256Colors() && prefix > literalRun:
			err = d.literalNibbles(prefix - literalRun)
		default:
			err = d.chunks(prefix)
		}
		if err != nil {
			return err
		}

		if produced := len(d.pixels) - rowStart; produced > d.width {
			glog.Warningf("sprite: image at %d row %d: %d pixels in a row of %d, re-aligning", d.start, row, produced, d.width)
			d.c.RowOverflow(d.start, row, produced, d.width)
		}
		d.emit((d.width-len(d.pixels)%d.width)%d.width, transparent)
	}

	d.pixels = d.pixels[:size]
	return nil
}

func (d *decoder) flip() {
	for y := 0; y < d.height; y++ {
		row := d.pixels[y*d.width : (y+1)*d.width]
		for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
			row[i], row[j] = row[j], row[i]
		}
	}
}

func (d *decoder) decode() error {
	if err := d.readHeader(); err != nil {
		return err
	}

	glog.V(3).Infof("sprite: image at %d: %dx%d flags %#08x", d.start, d.width, d.height, uint32(d.flags))

	var err error
	if d.flags.Compressed() {
		err = d.decodeRows()
	} else {
		err = d.decodeLiteral()
	}
	if err != nil {
		return err
	}

	if d.flags.Flipped() {
		d.flip()
	}
	return nil
}

// Read decodes the image record at pos using the render flags read by the
// caller. Rows that decode wider than the image are tolerated and re-aligned
// to the next row; each occurrence is reported to c, which may be nil.
func Read(v byteview.View, pos int, flags Flags, c diag.Collector) (*Image, error) {
	d := decoder{
		v:     v,
		c:     diag.Or(c),
		start: pos,
		flags: flags,
	}
	if err := d.decode(); err != nil {
		return nil, err
	}
	return &Image{
		Width:  d.width,
		Height: d.height,
		Pixels: d.pixels,
		Flags:  flags,
	}, nil
}
