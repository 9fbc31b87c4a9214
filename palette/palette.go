/*
Package palette implements the 15-bit packed colour palettes used by MOBD
sprites.

Each entry is a little-endian 16-bit value laid out as 0RRRRRGGGGGBBBBB.
Channels are widened to 8 bits by shifting left by three, so the low three
bits of every channel are always zero.
*/
package palette

import (
	"image/color"

	"github.com/bodgit/kknd/byteview"
	"github.com/pkg/errors"
)

const (
	// Offsets within a palette region.
	countOffset   = 12
	entriesOffset = 14

	entrySize = 2
)

// Palette holds the same colours in two channel orders. Both slices always
// have the same length.
type Palette struct {
	// RGB colours as 0x00RRGGBB.
	RGB []uint32
	// BGR colours as 0x00BBGGRR.
	BGR []uint32
}

// Unpack widens a packed 15-bit colour to 8 bits per channel.
func Unpack(packed uint16) (r, g, b uint8) {
	r = uint8((packed & 0x7c00) >> 7)
	g = uint8((packed & 0x03e0) >> 2)
	b = uint8((packed & 0x001f) << 3)
	return
}

// Read decodes count packed colours starting at pos. A count that does not
// fit in v, including a negative one, returns a *byteview.RangeError.
func Read(v byteview.View, pos, count int) (Palette, error) {
	if _, err := v.Slice(pos, count*entrySize); err != nil {
		return Palette{}, errors.Wrapf(err, "palette: %d entries at %d", count, pos)
	}

	p := Palette{
		RGB: make([]uint32, 0, count),
		BGR: make([]uint32, 0, count),
	}
	for i := 0; i < count; i++ {
		packed, err := v.Uint16LE(pos + i*entrySize)
		if err != nil {
			return Palette{}, errors.Wrapf(err, "palette: entry %d of %d", i, count)
		}
		r, g, b := Unpack(packed)
		p.RGB = append(p.RGB, uint32(r)<<16|uint32(g)<<8|uint32(b))
		p.BGR = append(p.BGR, uint32(b)<<16|uint32(g)<<8|uint32(r))
	}
	return p, nil
}

// ReadRegion decodes a palette region as referenced from a MOBD render
// record. The region carries its own entry count at +12 with the entries
// following at +14.
func ReadRegion(v byteview.View, pos int) (Palette, error) {
	count, err := v.Uint16LE(pos + countOffset)
	if err != nil {
		return Palette{}, errors.Wrapf(err, "palette: reading count at %d", pos)
	}
	return Read(v, pos+entriesOffset, int(count))
}

// Len returns the number of colours.
func (p Palette) Len() int {
	return len(p.RGB)
}

// Colors returns the palette as a color.Palette. Index 0 is transparent.
func (p Palette) Colors() color.Palette {
	c := make(color.Palette, len(p.RGB))
	for i, rgb := range p.RGB {
		if i == 0 {
			c[i] = color.RGBA{}
			continue
		}
		c[i] = color.RGBA{
			uint8(rgb >> 16),
			uint8(rgb >> 8),
			uint8(rgb),
			0xff,
		}
	}
	return c
}
