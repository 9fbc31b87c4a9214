/*
Package sprite implements the indexed colour image codec used by frames in
MOBD files.

An image record starts with its width and height as little-endian 32-bit
integers, followed by the pixel data. Pixel data is either a literal
width*height array of palette indices or a row based run-length coding in one
of two variants: 16 colour images pack two pixels per byte with the high
nibble first, 256 colour images use a byte per pixel. The flags selecting
between these live in the frame's render record rather than the image itself.
*/
package sprite

import (
	"image"
	"image/color"

	"github.com/bodgit/kknd/palette"
)

// Flags is the render flag word from a frame's render record.
type Flags uint32

// Flag bits used by the codec; the remaining bits are passed through.
const (
	Flag256Colors  Flags = 1 << 26
	FlagCompressed Flags = 1 << 27
	FlagFlipped    Flags = 1 << 31
)

// Flipped reports whether rows are mirrored horizontally.
func (f Flags) Flipped() bool { return f&FlagFlipped != 0 }

// Compressed reports whether pixel data is run-length coded.
func (f Flags) Compressed() bool { return f&FlagCompressed != 0 }

// Has256Colors reports whether pixels use a byte each rather than a nibble.
func (f Flags) Has256Colors() bool { return f&Flag256Colors != 0 }

const (
	headerSize = 8

	// Sprites are small; anything larger is a misread header.
	maxPixels = 1 << 26

	transparent = 0
)

// Image is a decoded indexed colour image. Pixels holds Width*Height palette
// indices in row-major order.
type Image struct {
	Width  int
	Height int
	Pixels []byte
	Flags  Flags
}

// At returns the palette index of the pixel at column x and row y.
func (m *Image) At(x, y int) uint8 {
	return m.Pixels[y*m.Width+x]
}

// Paletted returns the image as an *image.Paletted using p. Some sprites
// use indices past the end of their palette, so the palette is padded with
// transparent entries to cover every index present.
func (m *Image) Paletted(p palette.Palette) *image.Paletted {
	colors := p.Colors()
	var top byte
	for _, px := range m.Pixels {
		if px > top {
			top = px
		}
	}
	for len(colors) <= int(top) {
		colors = append(colors, color.RGBA{})
	}

	img := image.NewPaletted(image.Rect(0, 0, m.Width, m.Height), colors)
	copy(img.Pix, m.Pixels)
	return img
}

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}
