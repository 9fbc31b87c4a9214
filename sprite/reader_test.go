package sprite

import (
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"github.com/bodgit/kknd/diag"
	"github.com/bodgit/kknd/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(width, height int32, data ...byte) []byte {
	b := make([]byte, 0, headerSize+len(data))
	b = binary.LittleEndian.AppendUint32(b, uint32(width))
	b = binary.LittleEndian.AppendUint32(b, uint32(height))
	return append(b, data...)
}

func TestReadUncompressed(t *testing.T) {
	// Leading junk checks the position is honoured.
	b := append([]byte{0xff, 0xff}, record(3, 2, 1, 2, 3, 4, 5, 6)...)

	m, err := Read(b, 2, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Width)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, m.Pixels)
	assert.Equal(t, uint8(6), m.At(2, 1))
	assert.Equal(t, uint8(2), m.At(1, 0))

	// The image owns its pixels.
	b[2+headerSize] = 9
	assert.Equal(t, uint8(1), m.At(0, 0))
}

func TestRead16Colors(t *testing.T) {
	b := record(4, 3,
		// Empty row.
		0x00,
		// Literal run of two packed bytes.
		0x82, 0x12, 0x34,
		// Four bytes of chunks: one transparent pixel, then three
		// literal pixels in two bytes with the last nibble unused.
		0x04, 0x01, 0x83, 0x56, 0x70,
	)

	m, err := Read(b, 0, FlagCompressed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		1, 2, 3, 4,
		0, 5, 6, 7,
	}, m.Pixels)
}

func TestRead256Colors(t *testing.T) {
	b := record(3, 2,
		0x00, 0x00,
		0x04, 0x00, 0x01, 0x82, 0xaa, 0xbb,
	)

	m, err := Read(b, 0, FlagCompressed|Flag256Colors, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0,
		0, 0xaa, 0xbb,
	}, m.Pixels)
	assert.True(t, m.Flags.Has256Colors())
}

func TestRead256ColorsLargePrefix(t *testing.T) {
	// With 256 colours a prefix above 0x80 is still a chunk length.
	row := []byte{0x7f}
	for i := 0; i < 0x80; i++ {
		row = append(row, 0x00)
	}
	data := binary.LittleEndian.AppendUint16(nil, uint16(len(row)))
	data = append(data, row...)

	m, err := Read(record(0x7f, 1, data...), 0, FlagCompressed|Flag256Colors, nil)
	require.NoError(t, err)
	assert.Len(t, m.Pixels, 0x7f)
	assert.Equal(t, make([]byte, 0x7f), m.Pixels)
}

func TestReadPadsShortRows(t *testing.T) {
	tables := []struct {
		name  string
		width int32
		data  []byte
		want  []byte
	}{
		{
			"literal run shorter than row",
			4,
			[]byte{0x81, 0x9a},
			[]byte{9, 10, 0, 0},
		},
		{
			"dangling nibble dropped at row end",
			3,
			[]byte{0x82, 0x12, 0x34},
			[]byte{1, 2, 3},
		},
		{
			"chunks shorter than row",
			5,
			[]byte{0x02, 0x01, 0x00},
			[]byte{0, 0, 0, 0, 0},
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			m, err := Read(record(table.width, 1, table.data...), 0, FlagCompressed, nil)
			require.NoError(t, err)
			assert.Equal(t, table.want, m.Pixels)
		})
	}
}

func TestReadRowOverflow(t *testing.T) {
	b := record(2, 2, 0x82, 0x12, 0x34)

	h := new(diag.Histogram)
	m, err := Read(b, 0, FlagCompressed, h)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, m.Pixels)
	assert.Equal(t, 1, h.Overflows())
}

func TestReadTrimsFinalRow(t *testing.T) {
	// A chunk row on the last line that decodes past the end of the image.
	b := record(2, 1, 0x03, 0x83, 0x12, 0x30)

	m, err := Read(b, 0, FlagCompressed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, m.Pixels)
}

func TestReadFlipped(t *testing.T) {
	tables := []struct {
		name  string
		flags Flags
		b     []byte
	}{
		{"uncompressed", 0, record(3, 2, 1, 2, 3, 4, 5, 6)},
		{"16 colours", FlagCompressed, record(4, 2, 0x82, 0x12, 0x34, 0x03, 0x01, 0x81, 0x50)},
		{"256 colours", FlagCompressed | Flag256Colors, record(3, 2, 0x00, 0x00, 0x04, 0x00, 0x01, 0x82, 0xaa, 0xbb)},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			plain, err := Read(table.b, 0, table.flags, nil)
			require.NoError(t, err)
			flipped, err := Read(table.b, 0, table.flags|FlagFlipped, nil)
			require.NoError(t, err)
			assert.True(t, flipped.Flags.Flipped())

			for y := 0; y < flipped.Height; y++ {
				row := flipped.Pixels[y*flipped.Width : (y+1)*flipped.Width]
				for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
					row[i], row[j] = row[j], row[i]
				}
			}
			assert.Equal(t, plain.Pixels, flipped.Pixels)
		})
	}
}

func TestReadIdempotent(t *testing.T) {
	b := record(4, 3, 0x00, 0x82, 0x12, 0x34, 0x04, 0x01, 0x83, 0x56, 0x70)

	first, err := Read(b, 0, FlagCompressed|FlagFlipped, nil)
	require.NoError(t, err)
	second, err := Read(b, 0, FlagCompressed|FlagFlipped, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Pixels, second.Pixels)
	first.Pixels[0] = 0xff
	assert.NotEqual(t, first.Pixels[0], second.Pixels[0])
}

func TestReadErrors(t *testing.T) {
	tables := []struct {
		name  string
		b     []byte
		flags Flags
		want  error
	}{
		{"short header", []byte{0x01, 0x00, 0x00, 0x00}, 0, ErrTruncatedImage},
		{"short literal pixels", record(2, 2, 1, 2, 3), 0, ErrTruncatedImage},
		{"compressed stream underrun", record(4, 2, 0x00), FlagCompressed, ErrTruncatedImage},
		{"literal run past end", record(4, 1, 0x82, 0x12), FlagCompressed, ErrTruncatedImage},
		{"256 colour chunk past end", record(4, 1, 0x03, 0x00, 0x84, 0x01, 0x02), FlagCompressed | Flag256Colors, ErrTruncatedImage},
		{"negative width", record(-1, 2), 0, ErrCorruptImage},
		{"too many pixels", record(1<<14, 1<<14), FlagCompressed, ErrCorruptImage},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			m, err := Read(table.b, 0, table.flags, nil)
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, table.want), "got %v", err)
		})
	}
}

func TestPixelCountInvariant(t *testing.T) {
	for _, b := range [][]byte{
		record(0, 5),
		record(5, 0),
		record(3, 3, 0x00, 0x81, 0xff, 0x00),
		record(2, 2, 0x82, 0x12, 0x34, 0x00),
	} {
		m, err := Read(b, 0, FlagCompressed, nil)
		require.NoError(t, err)
		assert.Len(t, m.Pixels, m.Width*m.Height)
	}
}

func TestPaletted(t *testing.T) {
	p := palette.Palette{
		RGB: []uint32{0x000000, 0xf80000},
		BGR: []uint32{0x000000, 0x0000f8},
	}
	m := &Image{Width: 2, Height: 2, Pixels: []byte{0, 1, 1, 5}}

	img := m.Paletted(p)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Len(t, img.Palette, 6)
	assert.Equal(t, color.RGBA{}, img.At(0, 0))
	assert.Equal(t, color.RGBA{0xf8, 0x00, 0x00, 0xff}, img.At(1, 0))
	assert.Equal(t, color.RGBA{}, img.At(1, 1))
	assert.Equal(t, uint8(5), img.ColorIndexAt(1, 1))
}
