package palette

import (
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"github.com/bodgit/kknd/byteview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packed(values ...uint16) byteview.View {
	b := make([]byte, 0, len(values)*2)
	for _, v := range values {
		b = binary.LittleEndian.AppendUint16(b, v)
	}
	return b
}

func TestUnpack(t *testing.T) {
	tables := []struct {
		packed  uint16
		r, g, b uint8
	}{
		{0x0000, 0x00, 0x00, 0x00},
		{0x7fff, 0xf8, 0xf8, 0xf8},
		{0x7c00, 0xf8, 0x00, 0x00},
		{0x03e0, 0x00, 0xf8, 0x00},
		{0x001f, 0x00, 0x00, 0xf8},
		{0x0421, 0x08, 0x08, 0x08},
		// The unused top bit is ignored.
		{0x8000, 0x00, 0x00, 0x00},
	}

	for _, table := range tables {
		r, g, b := Unpack(table.packed)
		assert.Equal(t, [3]uint8{table.r, table.g, table.b}, [3]uint8{r, g, b}, "packed %#04x", table.packed)
	}
}

func TestRead(t *testing.T) {
	v := packed(0xdead, 0x7fff, 0x7c00, 0x001f)

	p, err := Read(v, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []uint32{0xf8f8f8, 0xf80000, 0x0000f8}, p.RGB)
	assert.Equal(t, []uint32{0xf8f8f8, 0x0000f8, 0xf80000}, p.BGR)

	for i := range p.RGB {
		rgb, bgr := p.RGB[i], p.BGR[i]
		assert.Equal(t, rgb&0xff00ff00|rgb>>16&0xff|rgb&0xff<<16, bgr)
	}
}

func TestReadRegion(t *testing.T) {
	region := make([]byte, 12)
	region = binary.LittleEndian.AppendUint16(region, 2)
	region = binary.LittleEndian.AppendUint16(region, 0x0000)
	region = binary.LittleEndian.AppendUint16(region, 0x7fff)

	p, err := ReadRegion(region, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x000000, 0xf8f8f8}, p.RGB)

	c := p.Colors()
	require.Len(t, c, 2)
	assert.Equal(t, color.RGBA{}, c[0])
	assert.Equal(t, color.RGBA{0xf8, 0xf8, 0xf8, 0xff}, c[1])
}

func TestReadTruncated(t *testing.T) {
	_, err := Read(packed(0x7fff), 0, 2)
	assert.True(t, errors.Is(err, byteview.ErrTruncated))

	_, err = ReadRegion(make([]byte, 13), 0)
	assert.True(t, errors.Is(err, byteview.ErrTruncated))

	for _, count := range []int{-1, 1 << 30} {
		p, err := Read(nil, 0, count)
		assert.Zero(t, p.Len())
		var re *byteview.RangeError
		assert.True(t, errors.As(err, &re), "count %d: got %v", count, err)
	}
}
