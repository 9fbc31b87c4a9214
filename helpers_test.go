package kknd

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/kknd/compression"
	"github.com/stretchr/testify/require"
)

type testGroup struct {
	tag   string
	files [][]byte
}

// buildContainer lays out groups as a container; a nil file is removed.
// Files start at offset 4 in the order given.
func buildContainer(groups []testGroup) []byte {
	b := make([]byte, 4)

	offsets := make([][]uint32, len(groups))
	for i, g := range groups {
		for _, f := range g.files {
			if f == nil {
				offsets[i] = append(offsets[i], 0)
				continue
			}
			offsets[i] = append(offsets[i], uint32(len(b)))
			b = append(b, f...)
		}
	}

	lists := make([]uint32, len(groups))
	for i := range groups {
		lists[i] = uint32(len(b))
		for _, o := range offsets[i] {
			b = binary.LittleEndian.AppendUint32(b, o)
		}
	}

	binary.LittleEndian.PutUint32(b, uint32(len(b)))
	for i, g := range groups {
		b = append(b, g.tag...)
		b = binary.LittleEndian.AppendUint32(b, lists[i])
	}
	return append(b, make([]byte, 8)...)
}

// compress wraps data in verbatim chunks.
func compress(data []byte) []byte {
	h := compression.Header{
		Version:          1,
		Timestamp:        0x5f5e1000,
		UncompressedSize: uint32(len(data)),
	}
	b, _ := h.MarshalBinary()

	for len(data) > 0 {
		n := len(data)
		if n > 0x100 {
			n = 0x100
		}
		b = binary.LittleEndian.AppendUint32(b, uint32(n))
		b = binary.LittleEndian.AppendUint32(b, uint32(n))
		b = append(b, data[:n]...)
		data = data[n:]
	}
	return b
}

// mobdFile is a MOBD file with one animation of one empty frame, for a
// file at base in its container.
func mobdFile(base uint32) []byte {
	b := make([]byte, 40)
	binary.LittleEndian.PutUint32(b[0:], 0x01000000)
	binary.LittleEndian.PutUint32(b[4:], base+12)
	return b
}

func testAsset() []byte {
	return buildContainer([]testGroup{
		{TagMOBD, [][]byte{mobdFile(4), nil, []byte("xx")}},
		{"SPRT", [][]byte{[]byte("sprite")}},
	})
}

func writeFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, b, 0o644))
	return file
}
