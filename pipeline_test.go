package kknd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/bodgit/kknd/compression"
	"github.com/bodgit/kknd/mobd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkAsset() []byte {
	return buildContainer([]testGroup{
		{TagMOBD, [][]byte{mobdFile(4), mobdFile(44)}},
	})
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	var files []string
	for i := 0; i < 5; i++ {
		b := buildContainer([]testGroup{
			{TagMOBD, [][]byte{mobdFile(4), mobdFile(44)}},
			{"SPRT", make([][]byte, i)},
		})
		files = append(files, writeFile(t, dir, fmt.Sprintf("%d.lpk", i), compress(b)))
	}

	k := New(nil, log.New(io.Discard, "", 0))
	for _, workers := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			reports, err := k.Check(context.Background(), files, workers)
			require.NoError(t, err)
			require.Len(t, reports, len(files))

			for i, r := range reports {
				assert.Equal(t, files[i], r.File)
				assert.Equal(t, uint32(1), r.Header.Version)
				assert.Equal(t, 2, r.Groups)
				assert.Equal(t, 2, r.Files)
				assert.Equal(t, 2, r.AnimationSets)
				assert.Equal(t, 2, r.Animations)
				assert.Equal(t, 2, r.Frames)
				assert.Equal(t, []uint32{0x01000000}, r.Headers)
				assert.Zero(t, r.Mismatches)
				assert.Zero(t, r.Overflows)
			}
		})
	}
}

func TestCheckFailure(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "good.lpk", compress(checkAsset())),
		// Decompresses, but holds a MOBD file that does not decode.
		writeFile(t, dir, "bad.lpk", compress(testAsset())),
	}

	reports, err := New(nil, log.New(io.Discard, "", 0)).Check(context.Background(), files, 2)
	assert.Nil(t, reports)
	assert.True(t, errors.Is(err, mobd.ErrInvalidFramePointer), "got %v", err)
}

func TestCheckTruncated(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "bad.lpk", compress(testAsset())[:10])}

	_, err := New(nil, log.New(io.Discard, "", 0)).Check(context.Background(), files, 1)
	assert.True(t, errors.Is(err, compression.ErrTruncatedInput), "got %v", err)
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	file := writeFile(t, t.TempDir(), "test.lpk", compress(checkAsset()))
	_, err := New(nil, log.New(io.Discard, "", 0)).Check(ctx, []string{file, file, file}, 1)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
