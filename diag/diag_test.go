package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOr(t *testing.T) {
	assert.Equal(t, Nop(), Or(nil))

	h := new(Histogram)
	assert.Equal(t, h, Or(h))
}

func TestHistogram(t *testing.T) {
	h := new(Histogram)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.AnimationHeader(0x10000000)
			if i%2 == 0 {
				h.AnimationHeader(0x20000000)
			}
			h.Chunk(i%4 == 0, 10, 20)
		}(i)
	}
	wg.Wait()

	h.LoopGuardMismatch(24, 1000)
	h.RowOverflow(8, 1, 12, 10)

	assert.Equal(t, 8, h.HeaderCount(0x10000000))
	assert.Equal(t, 4, h.HeaderCount(0x20000000))
	assert.Equal(t, 0, h.HeaderCount(0x30000000))
	assert.Equal(t, []uint32{0x10000000, 0x20000000}, h.Headers())

	verbatim, compressed := h.Chunks()
	assert.Equal(t, 2, verbatim)
	assert.Equal(t, 6, compressed)

	assert.Equal(t, []int{24}, h.Mismatches())
	assert.Equal(t, 1, h.Overflows())
}
