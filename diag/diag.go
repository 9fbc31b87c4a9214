/*
Package diag defines the collector passed explicitly through the decoders to
record statistics and suspicious input for later review.

Nothing in this package is process wide; a collector only sees the decodes it
is handed to.
*/
package diag

import (
	"sort"
	"sync"
)

// Collector receives observations from the decoders. All methods must be
// safe to call from the goroutine running the decode.
type Collector interface {
	// Chunk is called once per decoded compression chunk.
	Chunk(verbatim bool, compressed, uncompressed int)
	// AnimationHeader is called with the header tag of every MOBD
	// animation read, including ones later dropped for having no frames.
	AnimationHeader(header uint32)
	// LoopGuardMismatch is called when the animation list ends on a
	// value that is non-zero but has a zero top byte, where the two known
	// loop guards disagree.
	LoopGuardMismatch(offset int, value uint32)
	// RowOverflow is called when a compressed image row produced more
	// pixels than the image is wide and was re-aligned.
	RowOverflow(offset, row, produced, width int)
}

type nop struct{}

func (nop) Chunk(bool, int, int) {}
func (nop) AnimationHeader(uint32) {}
func (nop) LoopGuardMismatch(int, uint32) {}
func (nop) RowOverflow(int, int, int, int) {}

// Nop returns a Collector that discards everything.
func Nop() Collector {
	return nop{}
}

// Or returns c, or a Nop collector if c is nil.
func Or(c Collector) Collector {
	if c == nil {
		return nop{}
	}
	return c
}

// Histogram is a Collector that counts what it is given. The zero value is
// ready to use and it may be shared between goroutines.
type Histogram struct {
	mu sync.Mutex

	verbatimChunks   int
	compressedChunks int
	headers          map[uint32]int
	mismatches       []int
	overflows        int
}

// Chunk implements Collector.
func (h *Histogram) Chunk(verbatim bool, compressed, uncompressed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if verbatim {
		h.verbatimChunks++
	} else {
		h.compressedChunks++
	}
}

// AnimationHeader implements Collector.
func (h *Histogram) AnimationHeader(header uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.headers == nil {
		h.headers = make(map[uint32]int)
	}
	h.headers[header]++
}

// LoopGuardMismatch implements Collector.
func (h *Histogram) LoopGuardMismatch(offset int, value uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mismatches = append(h.mismatches, offset)
}

// RowOverflow implements Collector.
func (h *Histogram) RowOverflow(offset, row, produced, width int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overflows++
}

// Chunks returns the number of verbatim and LZ coded chunks seen.
func (h *Histogram) Chunks() (verbatim, compressed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verbatimChunks, h.compressedChunks
}

// HeaderCount returns how many animations carried the given header.
func (h *Histogram) HeaderCount(header uint32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.headers[header]
}

// Headers returns the distinct animation headers seen, sorted.
func (h *Histogram) Headers() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]uint32, 0, len(h.headers))
	for k := range h.headers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Mismatches returns the offsets of every loop guard disagreement.
func (h *Histogram) Mismatches() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.mismatches...)
}

// Overflows returns the number of re-aligned image rows.
func (h *Histogram) Overflows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overflows
}
