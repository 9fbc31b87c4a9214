package kknd

import (
	"github.com/bodgit/kknd/compression"
	"github.com/bodgit/kknd/container"
	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a hash of the raw contents of f.
func Fingerprint(f *container.File) uint64 {
	return xxhash.Sum64(f.Data)
}

// FileDifference is a file that is missing from one asset or whose contents
// differ between the two. Offsets are ignored as files move whenever an
// earlier file changes size.
type FileDifference struct {
	Tag   string
	Index int
	// A and B are nil where the file is missing.
	A, B *container.File
}

// Comparison is the result of comparing two assets.
type Comparison struct {
	HeaderA, HeaderB compression.Header
	// FirstDifference is the offset of the first differing byte of the
	// decompressed containers, or -1 if they are identical.
	FirstDifference int
	Files           []FileDifference
}

// Equal reports whether the decompressed containers are identical.
func (c *Comparison) Equal() bool {
	return c.FirstDifference < 0
}

func firstDifference(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

type fileKey struct {
	tag   string
	index int
}

func fileMap(d *container.Directory) (map[fileKey]*container.File, []fileKey) {
	m := make(map[fileKey]*container.File)
	var keys []fileKey
	for _, g := range d.Groups {
		for _, f := range g.Files {
			k := fileKey{f.Tag, f.Index}
			// Only the first group with a given tag is compared.
			if _, ok := m[k]; ok {
				continue
			}
			m[k] = f
			keys = append(keys, k)
		}
	}
	return m, keys
}

// Compare compares two assets file by file. Differences are listed in the
// directory order of a, followed by files only present in b.
func Compare(a, b *Asset) *Comparison {
	c := &Comparison{
		HeaderA:         a.Header,
		HeaderB:         b.Header,
		FirstDifference: firstDifference(a.Data, b.Data),
	}

	ma, ka := fileMap(a.Directory)
	mb, kb := fileMap(b.Directory)

	for _, k := range ka {
		fa, fb := ma[k], mb[k]
		if fb != nil && fa.Length == fb.Length && Fingerprint(fa) == Fingerprint(fb) {
			continue
		}
		c.Files = append(c.Files, FileDifference{Tag: k.tag, Index: k.index, A: fa, B: fb})
	}
	for _, k := range kb {
		if _, ok := ma[k]; ok {
			continue
		}
		c.Files = append(c.Files, FileDifference{Tag: k.tag, Index: k.index, B: mb[k]})
	}

	return c
}
