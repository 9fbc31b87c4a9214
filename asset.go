package kknd

import (
	"github.com/bodgit/kknd/compression"
	"github.com/bodgit/kknd/container"
	"github.com/bodgit/kknd/diag"
	"github.com/bodgit/kknd/mobd"
	"github.com/pkg/errors"
)

// TagMOBD is the group tag of MOBD animation sets.
const TagMOBD = "MOBD"

// Asset is a decoded asset file.
type Asset struct {
	Header compression.Header
	// Data is the decompressed container. Every file's Data shares it.
	Data      []byte
	Directory *container.Directory
}

// Animations decodes f as a MOBD file, reporting to c, which may be nil.
func (a *Asset) Animations(f *container.File, c diag.Collector) (*mobd.AnimationSet, error) {
	set, err := mobd.Read(f.Data, f.Offset, c)
	if err != nil {
		return nil, errors.WithMessage(err, f.String())
	}
	return set, nil
}

// AnimationFile pairs a MOBD file with its decoded contents.
type AnimationFile struct {
	File *container.File
	Set  *mobd.AnimationSet
}

// AllAnimations decodes every MOBD file in the asset, stopping at the first
// failure.
func (a *Asset) AllAnimations(c diag.Collector) ([]AnimationFile, error) {
	files := a.Directory.Files(TagMOBD)
	sets := make([]AnimationFile, 0, len(files))
	for _, f := range files {
		set, err := a.Animations(f, c)
		if err != nil {
			return nil, err
		}
		sets = append(sets, AnimationFile{File: f, Set: set})
	}
	return sets, nil
}
