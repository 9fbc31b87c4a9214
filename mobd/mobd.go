/*
Package mobd implements a reader for MOBD files, the sprite animation sets
stored in KKND2 asset containers.

A MOBD file starts with a list of animations. Each animation is a header word
followed by absolute pointers to its frames, terminated by 0xFFFFFFFF when
more animations follow or by zero after the last one. The animation list is
followed by an index block that refers back to the animations that have
per-direction variants, and then by the frame records themselves. Frames
point in turn to a point list, a box list and a render record that ties a
palette to an image.

Every pointer inside the file is relative to the start of the container, not
the file, so decoding needs the file's offset in its container.
*/
package mobd

import (
	"errors"

	"github.com/bodgit/kknd/palette"
	"github.com/bodgit/kknd/sprite"
)

var (
	// ErrInvalidFramePointer is returned when a frame pointer does not
	// land inside the file.
	ErrInvalidFramePointer = errors.New("mobd: invalid frame pointer")
	// ErrUnknownFrameFormat is returned when a render record does not
	// carry a recognised tag.
	ErrUnknownFrameFormat = errors.New("mobd: unknown frame format")
)

// Format is the kind of render record a frame uses.
type Format int

// Recognised render record formats.
const (
	FormatNone Format = iota
	FormatSPRC
	FormatSPNS
)

func (f Format) String() string {
	switch f {
	case FormatSPRC:
		return "SPRC"
	case FormatSPNS:
		return "SPNS"
	default:
		return "none"
	}
}

func parseFormat(tag string) (Format, bool) {
	switch tag {
	case "SPRC":
		return FormatSPRC, true
	case "SPNS":
		return FormatSPNS, true
	}
	return FormatNone, false
}

// Point is an attachment point of a frame, such as a turret mount or a
// muzzle.
type Point struct {
	ID      uint32
	X, Y, Z int32
}

// Frame is one frame of an animation.
type Frame struct {
	// Offset of the frame record within the file.
	Offset int

	// Sprite offset from the centre point of the image.
	OffsetX int32
	OffsetY int32

	Points []Point

	// BoxList is the raw absolute offset of the frame's hit-shape list,
	// zero if there is none. Its contents are not decoded.
	BoxList uint32

	Format  Format
	Flags   sprite.Flags
	Palette palette.Palette
	// Image is nil if the frame has no render record.
	Image *sprite.Image
}

// Animation is an ordered list of frames.
type Animation struct {
	// Index counts only the animations kept in the set.
	Index int
	// Offset of the animation within the file.
	Offset int
	// Header is an opaque tag, believed to encode the playback speed.
	Header uint32
	Frames []*Frame
	// Rotational animations have variants for each facing.
	Rotational bool
	// End is the value that terminated the frame pointer list.
	End uint32
}

// MaxSize returns the largest frame width and height in the animation.
func (a *Animation) MaxSize() (width, height int) {
	for _, f := range a.Frames {
		if f.Image == nil {
			continue
		}
		if f.Image.Width > width {
			width = f.Image.Width
		}
		if f.Image.Height > height {
			height = f.Image.Height
		}
	}
	return
}

// AnimationSet is the decoded contents of a MOBD file.
type AnimationSet struct {
	Animations []*Animation
}

// Frames returns the number of distinct frames in the set.
func (s *AnimationSet) Frames() int {
	seen := make(map[*Frame]struct{})
	for _, a := range s.Animations {
		for _, f := range a.Frames {
			seen[f] = struct{}{}
		}
	}
	return len(seen)
}
