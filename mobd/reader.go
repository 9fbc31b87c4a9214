package mobd

import (
	"github.com/bodgit/kknd/byteview"
	"github.com/bodgit/kknd/diag"
	"github.com/bodgit/kknd/palette"
	"github.com/bodgit/kknd/sprite"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	endOfSet   = 0x00000000
	moreFollow = 0xffffffff
	endOfList  = 0xffffffff

	// An animation header always has a non-zero top byte.
	headerMask = 0xff000000

	// Frame record layout.
	frameOffsetX = 0
	frameOffsetY = 4
	frameRender  = 12
	frameBoxList = 16
	framePoints  = 24

	// Render record layout.
	renderTag     = 0
	renderFlags   = 4
	renderPalette = 8
	renderImage   = 12

	pointSize  = 16
	pointScale = 256

	maxAnimations = 1 << 12
	maxFrames     = 1 << 14
	maxPoints     = 1 << 12
)

type decoder struct {
	v    byteview.View
	base uint32
	c    diag.Collector

	// Frames are often shared between animations.
	frames map[int]*Frame
}

// correct turns an absolute container offset into a position in the file.
// The result may be out of range; reads through the view catch that.
func (d *decoder) correct(ptr uint32) int {
	return int(int64(ptr) - int64(d.base))
}

func (d *decoder) readPoints(pos int) ([]Point, error) {
	var points []Point
	for i := 0; ; i++ {
		id, err := d.v.Uint32LE(pos)
		if err != nil {
			return nil, errors.Wrap(err, "mobd: reading point")
		}
		if id == endOfList {
			break
		}
		if i == maxPoints {
			return nil, errors.Errorf("mobd: point list at %d: more than %d points", pos, maxPoints)
		}

		p := Point{ID: id}
		for j, c := range []*int32{&p.X, &p.Y, &p.Z} {
			v, err := d.v.Int32LE(pos + 4 + j*4)
			if err != nil {
				return nil, errors.Wrap(err, "mobd: reading point")
			}
			*c = v / pointScale
		}
		points = append(points, p)
		pos += pointSize
	}
	return points, nil
}

func (d *decoder) readRender(f *Frame, pos int) error {
	tag, err := d.v.StringReverse(pos+renderTag, 4)
	if err != nil {
		return errors.Wrap(err, "mobd: reading render record")
	}
	format, ok := parseFormat(tag)
	if !ok {
		return errors.Wrapf(ErrUnknownFrameFormat, "render record at %d: tag %q", pos, tag)
	}
	f.Format = format

	var fields [3]uint32
	for i, off := range []int{renderFlags, renderPalette, renderImage} {
		if fields[i], err = d.v.Uint32LE(pos + off); err != nil {
			return errors.Wrap(err, "mobd: reading render record")
		}
	}
	f.Flags = sprite.Flags(fields[0])

	if f.Palette, err = palette.ReadRegion(d.v, d.correct(fields[1])); err != nil {
		return errors.WithMessagef(err, "mobd: render record at %d", pos)
	}
	if f.Image, err = sprite.Read(d.v, d.correct(fields[2]), f.Flags, d.c); err != nil {
		return errors.WithMessagef(err, "mobd: render record at %d", pos)
	}
	return nil
}

func (d *decoder) readFrame(pos int) (*Frame, error) {
	if f, ok := d.frames[pos]; ok {
		return f, nil
	}

	f := &Frame{Offset: pos}

	var err error
	if f.OffsetX, err = d.v.Int32LE(pos + frameOffsetX); err != nil {
		return nil, errors.Wrapf(err, "mobd: frame at %d", pos)
	}
	if f.OffsetY, err = d.v.Int32LE(pos + frameOffsetY); err != nil {
		return nil, errors.Wrapf(err, "mobd: frame at %d", pos)
	}

	var render, points uint32
	for _, field := range []struct {
		off int
		dst *uint32
	}{
		{frameRender, &render},
		{frameBoxList, &f.BoxList},
		{framePoints, &points},
	} {
		if *field.dst, err = d.v.Uint32LE(pos + field.off); err != nil {
			return nil, errors.Wrapf(err, "mobd: frame at %d", pos)
		}
	}

	if points != 0 {
		if f.Points, err = d.readPoints(d.correct(points)); err != nil {
			return nil, errors.WithMessagef(err, "frame at %d", pos)
		}
	}
	if render != 0 {
		if err = d.readRender(f, d.correct(render)); err != nil {
			return nil, errors.WithMessagef(err, "frame at %d", pos)
		}
	}

	glog.V(3).Infof("mobd: frame at %d: %d points format %s", pos, len(f.Points), f.Format)
	d.frames[pos] = f
	return f, nil
}

// readAnimation reads the animation at pos. It returns the position after
// the animation and the lowest frame position it refers to.
func (d *decoder) readAnimation(pos int) (*Animation, int, int, error) {
	a := &Animation{Offset: pos}
	first := len(d.v)

	var err error
	if a.Header, err = d.v.Uint32LE(pos); err != nil {
		return nil, 0, 0, err
	}
	pos += 4

	for i := 0; ; i++ {
		ptr, err := d.v.Uint32LE(pos)
		if err != nil {
			return nil, 0, 0, err
		}
		pos += 4
		if ptr == endOfSet || ptr == moreFollow {
			a.End = ptr
			break
		}
		if i == maxFrames {
			return nil, 0, 0, errors.Wrapf(ErrInvalidFramePointer, "more than %d frames", maxFrames)
		}

		fp := d.correct(ptr)
		if fp < 0 || fp >= len(d.v) {
			return nil, 0, 0, errors.Wrapf(ErrInvalidFramePointer, "pointer %#08x corrected to %d in %d bytes", ptr, fp, len(d.v))
		}

		f, err := d.readFrame(fp)
		if err != nil {
			return nil, 0, 0, err
		}
		a.Frames = append(a.Frames, f)
		if fp < first {
			first = fp
		}
	}

	return a, pos, first, nil
}

// Read decodes the MOBD file held in b. base is the file's offset in its
// container, which every pointer in the file is corrected against. c may be
// nil.
func Read(b []byte, base uint32, c diag.Collector) (*AnimationSet, error) {
	d := decoder{
		v:      b,
		base:   base,
		c:      diag.Or(c),
		frames: make(map[int]*Frame),
	}

	set := new(AnimationSet)
	starts := make(map[int]*Animation)
	first := len(b)
	pos := 0

	value, err := d.v.Uint32LE(pos)
	if err != nil {
		return nil, errors.Wrap(err, "mobd: reading first animation")
	}

	for n := 0; value&headerMask != 0; n++ {
		if pos >= first {
			glog.Warningf("mobd: animation at %d overlaps the first frame at %d", pos, first)
			break
		}
		if n == maxAnimations {
			glog.Warningf("mobd: stopping after %d animations", n)
			break
		}

		start := pos
		a, next, aFirst, err := d.readAnimation(pos)
		if err != nil {
			return nil, errors.WithMessagef(err, "mobd: animation at %d", start)
		}
		d.c.AnimationHeader(a.Header)
		pos = next

		if len(a.Frames) > 0 {
			a.Index = len(set.Animations)
			set.Animations = append(set.Animations, a)
			starts[start] = a
			if aFirst < first {
				first = aFirst
			}
		} else {
			glog.V(1).Infof("mobd: dropping animation at %d without frames", start)
		}

		if value, err = d.v.Uint32LE(pos); err != nil {
			return nil, errors.Wrap(err, "mobd: reading next animation")
		}
	}

	if value != 0 && value&headerMask == 0 {
		glog.V(1).Infof("mobd: animation list ends on %#08x at %d", value, pos)
		d.c.LoopGuardMismatch(pos, value)
	}

	// Animations referred to from the block between the animation list and
	// the first frame have one variant per facing.
	for ; pos+4 <= first; pos += 4 {
		v, err := d.v.Uint32LE(pos)
		if err != nil {
			return nil, errors.Wrap(err, "mobd: reading index block")
		}
		if v == 0 {
			continue
		}
		if a, ok := starts[d.correct(v)]; ok {
			a.Rotational = true
		}
	}

	return set, nil
}
