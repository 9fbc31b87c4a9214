/*
Package container implements a reader for the directory of a decompressed
KKND2 asset container.

The first four bytes of the container hold the offset of a directory table.
The table lists typed file groups as (tag, file list offset) pairs terminated
by a zero offset. Each group's file list is an array of absolute file offsets
where zero marks a removed file. File lengths are never stored; they are
derived from the offset of the next surviving file, or for the last file in a
group from the earliest file list, which marks the end of the raw data.

	+------------------+ 0
	| directory offset |
	+------------------+ 4
	| raw file data    |
	+------------------+ min(file list offset)
	| file lists       |
	+------------------+ directory offset
	| directory table  |
	+------------------+
*/
package container

import (
	"errors"
	"fmt"

	"github.com/bodgit/kknd/byteview"
	"github.com/golang/glog"
	perrors "github.com/pkg/errors"
)

const (
	recordSize = 8
	entrySize  = 4

	// More groups than this and the directory table is assumed to be
	// garbage.
	maxGroups = 1 << 12
)

var (
	// ErrMalformedFileList is returned when a group's file list cannot be
	// partitioned into file offsets, or implies a negative length.
	ErrMalformedFileList = errors.New("container: malformed file list")
	// ErrFileNotFound is returned by Group.File when no surviving file has
	// the requested index.
	ErrFileNotFound = errors.New("container: file not found")
)

// File is one raw file in the container.
type File struct {
	// Sequence is the position of the file among the surviving files of
	// its group.
	Sequence int
	// Index is the position of the file in its group's file list,
	// counting removed files.
	Index int
	Tag   string

	// Offset is the absolute position of the file in the container. It is
	// also the base that absolute offsets inside the file are corrected
	// against.
	Offset uint32
	Length uint32

	// Name is empty unless attached with AttachNames.
	Name string

	// Data shares the container buffer.
	Data []byte
}

func (f *File) String() string {
	if f.Name != "" {
		return fmt.Sprintf("%s/%d (%s)", f.Tag, f.Index, f.Name)
	}
	return fmt.Sprintf("%s/%d", f.Tag, f.Index)
}

// Group is a tagged collection of files.
type Group struct {
	Index          int
	Tag            string
	FileListOffset uint32
	// FileListLength is the size of the group's file list in bytes.
	FileListLength uint32

	Files []*File
}

// File returns the surviving file with the given file list index.
func (g *Group) File(index int) (*File, error) {
	for _, f := range g.Files {
		if f.Index == index {
			return f, nil
		}
	}
	return nil, perrors.Wrapf(ErrFileNotFound, "%s/%d", g.Tag, index)
}

// Directory is the decoded directory of a container.
type Directory struct {
	// Offset is the position of the directory table.
	Offset uint32
	Groups []*Group
}

// Group returns the first group with the given tag.
func (d *Directory) Group(tag string) (*Group, bool) {
	for _, g := range d.Groups {
		if g.Tag == tag {
			return g, true
		}
	}
	return nil, false
}

// Files returns the files of every group with the given tag, in directory
// order.
func (d *Directory) Files(tag string) []*File {
	var files []*File
	for _, g := range d.Groups {
		if g.Tag == tag {
			files = append(files, g.Files...)
		}
	}
	return files
}

// FirstFileListOffset returns the offset of the earliest file list, which is
// where the raw file data ends.
func (d *Directory) FirstFileListOffset() uint32 {
	first := d.Offset
	for _, g := range d.Groups {
		if g.FileListOffset < first {
			first = g.FileListOffset
		}
	}
	return first
}

// Len returns the number of surviving files across all groups.
func (d *Directory) Len() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Files)
	}
	return n
}

// Read decodes the directory of the container held in b. The returned files
// share b.
func Read(b []byte) (*Directory, error) {
	v := byteview.View(b)

	offset, err := v.Uint32LE(0)
	if err != nil {
		return nil, perrors.Wrap(err, "container: reading directory offset")
	}
	d := &Directory{Offset: offset}

	if err := d.readGroups(v); err != nil {
		return nil, err
	}

	first := d.FirstFileListOffset()
	for i, g := range d.Groups {
		end := d.Offset
		if i < len(d.Groups)-1 {
			end = d.Groups[i+1].FileListOffset
		}
		if end < g.FileListOffset {
			return nil, perrors.Wrapf(ErrMalformedFileList, "group %s: file list at %d ends at %d", g.Tag, g.FileListOffset, end)
		}
		g.FileListLength = end - g.FileListOffset

		if err := g.readFiles(v, first); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *Directory) readGroups(v byteview.View) error {
	pos := int(d.Offset)
	for i := 0; ; i++ {
		if i == maxGroups {
			return perrors.Wrapf(ErrMalformedFileList, "directory at %d: more than %d groups", d.Offset, maxGroups)
		}

		tag, err := v.String(pos, 4)
		if err != nil {
			return perrors.Wrapf(err, "container: reading directory record %d", i)
		}
		fileList, err := v.Uint32LE(pos + 4)
		if err != nil {
			return perrors.Wrapf(err, "container: reading directory record %d", i)
		}
		if fileList == 0 {
			break
		}

		glog.V(2).Infof("group %d: type %s file list at %d", i, tag, fileList)
		d.Groups = append(d.Groups, &Group{
			Index:          i,
			Tag:            tag,
			FileListOffset: fileList,
		})
		pos += recordSize
	}
	return nil
}

func (g *Group) readFiles(v byteview.View, first uint32) error {
	if g.FileListLength%entrySize != 0 {
		return perrors.Wrapf(ErrMalformedFileList, "group %s: file list length %d is not a multiple of %d", g.Tag, g.FileListLength, entrySize)
	}

	for i := 0; i < int(g.FileListLength/entrySize); i++ {
		offset, err := v.Uint32LE(int(g.FileListOffset) + i*entrySize)
		if err != nil {
			return perrors.Wrapf(err, "container: reading file list of group %s", g.Tag)
		}
		if offset == 0 {
			glog.V(3).Infof("group %s: file %d removed", g.Tag, i)
			continue
		}
		g.Files = append(g.Files, &File{
			Sequence: len(g.Files),
			Index:    i,
			Tag:      g.Tag,
			Offset:   offset,
		})
	}

	for i, f := range g.Files {
		end := first
		if i < len(g.Files)-1 {
			end = g.Files[i+1].Offset
		}
		if end < f.Offset {
			return perrors.Wrapf(ErrMalformedFileList, "file %s at %d ends at %d", f, f.Offset, end)
		}
		f.Length = end - f.Offset

		data, err := v.Slice(int(f.Offset), int(f.Length))
		if err != nil {
			return perrors.Wrapf(err, "container: file %s", f)
		}
		f.Data = data
	}
	return nil
}
