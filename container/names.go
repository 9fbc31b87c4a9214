package container

import (
	perrors "github.com/pkg/errors"
)

// Namer supplies human readable names for files. An unknown file yields an
// empty name and no error.
type Namer interface {
	Name(tag string, index int) (string, error)
}

// AttachNames sets the Name of every file in d that n knows about. It is a
// separate pass so reading a directory never depends on a name table.
func AttachNames(d *Directory, n Namer) error {
	for _, g := range d.Groups {
		for _, f := range g.Files {
			name, err := n.Name(g.Tag, f.Index)
			if err != nil {
				return perrors.Wrapf(err, "container: naming %s", f)
			}
			f.Name = name
		}
	}
	return nil
}
