/*
Package names provides the optional table of contents that gives files in a
container human readable names.

A table of contents is a JSON document listing, per group tag, the original
file index and name of each known file:

	{"FileTypes": [{"Type": "MOBD", "Files": [{"Index": 0, "Name": "tank"}]}]}

It can be used directly as a Table, or imported into a SQLite backed DB.
*/
package names

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

type jsonTable struct {
	FileTypes []jsonFileType `json:"FileTypes"`
}

type jsonFileType struct {
	Type  string     `json:"Type"`
	Files []jsonFile `json:"Files"`
}

type jsonFile struct {
	Index int    `json:"Index"`
	Name  string `json:"Name"`
}

type key struct {
	tag   string
	index int
}

// Table is an in-memory table of contents.
type Table struct {
	names map[key]string
}

func readJSON(r io.Reader) (*jsonTable, error) {
	var t jsonTable
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, errors.Wrap(err, "names: decoding table of contents")
	}
	return &t, nil
}

// ReadTable parses a table of contents from r. Where a tag lists the same
// index twice the first name wins.
func ReadTable(r io.Reader) (*Table, error) {
	jt, err := readJSON(r)
	if err != nil {
		return nil, err
	}

	t := &Table{names: make(map[key]string)}
	for _, ft := range jt.FileTypes {
		for _, f := range ft.Files {
			k := key{ft.Type, f.Index}
			if _, ok := t.names[k]; ok {
				continue
			}
			t.names[k] = f.Name
		}
	}
	return t, nil
}

// LoadTable parses the table of contents in file.
func LoadTable(file string) (*Table, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTable(f)
}

// Name implements container.Namer.
func (t *Table) Name(tag string, index int) (string, error) {
	return t.names[key{tag, index}], nil
}

// Len returns the number of named files.
func (t *Table) Len() int {
	return len(t.names)
}
