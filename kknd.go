/*
Package kknd is a library for inspecting the compressed asset containers used
by KKND2: Krossfire.

An asset file decompresses to a container holding groups of raw files, among
them MOBD animation sets. The subpackages implement each layer; this package
ties them together.
*/
package kknd

import (
	"io"
	"log"
	"os"

	"github.com/bodgit/kknd/compression"
	"github.com/bodgit/kknd/container"
	"github.com/bodgit/kknd/diag"
	"github.com/pkg/errors"
)

type KKND struct {
	names  container.Namer
	logger *log.Logger
}

// New returns a KKND that names files using names, which may be nil, and
// logs to logger.
func New(names container.Namer, logger *log.Logger) *KKND {
	return &KKND{
		names:  names,
		logger: logger,
	}
}

// Decode reads a complete asset file from r.
func (k *KKND) Decode(r io.Reader) (*Asset, error) {
	return k.DecodeCollect(r, nil)
}

// DecodeCollect is like Decode but reports decompression statistics to c.
func (k *KKND) DecodeCollect(r io.Reader, c diag.Collector) (*Asset, error) {
	data, header, err := compression.DecompressCollect(r, c)
	if err != nil {
		return nil, err
	}

	d, err := container.Read(data)
	if err != nil {
		return nil, err
	}

	if k.names != nil {
		if err := container.AttachNames(d, k.names); err != nil {
			k.logger.Printf("Unable to name files: %v\n", err)
		}
	}

	return &Asset{
		Header:    header,
		Data:      data,
		Directory: d,
	}, nil
}

// Open reads the asset file named file.
func (k *KKND) Open(file string) (*Asset, error) {
	return k.open(file, nil)
}

func (k *KKND) open(file string, c diag.Collector) (*Asset, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := k.DecodeCollect(f, c)
	if err != nil {
		return nil, errors.WithMessage(err, file)
	}
	return a, nil
}
