/*
   GBShooper - Game Boy flash cart interface
   Copyright (c) 2022, Alexander Vollschwitz

   This file is part of GBShooper.

   GBShooper is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   GBShooper is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with GBShooper. If not, see <http://www.gnu.org/licenses/>.
*/

package image

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"

	log "github.com/sirupsen/logrus"
)

// image types
const (
	TypeROM      = "gb"
	TypeColorROM = "gbc"
	TypeSave     = "sav"
)

// compressors
const (
	CompressorNone = ""
	CompressorGZip = "gzip"
	CompressorZip  = "zip"
	Compressor7Zip = "7z"
)

/*
	Reader reads a ROM or save image, which may be compressed. For archives,
	the first entry is used. Name and type are taken from the name of the
	compressed entry where the compressor records it.
*/
type Reader struct {
	readCloser io.ReadCloser
	//
	name       string
	typ        string
	compressor string
}

// NewReader wraps r into a decompressing reader. compressor is one of the
// Compressor constants, or gz as alias for gzip.
func NewReader(r io.ReadCloser, compressor string) (*Reader, error) {

	logger := log.WithField("compressor", compressor)
	logger.Debug("image reader requested")

	var ret *Reader
	var err error

	switch strings.ToLower(compressor) {

	case CompressorGZip, "gz":
		ret, err = newGZipReader(r)

	case CompressorZip:
		ret, err = newArchiveReader(r, false)

	case Compressor7Zip:
		ret, err = newArchiveReader(r, true)

	case CompressorNone:
		ret = &Reader{readCloser: r}

	default:
		err = fmt.Errorf("unsupported compressor: %s", compressor)
	}

	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"name": ret.name, "type": ret.typ}).Debug("image reader created")

	return ret, nil
}

// Open opens the image file at path, with the compressor derived from its
// extension.
func Open(path string) (*Reader, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	name, typ, comp := SplitNameTypeCompressor(path)

	ret, err := NewReader(f, comp)
	if err != nil {
		f.Close()
		return nil, err
	}

	if ret.name == "" {
		ret.name = name
	}
	if ret.typ == "" {
		ret.typ = typ
	}
	return ret, nil
}

//
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.readCloser.Read(p)
}

//
func (r *Reader) Close() error {
	return r.readCloser.Close()
}

//
func (r *Reader) Name() string {
	return r.name
}

//
func (r *Reader) Type() string {
	return r.typ
}

//
func (r *Reader) Compressor() string {
	return r.compressor
}

//
func newGZipReader(r io.ReadCloser) (*Reader, error) {

	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	ret := &Reader{readCloser: gzr, compressor: CompressorGZip}
	ret.name, ret.typ, _ = SplitNameTypeCompressor(gzr.Name)
	return ret, nil
}

// newArchiveReader soaks up r, since both zip and 7z need random access
func newArchiveReader(r io.ReadCloser, zip7 bool) (*Reader, error) {

	var sponge bytes.Buffer
	size, err := io.Copy(&sponge, r)
	r.Close()
	if err != nil {
		return nil, err
	}

	ret := &Reader{}
	var entry string
	src := bytes.NewReader(sponge.Bytes())

	if zip7 {
		zr, err := sevenzip.NewReader(src, size)
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty 7-zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("7-zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		ret.compressor = Compressor7Zip
		ret.readCloser, err = zr.File[0].Open()
		if err != nil {
			return nil, err
		}

	} else {
		zr, err := zip.NewReader(src, size)
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		ret.compressor = CompressorZip
		ret.readCloser, err = zr.File[0].Open()
		if err != nil {
			return nil, err
		}
	}

	ret.name, ret.typ, _ = SplitNameTypeCompressor(entry)
	return ret, nil
}

/*
	Unpack writes the decompressed content of the image at path to a temporary
	file, and returns its name. The device protocol needs to know the image
	size up front, which compressed streams cannot tell. For uncompressed images,
	path itself is returned. The returned cleanup function removes the temporary
	file, if any, and is never nil.
*/
func Unpack(path string) (string, func(), error) {

	noop := func() {}

	if _, _, comp := SplitNameTypeCompressor(path); comp == CompressorNone {
		return path, noop, nil
	}

	r, err := Open(path)
	if err != nil {
		return "", noop, err
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "gbshooper-*."+r.typeOrDefault())
	if err != nil {
		return "", noop, err
	}

	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil {
			log.Warnf("cannot remove temporary file %s: %v", tmp.Name(), err)
		}
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("error unpacking %s: %v", path, err)
	}

	log.WithFields(log.Fields{
		"source": path, "unpacked": tmp.Name(), "size": n}).Info("image unpacked")

	return tmp.Name(), cleanup, nil
}

//
func (r *Reader) typeOrDefault() string {
	if r.typ == "" {
		return TypeROM
	}
	return r.typ
}

// SplitNameTypeCompressor splits a file name such as tetris.gb.zip into base
// name, image type, and compressor. Unknown extensions become part of the name.
func SplitNameTypeCompressor(file string) (name, typ, compressor string) {

	_, n := filepath.Split(file)

	for {
		ext := filepath.Ext(n)
		if ext == "" {
			break
		}

		e := strings.ToLower(strings.TrimPrefix(ext, "."))

		switch e {
		case TypeROM, TypeColorROM, TypeSave:
			if typ == "" {
				typ = e
			}
		case CompressorGZip, "gz", CompressorZip, Compressor7Zip:
			if compressor == "" {
				compressor = e
				if e == "gz" {
					compressor = CompressorGZip
				}
			}
		default:
			return n, typ, compressor
		}

		n = strings.TrimSuffix(n, ext)
	}

	return n, typ, compressor
}
