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

package repo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NewFileSource opens the image at path within the library rooted at
// library. Paths leading outside of the library are rejected.
func NewFileSource(library, path string) (*FileSource, error) {

	root, err := filepath.Abs(library)
	if err != nil {
		return nil, err
	}

	full := filepath.Join(root, filepath.Clean("/"+path))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid library path: %s", path)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}

	return &FileSource{file: f, reader: bufio.NewReader(f)}, nil
}

//
type FileSource struct {
	file   *os.File
	reader io.Reader
}

//
func (fs *FileSource) Read(p []byte) (n int, err error) {
	return fs.reader.Read(p)
}

//
func (fs *FileSource) Close() error {
	return fs.file.Close()
}
