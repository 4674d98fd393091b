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
	"fmt"
	"io"
	"strings"
)

// schemes of image references
const (
	SchemeLibrary = "lib://"
	SchemeHTTP    = "http://"
	SchemeHTTPS   = "https://"
)

/*
	Resolve opens the image an image reference points to. References are
	either lib://{path} for an image in the library rooted at library, or an
	http(s) URL.
*/
func Resolve(ref, library string) (io.ReadCloser, error) {

	switch {

	case strings.HasPrefix(ref, SchemeLibrary):
		if library == "" {
			return nil, fmt.Errorf("no ROM library configured")
		}
		src, err := NewFileSource(library, strings.TrimPrefix(ref, SchemeLibrary))
		if err != nil {
			return nil, err
		}
		return src, nil

	case strings.HasPrefix(ref, SchemeHTTP), strings.HasPrefix(ref, SchemeHTTPS):
		src, err := NewHTTPSource(ref)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	return nil, fmt.Errorf("unsupported image reference: %s", ref)
}
