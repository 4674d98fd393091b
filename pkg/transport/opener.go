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

package transport

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// NewSerialOpener creates an opener for the device with the given identity.
// If port is not empty, device discovery is skipped and that port is used
// directly. Backend selects the serial library, default is go.bug.st.
func NewSerialOpener(id Identity, port, backend string) *SerialOpener {
	return &SerialOpener{
		identity: id,
		port:     port,
		backend:  backend,
		finder:   &USBFinder{},
	}
}

//
type SerialOpener struct {
	identity Identity
	port     string
	backend  string
	finder   Finder
}

//
func (o *SerialOpener) SetFinder(f Finder) {
	o.finder = f
}

//
func (o *SerialOpener) Open() (Port, error) {

	name := o.port
	if name == "" {
		var err error
		if name, err = o.finder.Find(o.identity); err != nil {
			return nil, err
		}
	}

	var p Port
	var err error

	switch o.backend {
	case "", BackendBugst:
		p, err = openBugst(name)
	case BackendJacobsa:
		p, err = openJacobsa(name)
	default:
		return nil, fmt.Errorf("unknown serial backend: %s", o.backend)
	}

	if err != nil {
		log.WithField("port", name).Errorf("cannot open port: %v", err)
		return nil, fmt.Errorf("error opening %s: %v", name, err)
	}

	return &chunked{Port: p, max: MaxChunkSize}, nil
}

//
func ValidBackend(b string) bool {
	return b == "" || b == BackendBugst || b == BackendJacobsa
}
