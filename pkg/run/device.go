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

package run

import (
	"fmt"
)

//
func NewStatus() *Status {
	s := &Status{}
	s.Runner = *NewRunner(
		"status [-p|--port {port}]",
		"check the GB Shooper hardware",
		"\nUse the status command to check that the GB Shooper responds, and to get its firmware version.",
		"", runnerHelpEpilogue, s.Run)
	s.AddBaseSettings()
	return s
}

//
type Status struct {
	Runner
}

//
func (s *Status) Run() error {

	if err := s.ParseSettings(); err != nil {
		return err
	}

	st, err := s.newFlasher().Status()
	if err != nil {
		fmt.Fprintln(s.out(), "Hardware error")
		return err
	}

	fmt.Fprintln(s.out(), "GB Shooper hardware READY")
	fmt.Fprintf(s.out(), "GB Shooper hardware version: %s\n", st)
	return nil
}

//
func NewID() *ID {
	i := &ID{}
	i.Runner = *NewRunner(
		"id [-p|--port {port}]",
		"get the ID of the flash chip",
		"\nUse the id command to identify manufacturer & type of the flash chip on the cartridge.",
		"", runnerHelpEpilogue, i.Run)
	i.AddBaseSettings()
	return i
}

//
type ID struct {
	Runner
}

// Run also prints the codes when the chip is unknown, but then fails.
func (i *ID) Run() error {

	if err := i.ParseSettings(); err != nil {
		return err
	}

	id, err := i.newFlasher().FlashID()
	if id == nil {
		return err
	}

	fmt.Fprintf(i.out(), "Flash manufacturer: %s\n", id.Manufacturer)
	fmt.Fprintf(i.out(), "Flash chip type: %s\n", id.Chip)
	return err
}

//
func NewReadHeader() *ReadHeader {
	r := &ReadHeader{}
	r.Runner = *NewRunner(
		"read-header [-p|--port {port}]",
		"get header information of the cartridge",
		"\nUse the read-header command to get title, mapper, and ROM & RAM sizes of the cartridge.",
		"", runnerHelpEpilogue, r.Run)
	r.AddBaseSettings()
	return r
}

//
type ReadHeader struct {
	Runner
}

//
func (r *ReadHeader) Run() error {

	if err := r.ParseSettings(); err != nil {
		return err
	}

	hd, err := r.newFlasher().ReadHeader()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out(), "Cart name: %s\n", hd.Title)
	fmt.Fprintf(r.out(), "Cart type: %s\n", hd.CartType)
	fmt.Fprintf(r.out(), "ROM size:  %s\n", hd.ROMSize)
	fmt.Fprintf(r.out(), "RAM size:  %s\n", hd.RAMSize)
	if hd.Degraded {
		fmt.Fprintln(r.out(), "\nheader contains unknown codes, title may be incomplete")
	}
	return nil
}
