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

	"github.com/spf13/cobra"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/flasher"
	"github.com/xelalexv/gbshooper/pkg/image"
)

//
func NewEraseFlash() *EraseFlash {
	e := &EraseFlash{}
	e.Runner = *NewRunner(
		"erase-flash [-p|--port {port}]",
		"clear the contents of the flash chip",
		"\nUse the erase-flash command to clear the entire flash chip. This can take up to a minute.",
		"", runnerHelpEpilogue, e.Run)
	e.AddBaseSettings()
	return e
}

//
type EraseFlash struct {
	Runner
}

//
func (e *EraseFlash) Run() error {
	if err := e.ParseSettings(); err != nil {
		return err
	}
	return e.runJob(e.newFlasher(), flasher.OpEraseFlash,
		flasher.NewJob("", 0), "ERASING FLASH...", "FLASH ERASED", false)
}

//
func NewWriteFlash() *WriteFlash {
	w := &WriteFlash{}
	w.Runner = *NewRunner(
		"write-flash [-p|--port {port}] {file}",
		"write a ROM image to the flash chip",
		`
Use the write-flash command to program the flash chip with the ROM image in
{file}. The image may be compressed with gzip, zip, or 7z, as indicated by the
file extension. The flash needs to be erased before.`,
		"", runnerHelpEpilogue, w.Run)
	w.Command.Args = cobra.ExactArgs(1)
	w.AddBaseSettings()
	return w
}

//
type WriteFlash struct {
	Runner
}

//
func (w *WriteFlash) Run() error {
	if err := w.ParseSettings(); err != nil {
		return err
	}
	return w.writeImage(flasher.OpProgramFlash, w.arg(0),
		"PROGRAMMING FLASH...", "FLASH PROGRAMMED")
}

//
func NewReadFlash() *ReadFlash {
	r := &ReadFlash{}
	r.Runner = *NewRunner(
		"read-flash [-p|--port {port}] [-s|--size {size code}] {file}",
		"read the contents of the flash chip into a file",
		"\nUse the read-flash command to read the flash chip and write its contents to {file}.",
		"", fmt.Sprintf(`- ROM size codes: %s
  If no size is given, 32KB are read.

`, cart.ROMSizeCodeHelp())+runnerHelpEpilogue, r.Run)
	r.Command.Args = cobra.ExactArgs(1)
	r.AddBaseSettings()
	r.AddSetting(&r.Size, "size", "s", "", 0, "ROM size code", false)
	return r
}

//
type ReadFlash struct {
	Runner
	//
	Size int
}

//
func (r *ReadFlash) Run() error {
	if err := r.ParseSettings(); err != nil {
		return err
	}
	return r.runJob(r.newFlasher(), flasher.OpReadFlash,
		flasher.NewJob(r.arg(0), uint64(cart.ROMSizeForCode(r.Size))),
		"READING FLASH...", "FLASH READ", true)
}

// writeImage programs the image at path, unpacking it first if compressed.
func (r *Runner) writeImage(op flasher.Operation, path, before,
	after string) error {

	file, cleanup, err := image.Unpack(path)
	if err != nil {
		return err
	}
	defer cleanup()

	return r.runJob(r.newFlasher(), op, flasher.NewJob(file, 0),
		before, after, true)
}
