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
)

var ramSizeEpilogue = fmt.Sprintf(`- RAM size codes: %s
  If no size is given, 8KB are used.

`, cart.RAMSizeCodeHelp()) + runnerHelpEpilogue

//
func NewWriteRAM() *WriteRAM {
	w := &WriteRAM{}
	w.Runner = *NewRunner(
		"write-ram [-p|--port {port}] {file}",
		"write a save file to the cartridge RAM",
		"\nUse the write-ram command to write the save RAM of the cartridge with the contents of {file}.",
		"", runnerHelpEpilogue, w.Run)
	w.Command.Args = cobra.ExactArgs(1)
	w.AddBaseSettings()
	return w
}

//
type WriteRAM struct {
	Runner
}

//
func (w *WriteRAM) Run() error {
	if err := w.ParseSettings(); err != nil {
		return err
	}
	return w.writeImage(flasher.OpProgramRAM, w.arg(0),
		"WRITING RAM...", "RAM WRITTEN")
}

//
func NewReadRAM() *ReadRAM {
	r := &ReadRAM{}
	r.Runner = *NewRunner(
		"read-ram [-p|--port {port}] [-s|--size {size code}] {file}",
		"read the cartridge RAM into a file",
		"\nUse the read-ram command to read the save RAM of the cartridge and write it to {file}.",
		"", ramSizeEpilogue, r.Run)
	r.Command.Args = cobra.ExactArgs(1)
	r.AddBaseSettings()
	r.AddSetting(&r.Size, "size", "s", "", 0, "RAM size code", false)
	return r
}

//
type ReadRAM struct {
	Runner
	//
	Size int
}

//
func (r *ReadRAM) Run() error {
	if err := r.ParseSettings(); err != nil {
		return err
	}
	return r.runJob(r.newFlasher(), flasher.OpReadRAM,
		flasher.NewJob(r.arg(0), uint64(cart.RAMSizeForCode(r.Size))),
		"READING RAM...", "RAM READ", true)
}

//
func NewEraseRAM() *EraseRAM {
	e := &EraseRAM{}
	e.Runner = *NewRunner(
		"erase-ram [-p|--port {port}] [-s|--size {size code}]",
		"clear the cartridge RAM",
		"\nUse the erase-ram command to fill the save RAM of the cartridge with zeros.",
		"", ramSizeEpilogue, e.Run)
	e.AddBaseSettings()
	e.AddSetting(&e.Size, "size", "s", "", 0, "RAM size code", false)
	return e
}

//
type EraseRAM struct {
	Runner
	//
	Size int
}

//
func (e *EraseRAM) Run() error {
	if err := e.ParseSettings(); err != nil {
		return err
	}
	return e.runJob(e.newFlasher(), flasher.OpEraseRAM,
		flasher.NewJob("", uint64(cart.RAMSizeForCode(e.Size))),
		"ERASING RAM...", "RAM ERASED", true)
}
