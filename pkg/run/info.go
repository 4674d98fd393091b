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
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/image"
)

//
func NewInfo() *Info {

	i := &Info{}
	i.Runner = *NewRunner(
		"info [-c|--check] [-x|--hex {bytes}] {file}",
		"show the cartridge header of a ROM image",
		`
Use the info command to inspect the cartridge header of a ROM image file. The
file may be compressed. No device is needed for this.`,
		"", runnerHelpEpilogue, i.Run)
	i.Command.Args = cobra.ExactArgs(1)

	i.AddSetting(&i.LogLevel, "log-level", "", "LOG_LEVEL", "info",
		"log level: trace, debug, info, warn, error", false)
	i.AddSetting(&i.Check, "check", "c", "", false,
		"fail if the header checksum does not match", false)
	i.AddSetting(&i.Hex, "hex", "x", "", 0,
		"hex dump this many bytes of the image, starting at 0", false)

	return i
}

//
type Info struct {
	Runner
	//
	Check bool
	Hex   int
}

//
func (i *Info) Run() error {

	if err := i.ParseSettings(); err != nil {
		return err
	}

	rd, err := image.Open(i.arg(0))
	if err != nil {
		return err
	}
	defer rd.Close()

	hd, err := cart.ReadHeader(rd)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out(), "\nImage:     %s (%s)\n", rd.Name(), rd.Type())
	hd.Emit(i.out())

	if i.Hex > 0 {
		full, err := image.Open(i.arg(0))
		if err != nil {
			return err
		}
		defer full.Close()
		d := hex.Dumper(i.out())
		_, err = io.CopyN(d, full, int64(i.Hex))
		d.Close()
		fmt.Fprintln(i.out())
		if err != nil && err != io.EOF {
			return err
		}
	}

	if i.Check {
		return hd.Validate()
	}
	return nil
}
