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
	"io"
	"strings"

	"github.com/xelalexv/gbshooper/pkg/util"
)

//
func NewVersion() *Version {
	v := &Version{}
	v.Runner = *NewRunner(
		"version [-d|--device] [-a|--address {address}]",
		"get software & firmware version info",
		`
Use the version command to print the software version. With --device, the
firmware version of the GB Shooper is queried as well. With --address, version
info of an API server is shown.`,
		"", runnerHelpEpilogue, v.Run)
	v.AddBaseSettings()
	v.AddAddressSetting("")
	v.AddSetting(&v.Device, "device", "d", "", false,
		"also get the firmware version from the device", false)
	return v
}

//
type Version struct {
	Runner
	//
	Device bool
}

//
func (v *Version) Run() error {

	if err := v.ParseSettings(); err != nil {
		return err
	}

	var remote string

	if v.Address != "" {
		resp, err := v.apiCall("GET", "/version", false, nil)
		if err != nil {
			remote = "server:     not reachable\n"
		} else {
			defer resp.Close()
			buf := new(strings.Builder)
			if _, err = io.Copy(buf, resp); err != nil {
				return err
			}
			remote = buf.String()
		}

	} else if v.Device {
		if st, err := v.newFlasher().Status(); err != nil {
			remote = "firmware:   device not reachable\n"
		} else {
			remote = fmt.Sprintf("firmware:   %s\n", st)
		}
	}

	PrintVersion(v.out(), remote)
	return nil
}

//
func PrintVersion(w io.Writer, remote string) {
	fmt.Fprintf(w, `
   ___ ___   ___ _
  / __| _ ) / __| |_  ___  ___ _ __  ___ _ _
 | (_ | _ \ \__ \ ' \/ _ \/ _ \ '_ \/ -_) '_|
  \___|___/ |___/_||_\___/\___/ .__/\___|_|
                              |_|

GB Shooper v%s
`, util.GBShooperVersion)
	if remote != "" {
		fmt.Fprintf(w, "%s", remote)
	}
	fmt.Fprintln(w)
}
