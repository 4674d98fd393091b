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
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

// commands reachable with the legacy --{action} form
var legacyActions = map[string]bool{
	"version": true, "status": true, "id": true, "read-header": true,
	"erase-flash": true, "write-flash": true, "read-flash": true,
	"write-ram": true, "read-ram": true, "erase-ram": true, "help": true,
}

// ErrNoCommand is returned when gbshooper is called without a command. Help
// has been printed then.
var ErrNoCommand = errors.New("no command given")

// NewRoot creates the root command with all commands added.
func NewRoot() *cobra.Command {

	root := &cobra.Command{
		Use:           "gbshooper",
		Short:         "GB Shooper flash cart interface",
		Long:          "\ngbshooper reads & writes Game Boy flash cartridges via the GB Shooper USB interface.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return err
			}
			return ErrNoCommand
		},
	}

	root.AddCommand(
		&NewVersion().Command,
		&NewStatus().Command,
		&NewID().Command,
		&NewReadHeader().Command,
		&NewEraseFlash().Command,
		&NewWriteFlash().Command,
		&NewReadFlash().Command,
		&NewWriteRAM().Command,
		&NewReadRAM().Command,
		&NewEraseRAM().Command,
		&NewInfo().Command,
		&NewSearch().Command,
		&NewServe().Command,
	)

	return root
}

// TranslateLegacy turns a leading --{action} argument, as in
// gbshooper --read-flash --size 3 rom.gb, into the command name. All other
// arguments are passed on unchanged.
func TranslateLegacy(args []string) []string {

	if len(args) == 0 || !strings.HasPrefix(args[0], "--") {
		return args
	}

	action := strings.TrimPrefix(args[0], "--")
	if !legacyActions[action] {
		return args
	}

	ret := make([]string, len(args))
	copy(ret, args)
	ret[0] = action
	return ret
}
