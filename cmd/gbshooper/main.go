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

package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/run"
)

//
func main() {

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(os.Stderr)

	root := run.NewRoot()
	root.SetArgs(run.TranslateLegacy(os.Args[1:]))

	if err := root.Execute(); err != nil {
		if err != run.ErrNoCommand {
			if err != run.ErrOperation {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			fmt.Println(run.ErrOperation)
		}
		os.Exit(1)
	}
}
