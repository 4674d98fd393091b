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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/control"
	"github.com/xelalexv/gbshooper/pkg/repo"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve [-a|--address {address}] [-p|--port {port}]
      [-l|--library {dir} [-x|--index {dir}]]`,
		"serve the HTTP control API",
		`
Use the serve command to control the GB Shooper over HTTP, e.g. from a graphical
frontend. Operations are run as jobs, with only one job at a time. When a ROM
library is given, it is indexed for searching, and its images can be written
by reference.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddAddressSetting(":8888")
	s.AddSetting(&s.Library, "library", "l", "LIBRARY", nil,
		"root directory of the ROM library", false)
	s.AddSetting(&s.Index, "index", "x", "INDEX", ".gbshooper-index",
		"directory of the search index", false)

	return s
}

//
type Serve struct {
	Runner
	//
	Library string
	Index   string
}

//
func (s *Serve) Run() error {

	if err := s.ParseSettings(); err != nil {
		return err
	}

	var index *repo.Index
	if s.Library != "" {
		var err error
		if index, err = repo.NewIndex(s.Index, s.Library); err != nil {
			return err
		}
		defer index.Stop()
		if err := index.Start(); err != nil {
			return err
		}
	}

	api := control.NewAPIServer(s.Address, s.newFlasher(), index)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		if err := api.Stop(); err != nil {
			log.Errorf("error stopping API server: %v", err)
		}
	}()

	return api.Serve()
}
