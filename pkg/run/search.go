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
	"net/url"

	"github.com/xelalexv/gbshooper/pkg/repo"
)

//
func NewSearch() *Search {

	s := &Search{}
	s.Runner = *NewRunner(
		`search -t|--term {search term} [-i|--items {max results}]
      [-l|--library {dir} -x|--index {dir}] [-a|--address {address}]`,
		"search for ROM images in a library",
		`
Use the search command to find ROM images in a library. With --library, the
library is indexed locally, and the index is kept in the --index directory. Without
it, the search is run by the API server at --address.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddSetting(&s.LogLevel, "log-level", "", "LOG_LEVEL", "warn",
		"log level: trace, debug, info, warn, error", false)
	s.AddAddressSetting(":8888")
	s.AddSetting(&s.Term, "term", "t", "", nil,
		"search term; file names, titles, and cart types are searched", true)
	s.AddSetting(&s.Items, "items", "i", "", 100,
		"max number of search results to return", false)
	s.AddSetting(&s.Library, "library", "l", "LIBRARY", nil,
		"root directory of the ROM library", false)
	s.AddSetting(&s.Index, "index", "x", "INDEX", ".gbshooper-index",
		"directory of the search index", false)

	return s
}

//
type Search struct {
	Runner
	//
	Term    string
	Items   int
	Library string
	Index   string
}

//
func (s *Search) Run() error {

	if err := s.ParseSettings(); err != nil {
		return err
	}

	if s.Library != "" {
		return s.searchLocal()
	}

	resp, err := s.apiCall("GET",
		fmt.Sprintf("/search?items=%d&term=%s", s.Items, url.QueryEscape(s.Term)),
		false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	fmt.Fprintln(s.out())
	_, err = io.Copy(s.out(), resp)
	return err
}

//
func (s *Search) searchLocal() error {

	index, err := repo.NewIndex(s.Index, s.Library)
	if err != nil {
		return err
	}
	defer index.Stop()

	if err := index.Start(); err != nil {
		return err
	}

	res, err := index.Search(s.Term, s.Items)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out())
	for _, h := range res.Hits {
		fmt.Fprintln(s.out(), h)
	}
	fmt.Fprintf(s.out(), "\ntotal hits: %d", res.Total)
	if !res.Complete {
		fmt.Fprintf(s.out(), ", showing first %d", len(res.Hits))
	}
	fmt.Fprintln(s.out())

	return nil
}
