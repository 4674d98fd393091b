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

package repo

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	log "github.com/sirupsen/logrus"
)

// Hit is a single image found in the library.
type Hit struct {
	Path     string  `json:"path"`
	Title    string  `json:"title,omitempty"`
	CartType string  `json:"cartType,omitempty"`
	Type     string  `json:"type"`
	Score    float64 `json:"score"`
}

// String gives the hit as library reference, followed by title and cart type
// if known.
func (h Hit) String() string {
	ret := SchemeLibrary + h.Path
	if h.Title != "" {
		ret = fmt.Sprintf("%-48s %s", ret, h.Title)
		if h.CartType != "" {
			ret = fmt.Sprintf("%s (%s)", ret, h.CartType)
		}
	}
	return ret
}

//
type SearchResult struct {
	Hits     []Hit  `json:"hits"`
	Total    uint64 `json:"total"`
	Complete bool   `json:"complete"`
}

// stored entry fields that are returned with each hit
var hitFields = []string{"Title", "CartType", "Type"}

// Search runs a query string search over file names, titles, and cart types.
// At most max hits are returned, best match first.
func (i *Index) Search(term string, max int) (*SearchResult, error) {

	if term = strings.TrimSpace(term); term == "" {
		return nil, fmt.Errorf("no search term")
	}
	if max < 1 {
		return nil, fmt.Errorf("invalid number of results: %d", max)
	}

	log.WithFields(log.Fields{"term": term, "max": max}).Debug("searching")

	req := bleve.NewSearchRequestOptions(
		bleve.NewQueryStringQuery(term), max, 0, false)
	req.Fields = hitFields

	res, err := i.index.Search(req)
	if err != nil {
		return nil, err
	}

	ret := &SearchResult{
		Hits:     make([]Hit, 0, len(res.Hits)),
		Total:    res.Total,
		Complete: res.Total <= uint64(len(res.Hits)),
	}
	for _, m := range res.Hits {
		ret.Hits = append(ret.Hits, toHit(m))
	}

	return ret, nil
}

//
func toHit(m *search.DocumentMatch) Hit {
	field := func(name string) string {
		if s, ok := m.Fields[name].(string); ok {
			return s
		}
		return ""
	}
	return Hit{
		Path:     m.ID,
		Title:    field("Title"),
		CartType: field("CartType"),
		Type:     field("Type"),
		Score:    m.Score,
	}
}
