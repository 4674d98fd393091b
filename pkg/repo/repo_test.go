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
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

//
func makeROM(title string, typ byte) []byte {
	img := make([]byte, 0x8000)
	copy(img[0x134:], title)
	img[0x147] = typ
	return img
}

//
func writeFile(t *testing.T, path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

//
func TestIndex(t *testing.T) {

	base := t.TempDir()
	lib := filepath.Join(base, "library")

	writeFile(t, filepath.Join(lib, "puzzle", "tetris.gb"), makeROM("TETRIS", 0x00))
	writeFile(t, filepath.Join(lib, "adventure", "zelda_dx.gbc"),
		makeROM("ZELDA", 0x1b))
	writeFile(t, filepath.Join(lib, "adventure", "zelda_dx.sav"), make([]byte, 8192))
	writeFile(t, filepath.Join(lib, "readme.txt"), []byte("not an image"))

	ix, err := NewIndex(filepath.Join(base, "index"), lib)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Stop()

	if err := ix.Start(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		term string
		hits []string
	}{
		{"tetris", []string{filepath.Join("puzzle", "tetris.gb")}},
		{"Title:zelda", []string{filepath.Join("adventure", "zelda_dx.gbc")}},
		{"Type:sav", []string{filepath.Join("adventure", "zelda_dx.sav")}},
		{"readme", nil},
	}

	for _, tc := range tests {
		res, err := ix.Search(tc.term, 10)
		if err != nil {
			t.Fatalf("%s: %v", tc.term, err)
		}
		if len(res.Hits) != len(tc.hits) {
			t.Errorf("%s: want hits %v, got %v", tc.term, tc.hits, res.Hits)
			continue
		}
		for ix, h := range tc.hits {
			if res.Hits[ix].Path != h {
				t.Errorf("%s: want hit %s, got %s", tc.term, h, res.Hits[ix].Path)
			}
		}
	}

	res, err := ix.Search("Title:zelda", 10)
	if err != nil || len(res.Hits) != 1 {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	want := Hit{Path: filepath.Join("adventure", "zelda_dx.gbc"), Title: "ZELDA",
		CartType: "ROM+MBC5+RAM+BATT", Type: "gbc"}
	if got := res.Hits[0]; got.Path != want.Path || got.Title != want.Title ||
		got.CartType != want.CartType || got.Type != want.Type {
		t.Errorf("want hit %+v, got %+v", want, got)
	}
	if s := res.Hits[0].String(); !strings.HasPrefix(s, "lib://adventure") ||
		!strings.HasSuffix(s, "ZELDA (ROM+MBC5+RAM+BATT)") {
		t.Errorf("unexpected hit line: %s", s)
	}

	res, err = ix.Search("zelda", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Complete || res.Total != 2 {
		t.Errorf("result not limited: %+v", res)
	}

	if _, err := ix.Search("  ", 10); err == nil {
		t.Errorf("empty search term not rejected")
	}
}

//
func TestIndexFollowsLibrary(t *testing.T) {

	base := t.TempDir()
	lib := filepath.Join(base, "library")
	writeFile(t, filepath.Join(lib, "tetris.gb"), makeROM("TETRIS", 0x00))

	ix, err := NewIndex(filepath.Join(base, "index"), lib)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Stop()
	ix.quiet = 50 * time.Millisecond
	if err := ix.Start(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(lib, "kirby.gb"), makeROM("KIRBY", 0x01))

	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := ix.Search("kirby", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Hits) == 1 && res.Hits[0].Path == "kirby.gb" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("new image not found: %+v", res)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := os.Remove(filepath.Join(lib, "tetris.gb")); err != nil {
		t.Fatal(err)
	}

	for {
		res, err := ix.Search("tetris", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Hits) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("removed image still found: %+v", res)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

//
func TestIndexReopen(t *testing.T) {

	base := t.TempDir()
	lib := filepath.Join(base, "library")
	writeFile(t, filepath.Join(lib, "tetris.gb"), makeROM("TETRIS", 0x00))
	writeFile(t, filepath.Join(lib, "mario.gb"), makeROM("MARIO", 0x01))

	ix, err := NewIndex(filepath.Join(base, "index"), lib)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Start(); err != nil {
		t.Fatal(err)
	}
	ix.Stop()

	if err := os.Remove(filepath.Join(lib, "mario.gb")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	ix, err = NewIndex(filepath.Join(base, "index"), lib)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Stop()
	if err := ix.Start(); err != nil {
		t.Fatal(err)
	}

	if res, err := ix.Search("mario", 10); err != nil || len(res.Hits) != 0 {
		t.Errorf("removed image not pruned: %+v, %v", res, err)
	}
	if res, err := ix.Search("tetris", 10); err != nil || len(res.Hits) != 1 {
		t.Errorf("image lost on reopen: %+v, %v", res, err)
	}
}

//
func TestResolve(t *testing.T) {

	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "puzzle", "tetris.gb"), []byte("tetris"))

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/roms/mario.gb" {
				http.NotFound(w, req)
				return
			}
			w.Write([]byte("mario"))
		}))
	defer srv.Close()

	tests := []struct {
		ref  string
		want string
		fail bool
	}{
		{ref: "lib://puzzle/tetris.gb", want: "tetris"},
		{ref: "lib://puzzle/../puzzle/tetris.gb", want: "tetris"},
		{ref: "lib://../../etc/passwd", fail: true},
		{ref: "lib://missing.gb", fail: true},
		{ref: srv.URL + "/roms/mario.gb", want: "mario"},
		{ref: srv.URL + "/roms/missing.gb", fail: true},
		{ref: "ftp://somewhere/rom.gb", fail: true},
	}

	for _, tc := range tests {

		rc, err := Resolve(tc.ref, lib)
		if tc.fail {
			if err == nil {
				rc.Close()
				t.Errorf("%s: no error", tc.ref)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.ref, err)
			continue
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Errorf("%s: %v", tc.ref, err)
		} else if string(data) != tc.want {
			t.Errorf("%s: want %s, got %s", tc.ref, tc.want, data)
		}
	}

	if _, err := Resolve("lib://tetris.gb", ""); err == nil ||
		!strings.Contains(err.Error(), "no ROM library") {
		t.Errorf("missing library not reported: %v", err)
	}
}
