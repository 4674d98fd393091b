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

package image

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

//
func TestSplitNameTypeCompressor(t *testing.T) {

	tests := []struct {
		file                  string
		name, typ, compressor string
	}{
		{"tetris.gb", "tetris", TypeROM, CompressorNone},
		{"/roms/Zelda.GBC", "Zelda", TypeColorROM, CompressorNone},
		{"pokemon.sav.gz", "pokemon", TypeSave, CompressorGZip},
		{"tetris.gb.zip", "tetris", TypeROM, CompressorZip},
		{"tetris.gb.gzip", "tetris", TypeROM, CompressorGZip},
		{"mario.gb.7z", "mario", TypeROM, Compressor7Zip},
		{"super.mario.land.gb", "super.mario.land", TypeROM, CompressorNone},
		{"readme.txt", "readme.txt", "", CompressorNone},
		{"noext", "noext", "", CompressorNone},
	}

	for _, tc := range tests {
		name, typ, comp := SplitNameTypeCompressor(tc.file)
		if name != tc.name || typ != tc.typ || comp != tc.compressor {
			t.Errorf("%s: want (%s, %s, %s), got (%s, %s, %s)", tc.file,
				tc.name, tc.typ, tc.compressor, name, typ, comp)
		}
	}
}

//
func content() []byte {
	ret := make([]byte, 1000)
	for ix := range ret {
		ret[ix] = byte(ix % 13)
	}
	return ret
}

//
func writeGZip(t *testing.T, dir, file, entry string) string {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Name = entry
	if _, err := w.Write(content()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

//
func writeZip(t *testing.T, dir, file, entry string) string {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(entry)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(content()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

//
func TestOpen(t *testing.T) {

	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.gb")
	if err := os.WriteFile(plain, content(), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path       string
		name, typ  string
		compressor string
	}{
		{plain, "plain", TypeROM, CompressorNone},
		{writeGZip(t, dir, "game.gz", "tetris.gb"), "tetris", TypeROM, CompressorGZip},
		{writeGZip(t, dir, "save.sav.gz", ""), "save", TypeSave, CompressorGZip},
		{writeZip(t, dir, "zelda.zip", "Zelda.gbc"), "Zelda", TypeColorROM, CompressorZip},
	}

	for _, tc := range tests {

		r, err := Open(tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}

		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}

		if !bytes.Equal(data, content()) {
			t.Errorf("%s: content differs", tc.path)
		}
		if r.Name() != tc.name || r.Type() != tc.typ || r.Compressor() != tc.compressor {
			t.Errorf("%s: want (%s, %s, %s), got (%s, %s, %s)", tc.path,
				tc.name, tc.typ, tc.compressor, r.Name(), r.Type(), r.Compressor())
		}
	}
}

//
func TestUnsupportedCompressor(t *testing.T) {
	if _, err := NewReader(io.NopCloser(bytes.NewReader(nil)), "rar"); err == nil {
		t.Errorf("unsupported compressor not rejected")
	}
}

//
func TestEmptyZip(t *testing.T) {
	var buf bytes.Buffer
	if err := zip.NewWriter(&buf).Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(io.NopCloser(&buf), CompressorZip); err == nil {
		t.Errorf("empty zip not rejected")
	}
}

//
func TestUnpack(t *testing.T) {

	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.gb")
	if err := os.WriteFile(plain, content(), 0644); err != nil {
		t.Fatal(err)
	}

	path, cleanup, err := Unpack(plain)
	if err != nil {
		t.Fatal(err)
	}
	cleanup()
	if path != plain {
		t.Errorf("plain image was unpacked to %s", path)
	}
	if _, err := os.Stat(plain); err != nil {
		t.Errorf("cleanup removed plain image")
	}

	zipped := writeZip(t, dir, "game.gb.zip", "game.gb")
	path, cleanup, err = Unpack(zipped)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, content()) {
		t.Errorf("unpacked content differs")
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temporary file not removed")
	}
}
