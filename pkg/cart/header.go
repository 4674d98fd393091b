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

package cart

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// HeaderEnd is the offset right behind the cartridge header within a ROM image
const HeaderEnd = 0x150

// TitleLength is the length of the title field in the cartridge header
const TitleLength = 16

// offset & length of header fields within a ROM image
var headerIndex = map[string][2]int{
	"entry":    {0x100, 4},
	"logo":     {0x104, 48},
	"title":    {0x134, TitleLength},
	"cgb":      {0x143, 1},
	"type":     {0x147, 1},
	"rom":      {0x148, 1},
	"ram":      {0x149, 1},
	"version":  {0x14c, 1},
	"checked":  {0x134, 25},
	"checksum": {0x14d, 1},
	"global":   {0x14e, 2},
}

// Header is the cartridge header of a ROM image
type Header struct {
	data []byte
}

// ReadHeader reads the cartridge header from the start of a ROM image.
func ReadHeader(r io.Reader) (*Header, error) {
	data := make([]byte, HeaderEnd)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("image too short for cartridge header: %v", err)
	}
	return &Header{data: data}, nil
}

//
func (h *Header) field(name string) []byte {
	ix := headerIndex[name]
	return h.data[ix[0] : ix[0]+ix[1]]
}

//
func (h *Header) byteAt(name string) byte {
	return h.field(name)[0]
}

// Title returns the title with NUL padding removed. Newer cartridges use the
// last bytes of the title field for the manufacturer code & CGB flag, so this
// may contain non-printable characters.
func (h *Header) Title() string {
	return TrimTitle(h.field("title"))
}

//
func (h *Header) CartTypeCode() byte {
	return h.byteAt("type")
}

//
func (h *Header) ROMSizeCode() byte {
	return h.byteAt("rom")
}

//
func (h *Header) RAMSizeCode() byte {
	return h.byteAt("ram")
}

//
func (h *Header) IsColor() bool {
	return h.byteAt("cgb")&0x80 != 0
}

//
func (h *Header) Version() byte {
	return h.byteAt("version")
}

//
func (h *Header) Checksum() byte {
	return h.byteAt("checksum")
}

// CalculateChecksum computes the header checksum the boot ROM verifies.
func (h *Header) CalculateChecksum() byte {
	var x byte
	for _, b := range h.field("checked") {
		x = x - b - 1
	}
	return x
}

//
func (h *Header) GlobalChecksum() uint16 {
	g := h.field("global")
	return uint16(g[0])<<8 | uint16(g[1])
}

//
func (h *Header) Validate() error {
	if want, got := h.Checksum(), h.CalculateChecksum(); want != got {
		return fmt.Errorf(
			"invalid cartridge header check sum, want 0x%02X, got 0x%02X",
			want, got)
	}
	return nil
}

// ROMBytes is the ROM size in bytes as stated by the header, 0 if unknown
func (h *Header) ROMBytes() uint32 {
	_, b, _ := ROMSize(h.ROMSizeCode())
	return b
}

//
func (h *Header) RAMBytes() uint32 {
	_, b, _ := RAMSize(h.RAMSizeCode())
	return b
}

//
func (h *Header) Emit(w io.Writer) {

	typ, _ := CartType(h.CartTypeCode())
	rom, _, _ := ROMSize(h.ROMSizeCode())
	ram, _, _ := RAMSize(h.RAMSizeCode())

	check := "ok"
	if err := h.Validate(); err != nil {
		check = err.Error()
	}

	fmt.Fprintf(w, "\nTitle:     %+q\n", h.Title())
	fmt.Fprintf(w, "Cart type: %s (0x%02X)\n", typ, h.CartTypeCode())
	fmt.Fprintf(w, "ROM size:  %s (0x%02X)\n", rom, h.ROMSizeCode())
	fmt.Fprintf(w, "RAM size:  %s (0x%02X)\n", ram, h.RAMSizeCode())
	fmt.Fprintf(w, "Color:     %v\n", h.IsColor())
	fmt.Fprintf(w, "Version:   %d\n", h.Version())
	fmt.Fprintf(w, "Checksum:  %s\n\n", check)

	d := hex.Dumper(w)
	defer d.Close()
	d.Write(h.data[headerIndex["title"][0]:HeaderEnd])
}

// TrimTitle turns raw title bytes into a string, cut at the first NUL.
func TrimTitle(raw []byte) string {
	s := string(raw)
	if ix := strings.IndexByte(s, 0); ix > -1 {
		s = s[:ix]
	}
	return s
}
