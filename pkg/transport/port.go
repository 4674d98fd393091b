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

package transport

import (
	"fmt"
	"io"
	"time"
)

// Serial line parameters of the flash cart interface
const (
	BaudRate = 230400
	DataBits = 8
	StopBits = 1
)

// MaxChunkSize is the largest number of bytes handed to the serial driver in
// a single write.
const MaxChunkSize = 512

// Port is an open serial channel to the interface. Read returns 0 bytes and no
// error when the read timeout expires without any data arriving.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Opener opens a fresh Port for each operation.
type Opener interface {
	Open() (Port, error)
}

// Identity selects the USB device of the interface among all devices with
// matching vendor & product ID. Manufacturer and product string need to match
// exactly.
type Identity struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

// DefaultIdentity is the identity of the GB Shooper hardware, an FTDI FT232
// with custom strings.
var DefaultIdentity = Identity{
	VendorID:     0x0403,
	ProductID:    0x6001,
	Manufacturer: "ladecadence.net",
	Product:      "GB Flasher",
}

//
func (i Identity) String() string {
	return fmt.Sprintf("%04x:%04x '%s' '%s'",
		i.VendorID, i.ProductID, i.Manufacturer, i.Product)
}

//
func (i Identity) Matches(manufacturer, product string) bool {
	return i.Manufacturer == manufacturer && i.Product == product
}

// chunked splits writes into pieces of at most MaxChunkSize bytes
type chunked struct {
	Port
	max int
}

//
func (c *chunked) Write(p []byte) (int, error) {

	written := 0

	for written < len(p) {
		end := written + c.max
		if end > len(p) {
			end = len(p)
		}
		n, err := c.Port.Write(p[written:end])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}

	return written, nil
}
