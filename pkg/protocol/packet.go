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

package protocol

import (
	"fmt"
)

// Packet is the unit of a protocol exchange, in either direction.
type Packet struct {
	Type Type
	Data byte
}

//
func NewCommand(c Command) Packet {
	return Packet{Type: TypeCommand, Data: byte(c)}
}

//
func NewData(d byte) Packet {
	return Packet{Type: TypeData, Data: d}
}

//
func NewInfo(d byte) Packet {
	return Packet{Type: TypeInfo, Data: d}
}

// Encode returns the wire representation of the packet, type first.
func (p Packet) Encode() [PacketLength]byte {
	return [PacketLength]byte{byte(p.Type), p.Data}
}

//
func Decode(b [PacketLength]byte) Packet {
	return Packet{Type: Type(b[0]), Data: b[1]}
}

// Status interprets the data byte of this packet as a status value.
func (p Packet) Status() Status {
	return Status(p.Data)
}

// IsEnd checks whether the data byte carries the END sentinel.
func (p Packet) IsEnd() bool {
	return p.Data == byte(CmdEnd)
}

//
func (p Packet) String() string {
	return fmt.Sprintf("%v:0x%02X", p.Type, p.Data)
}

// Checksum is the unsigned 8 bit sum of all bytes in block, wrapping around.
func Checksum(block []byte) byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return sum
}
