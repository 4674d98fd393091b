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

/*
	Every exchange with the flash cart interface is made up of packets. A packet
	is two bytes on the wire, the packet type followed by a data byte. Bulk data
	for programming and reading flash/RAM is not wrapped in packets, but sent as
	raw blocks of BlockSize bytes after the device acknowledged the respective
	command.
*/

// BlockSize is the size of a bulk transfer block
const BlockSize = 256

// DeviceID is what the interface answers with as first reply to an INFO query
const DeviceID = 0x17

// PacketLength is the length of an encoded packet
const PacketLength = 2

//
type Type byte

const (
	TypeCommand Type = 0x11
	TypeData    Type = 0x22
	TypeStatus  Type = 0x33
	TypeInfo    Type = 0x44
)

//
func (t Type) String() string {
	switch t {
	case TypeCommand:
		return "COMMAND"
	case TypeData:
		return "DATA"
	case TypeStatus:
		return "STATUS"
	case TypeInfo:
		return "INFO"
	}
	return fmt.Sprintf("TYPE(0x%02X)", byte(t))
}

//
type Command byte

const (
	CmdID           Command = 0x11
	CmdReadFlash    Command = 0x22
	CmdReadRAM      Command = 0x33
	CmdProgramFlash Command = 0x44
	CmdProgramRAM   Command = 0x55
	CmdEraseFlash   Command = 0x66
	CmdEraseRAM     Command = 0x77
	CmdReadHeader   Command = 0x88
	CmdEnd          Command = 0xFF
)

var commandNames = map[Command]string{
	CmdID:           "ID",
	CmdReadFlash:    "READ_FLASH",
	CmdReadRAM:      "READ_RAM",
	CmdProgramFlash: "PROGRAM_FLASH",
	CmdProgramRAM:   "PROGRAM_RAM",
	CmdEraseFlash:   "ERASE_FLASH",
	CmdEraseRAM:     "ERASE_RAM",
	CmdReadHeader:   "READ_HEADER",
	CmdEnd:          "END",
}

//
func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CMD(0x%02X)", byte(c))
}

// Status is the outcome of an exchange or a whole operation. The values are
// also what the device sends as data byte of status packets.
type Status byte

const (
	StatusOK      Status = 0x14
	StatusError   Status = 0xEE
	StatusTimeout Status = 0xAA
)

//
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	}
	return fmt.Sprintf("STATUS(0x%02X)", byte(s))
}

// IsOK is true only for StatusOK. Note that StatusTimeout is not OK either.
func (s Status) IsOK() bool {
	return s == StatusOK
}
