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
	"fmt"
)

// sizes in bytes
const (
	S0K   = 0
	S2K   = 2048
	S8K   = 8192
	S32K  = 32768
	S64K  = 65536
	S128K = 131072
	S256K = 262144
	S512K = 524288
	S1M   = 1048576
	S2M   = 2097152
	S4M   = 4194304
	S1_1M = 1179648
	S1_2M = 1310720
	S1_5M = 1572864
)

//
type sizeEntry struct {
	name  string
	bytes uint32
}

// flash chip manufacturers, by JEDEC code
var producers = map[byte]string{
	0x01: "AMD", 0x02: "AMI", 0xe5: "Analog Devices",
	0x1f: "Atmel", 0x31: "Catalyst", 0x34: "Cypress",
	0x04: "Fujitsu", 0xe0: "Goldstar", 0x07: "Hitachi",
	0xad: "Hyundai", 0xc1: "Infineon", 0x89: "Intel",
	0xd5: "Intg. Silicon Systems", 0xc2: "Macronix", 0x29: "Microchip",
	0x2c: "Micron", 0x1c: "Mitsubishi", 0x10: "Nec",
	0x15: "Philips Semiconductors", 0xce: "Samsung", 0x62: "Sanyo",
	0x20: "SGS Thomson", 0xb0: "Sharp", 0xbf: "SST",
	0x97: "Texas Instruments", 0x98: "Toshiba", 0xda: "Winbond",
	0x19: "Xicor", 0xc9: "Xilinx",
}

// flash chips
var chips = map[byte]string{
	0xa4: "29F040B",
	0xad: "AM29F016",
}

// cartridge types as found at 0x147 in the ROM header
var cartTypes = map[byte]string{
	0x00: "ROM ONLY", 0x01: "ROM+MBC1",
	0x02: "ROM+MBC1+RAM", 0x03: "ROM+MBC1+RAM+BATT",
	0x05: "ROM+MBC2", 0x06: "ROM+MBC2+BATTERY",
	0x08: "ROM+RAM", 0x09: "ROM+RAM+BATTERY",
	0x0b: "ROM+MMMO1", 0x0c: "ROM+MMMO1+SRAM",
	0x0d: "ROM+MMMO1+SRAM+BATT", 0x0f: "ROM+MBC3+TIMER+BATT",
	0x10: "ROM+MBC3+TIMER+RAM+BAT", 0x11: "ROM+MBC3",
	0x12: "ROM+MBC3+RAM", 0x13: "ROM+MBC3+RAM+BATT",
	0x19: "ROM+MBC5", 0x1a: "ROM+MBC5+RAM",
	0x1b: "ROM+MBC5+RAM+BATT", 0x1c: "ROM+MBC5+RUMBLE",
	0x1d: "ROM+MBC5+RUMBLE+SRAM", 0x1e: "ROM+MBC5+RUMBLE+SRAM+BATT",
	0x1f: "Pocket Camera", 0xfd: "Bandai TAMA5",
	0xfe: "Hudson HuC-3",
}

// ROM sizes as found at 0x148 in the ROM header
var romSizes = map[byte]sizeEntry{
	0x00: {"32KB", S32K}, 0x01: {"64KB", S64K}, 0x02: {"128KB", S128K},
	0x03: {"256KB", S256K}, 0x04: {"512KB", S512K}, 0x05: {"1MB", S1M},
	0x06: {"2MB", S2M}, 0x07: {"4MB", S4M}, 0x52: {"1.1MB", S1_1M},
	0x53: {"1.2MB", S1_2M}, 0x54: {"1.5MB", S1_5M},
}

// RAM sizes as found at 0x149 in the ROM header
var ramSizes = map[byte]sizeEntry{
	0x00: {"0KB", S0K}, 0x01: {"2KB", S2K}, 0x02: {"8KB", S8K},
	0x03: {"32KB", S32K}, 0x04: {"128KB", S128K},
}

// Producer returns the name of the flash chip manufacturer with the given
// code, and whether the code is known.
func Producer(code byte) (string, bool) {
	if n, ok := producers[code]; ok {
		return n, true
	}
	return fmt.Sprintf("Unknown manufacturer: 0x%02X", code), false
}

//
func Chip(code byte) (string, bool) {
	if n, ok := chips[code]; ok {
		return n, true
	}
	return fmt.Sprintf("Unknown flash ID: 0x%02X", code), false
}

//
func CartType(code byte) (string, bool) {
	if n, ok := cartTypes[code]; ok {
		return n, true
	}
	return "Unknown cart type", false
}

// ROMSize returns name and byte count for a ROM size code. Byte count is 0 for
// unknown codes.
func ROMSize(code byte) (string, uint32, bool) {
	if e, ok := romSizes[code]; ok {
		return e.name, e.bytes, true
	}
	return "Unknown ROM size", 0, false
}

//
func RAMSize(code byte) (string, uint32, bool) {
	if e, ok := ramSizes[code]; ok {
		return e.name, e.bytes, true
	}
	return "Unknown RAM size", 0, false
}

// ROM & RAM size selection on the command line, 1-based
var romSizeCodes = []uint32{S32K, S64K, S128K, S256K, S512K, S1M, S2M, S4M}
var ramSizeCodes = []uint32{S8K, S32K, S1M}

// ROMSizeForCode translates a command line ROM size code (1=32KB ... 8=4MB)
// into bytes. Any other code yields the 32KB default.
func ROMSizeForCode(c int) uint32 {
	if 1 <= c && c <= len(romSizeCodes) {
		return romSizeCodes[c-1]
	}
	return S32K
}

// RAMSizeForCode translates a command line RAM size code (1=8KB, 2=32KB,
// 3=1MB) into bytes. Any other code yields the 8KB default.
func RAMSizeForCode(c int) uint32 {
	if 1 <= c && c <= len(ramSizeCodes) {
		return ramSizeCodes[c-1]
	}
	return S8K
}

//
func ROMSizeCodeHelp() string {
	return "1=32KB, 2=64KB, 3=128KB, 4=256KB, 5=512KB, 6=1MB, 7=2MB, 8=4MB"
}

//
func RAMSizeCodeHelp() string {
	return "1=8KB, 2=32KB, 3=1MB"
}
