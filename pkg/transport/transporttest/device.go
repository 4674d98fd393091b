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

// Package transporttest provides a simulated flash cart interface for tests.
package transporttest

import (
	"errors"
	"sync"
	"time"

	"github.com/xelalexv/gbshooper/pkg/protocol"
	"github.com/xelalexv/gbshooper/pkg/transport"
)

// what the device expects next from the host
const (
	expectPacket = iota
	expectBlock
	expectChecksum
)

/*
	Device simulates the flash cart interface. It is both Opener and Port. Host
	writes are parsed according to the protocol state, and replies are queued
	for the host to read. The exported fields script the device, and need to be
	set before it is used.
*/
type Device struct {
	// Mute devices accept everything but never reply
	Mute          bool
	DeviceID      byte
	FirmwareMajor byte
	FirmwareMinor byte
	Manufacturer  byte
	Chip          byte
	CartType      byte
	ROMSize       byte
	RAMSize       byte
	Title         []byte
	EraseReply    protocol.Status
	// Memory is what read commands return, zeros beyond its end
	Memory []byte
	// CorruptBlock is the index of the programmed block for which a wrong
	// checksum is echoed, -1 for none
	CorruptBlock int
	// RejectBlock is the index of the read block for which the host checksum
	// is rejected, -1 for none
	RejectBlock int

	mutex       sync.Mutex
	in          []byte
	out         []byte
	state       int
	programming bool
	erasing     bool
	readBlock   int
	lastSent    []byte
	readTimeout time.Duration

	commands []protocol.Command
	blocks   [][]byte
	opened   int
	closed   int
}

// NewDevice creates a device with a known flash chip and an empty cartridge.
func NewDevice() *Device {
	return &Device{
		DeviceID:      protocol.DeviceID,
		FirmwareMajor: 1,
		FirmwareMinor: 2,
		Manufacturer:  0x01,
		Chip:          0xa4,
		Title:         []byte("TETRIS"),
		EraseReply:    protocol.StatusOK,
		CorruptBlock:  -1,
		RejectBlock:   -1,
		readTimeout:   10 * time.Millisecond,
	}
}

// Open resets the protocol state, as unplugging & plugging the device would.
func (d *Device) Open() (transport.Port, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.opened++
	d.in = nil
	d.out = nil
	d.state = expectPacket
	d.programming = false
	d.erasing = false
	d.readBlock = 0
	return d, nil
}

//
func (d *Device) Read(p []byte) (int, error) {
	d.mutex.Lock()
	if len(d.out) > 0 {
		n := copy(p, d.out)
		d.out = d.out[n:]
		d.mutex.Unlock()
		return n, nil
	}
	wait := d.readTimeout
	d.mutex.Unlock()
	time.Sleep(wait)
	return 0, nil
}

//
func (d *Device) Write(p []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.in = append(d.in, p...)
	d.process()
	return len(p), nil
}

//
func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed++
	return nil
}

//
func (d *Device) SetReadTimeout(t time.Duration) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.readTimeout = t
	return nil
}

//
func (d *Device) ResetInputBuffer() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.out = nil
	return nil
}

// Inject queues raw bytes for the host to read.
func (d *Device) Inject(b ...byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.out = append(d.out, b...)
}

// Count returns how often the host sent cmd.
func (d *Device) Count(cmd protocol.Command) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	n := 0
	for _, c := range d.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

// LastCommand returns the last command the host sent, 0 if none.
func (d *Device) LastCommand() protocol.Command {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.commands) == 0 {
		return 0
	}
	return d.commands[len(d.commands)-1]
}

// Blocks returns the blocks programmed so far.
func (d *Device) Blocks() [][]byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	ret := make([][]byte, len(d.blocks))
	copy(ret, d.blocks)
	return ret
}

// Opened returns how often the device was opened.
func (d *Device) Opened() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.opened
}

// Closed returns how often the device was closed.
func (d *Device) Closed() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

//
func (d *Device) reply(t protocol.Type, data byte) {
	p := protocol.Packet{Type: t, Data: data}.Encode()
	d.out = append(d.out, p[:]...)
}

//
func (d *Device) replyStatus(st protocol.Status) {
	d.reply(protocol.TypeStatus, byte(st))
}

//
func (d *Device) process() {

	for {
		switch d.state {

		case expectPacket:
			if len(d.in) < protocol.PacketLength {
				return
			}
			p := protocol.Decode([protocol.PacketLength]byte{d.in[0], d.in[1]})
			d.in = d.in[protocol.PacketLength:]
			d.handlePacket(p)

		case expectBlock:
			if len(d.in) < protocol.BlockSize {
				return
			}
			block := make([]byte, protocol.BlockSize)
			copy(block, d.in)
			d.in = d.in[protocol.BlockSize:]
			d.blocks = append(d.blocks, block)
			check := protocol.Checksum(block)
			if len(d.blocks)-1 == d.CorruptBlock {
				check++
			}
			d.reply(protocol.TypeData, check)
			d.state = expectPacket

		case expectChecksum:
			if len(d.in) < protocol.PacketLength {
				return
			}
			p := protocol.Decode([protocol.PacketLength]byte{d.in[0], d.in[1]})
			d.in = d.in[protocol.PacketLength:]
			if p.Data == protocol.Checksum(d.lastSent) && d.readBlock != d.RejectBlock {
				d.replyStatus(protocol.StatusOK)
			} else {
				d.reply(protocol.TypeStatus, byte(protocol.CmdEnd))
			}
			d.readBlock++
			d.state = expectPacket
		}
	}
}

//
func (d *Device) handlePacket(p protocol.Packet) {

	if p.Type == protocol.TypeInfo {
		if !d.Mute {
			d.reply(protocol.TypeInfo, d.DeviceID)
			d.reply(protocol.TypeInfo, d.FirmwareMajor)
			d.reply(protocol.TypeInfo, d.FirmwareMinor)
		}
		return
	}

	if p.Type != protocol.TypeCommand {
		return
	}

	cmd := protocol.Command(p.Data)
	d.commands = append(d.commands, cmd)

	if d.Mute {
		return
	}

	switch cmd {

	case protocol.CmdID:
		d.reply(protocol.TypeData, d.Manufacturer)
		d.reply(protocol.TypeData, d.Chip)

	case protocol.CmdReadHeader:
		d.reply(protocol.TypeData, d.CartType)
		d.reply(protocol.TypeData, d.ROMSize)
		d.reply(protocol.TypeData, d.RAMSize)
		title := make([]byte, 16)
		copy(title, d.Title)
		for _, b := range title {
			d.reply(protocol.TypeData, b)
		}

	case protocol.CmdEraseFlash:
		d.replyStatus(d.EraseReply)

	case protocol.CmdProgramFlash, protocol.CmdProgramRAM:
		if !d.programming {
			d.programming = true
			d.replyStatus(protocol.StatusOK)
		}
		d.state = expectBlock

	case protocol.CmdReadFlash, protocol.CmdReadRAM:
		start := d.readBlock * protocol.BlockSize
		block := make([]byte, protocol.BlockSize)
		if start < len(d.Memory) {
			copy(block, d.Memory[start:])
		}
		d.lastSent = block
		d.out = append(d.out, block...)
		d.state = expectChecksum

	case protocol.CmdEraseRAM:
		if !d.erasing {
			d.erasing = true
			d.replyStatus(protocol.StatusOK)
		}
		d.replyStatus(protocol.StatusOK)

	case protocol.CmdEnd:
		d.programming = false
		d.erasing = false
		d.readBlock = 0
	}
}

// Absent is an Opener for which no device can be found.
type Absent struct {
	mutex    sync.Mutex
	attempts int
}

//
func (a *Absent) Open() (transport.Port, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.attempts++
	return nil, errors.New("no matching USB device")
}

// Attempts returns how often opening was tried.
func (a *Absent) Attempts() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.attempts
}
