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

package flasher

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/protocol"
)

// DeviceStatus is what the interface reports about itself.
type DeviceStatus struct {
	FirmwareMajor byte
	FirmwareMinor byte
}

//
func (s *DeviceStatus) String() string {
	return fmt.Sprintf("%d.%d", s.FirmwareMajor, s.FirmwareMinor)
}

// FlashID identifies the flash chip on the cartridge.
type FlashID struct {
	ManufacturerCode byte
	ChipCode         byte
	Manufacturer     string
	Chip             string
}

// Header is the cartridge header as read through the interface. Title is the
// raw title, which may contain garbage.
type Header struct {
	Title        string
	CartType     string
	ROMSize      string
	RAMSize      string
	ROMBytes     uint32
	RAMBytes     uint32
	CartTypeCode byte
	ROMSizeCode  byte
	RAMSizeCode  byte
	// Degraded is set when some of the codes were not recognized, but the
	// interface still responded to a status query afterwards
	Degraded bool
}

// Status queries interface ID and firmware version.
func (f *Flasher) Status() (*DeviceStatus, error) {
	f.acquire()
	defer f.release()
	return f.status()
}

//
func (f *Flasher) status() (*DeviceStatus, error) {

	c, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer c.close()

	if err := c.purge(); err != nil {
		log.Warnf("could not purge input: %v", err)
	}

	if err := c.sendPacket(protocol.NewInfo(0x00)); err != nil {
		return nil, err
	}

	var reply [3]protocol.Packet
	for ix := range reply {
		p, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return nil, replyError(st, fmt.Sprintf("status reply %d", ix))
		}
		reply[ix] = p
	}

	if reply[0].Data != protocol.DeviceID {
		return nil, fmt.Errorf("unexpected device ID 0x%02X, want 0x%02X",
			reply[0].Data, protocol.DeviceID)
	}

	ret := &DeviceStatus{
		FirmwareMajor: reply[1].Data,
		FirmwareMinor: reply[2].Data,
	}
	log.WithField("firmware", ret).Debug("STATUS")
	return ret, nil
}

// FlashID queries manufacturer & chip code of the flash chip. Unknown codes
// yield an error, but the returned FlashID is still filled in with
// placeholder names.
func (f *Flasher) FlashID() (*FlashID, error) {

	f.acquire()
	defer f.release()

	c, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer c.close()

	if err := c.sendCommand(protocol.CmdID); err != nil {
		return nil, err
	}

	var reply [2]protocol.Packet
	for ix := range reply {
		p, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return nil, replyError(st, fmt.Sprintf("ID reply %d", ix))
		}
		reply[ix] = p
	}

	ret := &FlashID{
		ManufacturerCode: reply[0].Data,
		ChipCode:         reply[1].Data,
	}

	var knownProd, knownChip bool
	ret.Manufacturer, knownProd = cart.Producer(ret.ManufacturerCode)
	ret.Chip, knownChip = cart.Chip(ret.ChipCode)

	log.WithFields(log.Fields{
		"manufacturer": ret.Manufacturer, "chip": ret.Chip}).Debug("ID")

	if !knownProd || !knownChip {
		return ret, fmt.Errorf("unknown flash chip: %s, %s",
			ret.Manufacturer, ret.Chip)
	}
	return ret, nil
}

/*
	ReadHeader reads the header of the inserted cartridge. The interface sends
	cart type, ROM size and RAM size codes, followed by the 16 title bytes.

	If any of the codes is unknown, this may just be an unusual cartridge, or
	no cartridge at all. The interface is then probed with a status query. If it
	responds, the header is returned as degraded, with the title cut off at its
	last byte. Otherwise an error is returned.
*/
func (f *Flasher) ReadHeader() (*Header, error) {

	f.acquire()
	defer f.release()

	hd, known, err := f.readHeader()
	if err != nil {
		return nil, err
	}

	if known {
		return hd, nil
	}

	log.WithFields(log.Fields{
		"type": hd.CartTypeCode,
		"rom":  hd.ROMSizeCode,
		"ram":  hd.RAMSizeCode}).Warn("unknown header codes, probing device")

	if _, err := f.status(); err != nil {
		return nil, fmt.Errorf("unknown header codes, device not responding: %v", err)
	}

	hd.Degraded = true
	return hd, nil
}

//
func (f *Flasher) readHeader() (*Header, bool, error) {

	c, err := f.connect()
	if err != nil {
		return nil, false, err
	}
	defer c.close()

	if err := c.sendCommand(protocol.CmdReadHeader); err != nil {
		return nil, false, err
	}

	var codes [3]byte
	for ix := range codes {
		p, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return nil, false, replyError(st, fmt.Sprintf("header code %d", ix))
		}
		codes[ix] = p.Data
	}

	title := make([]byte, cart.TitleLength)
	for ix := range title {
		p, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return nil, false, replyError(st, fmt.Sprintf("title byte %d", ix))
		}
		title[ix] = p.Data
	}

	hd := &Header{
		CartTypeCode: codes[0],
		ROMSizeCode:  codes[1],
		RAMSizeCode:  codes[2],
	}

	var knownType, knownROM, knownRAM bool
	hd.CartType, knownType = cart.CartType(hd.CartTypeCode)
	hd.ROMSize, hd.ROMBytes, knownROM = cart.ROMSize(hd.ROMSizeCode)
	hd.RAMSize, hd.RAMBytes, knownRAM = cart.RAMSize(hd.RAMSizeCode)

	known := knownType && knownROM && knownRAM
	if known {
		hd.Title = cart.TrimTitle(title)
	} else {
		hd.Title = cart.TrimTitle(title[:cart.TitleLength-1])
	}

	log.WithFields(log.Fields{
		"title": fmt.Sprintf("%+q", hd.Title),
		"type":  hd.CartType,
		"rom":   hd.ROMSize,
		"ram":   hd.RAMSize}).Debug("HEADER")

	return hd, known, nil
}
