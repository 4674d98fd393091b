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
	"strings"

	"github.com/google/gousb"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial/enumerator"
)

// Finder locates the serial port name of the device with a given identity.
type Finder interface {
	Find(id Identity) (string, error)
}

// USBFinder enumerates USB devices via libusb to check manufacturer & product
// strings, which the serial port enumeration does not reliably provide, and
// then resolves the serial number of the matching device to a port name.
type USBFinder struct{}

// replaced in tests
var newUSBContext = gousb.NewContext

//
func (f *USBFinder) Find(id Identity) (string, error) {

	serial, err := findSerialNumber(id)
	if err != nil {
		return "", err
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("error enumerating serial ports: %v", err)
	}

	return selectPort(ports, id, serial)
}

// selectPort picks the port of the device with the given serial number. If
// the device has no serial number, the port is only accepted when it is the
// single one with matching vendor & product ID, since another adapter with the
// same chip could otherwise be taken for the device.
func selectPort(ports []*enumerator.PortDetails, id Identity,
	serial string) (string, error) {

	var candidates []string

	for _, p := range ports {
		log.WithFields(log.Fields{
			"port":    p.Name,
			"usb":     p.IsUSB,
			"vid":     p.VID,
			"pid":     p.PID,
			"serial":  p.SerialNumber,
			"product": p.Product}).Trace("serial port")

		if !p.IsUSB || !matchesHexID(p.VID, id.VendorID) ||
			!matchesHexID(p.PID, id.ProductID) {
			continue
		}
		if serial != "" && p.SerialNumber == serial {
			log.WithFields(log.Fields{
				"port": p.Name, "serial": serial}).Debug("found interface")
			return p.Name, nil
		}
		candidates = append(candidates, p.Name)
	}

	if serial == "" {
		switch len(candidates) {
		case 1:
			log.WithField("port", candidates[0]).Debug(
				"found interface without serial number")
			return candidates[0], nil
		case 0:
		default:
			return "", fmt.Errorf(
				"device %s has no serial number, cannot choose among ports %s",
				id, strings.Join(candidates, ", "))
		}
	}

	return "", fmt.Errorf("no serial port for device %s", id)
}

// findSerialNumber returns the USB serial number of the first device matching
// id. Each device is opened only for reading its string descriptors. libusb
// initialization failure panics in gousb, this is turned into an error.
func findSerialNumber(id Identity) (serial string, err error) {

	defer func() {
		if r := recover(); r != nil {
			serial = ""
			err = fmt.Errorf("error initializing USB: %v", r)
		}
	}()

	ctx := newUSBContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(id.VendorID) &&
			desc.Product == gousb.ID(id.ProductID)
	})

	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	if err != nil && len(devs) == 0 {
		return "", fmt.Errorf("error enumerating USB devices: %v", err)
	}

	for _, d := range devs {

		man, err := d.Manufacturer()
		if err != nil {
			return "", fmt.Errorf("error reading manufacturer string: %v", err)
		}
		prod, err := d.Product()
		if err != nil {
			return "", fmt.Errorf("error reading product string: %v", err)
		}

		logger := log.WithFields(log.Fields{
			"manufacturer": man, "product": prod})

		if id.Matches(man, prod) {
			serial, err := d.SerialNumber()
			if err != nil {
				return "", fmt.Errorf(
					"error reading serial number of device %s: %v", id, err)
			}
			logger.WithField("serial", serial).Debug("found device")
			return serial, nil
		}

		logger.Debug("skipping device with non-matching strings")
	}

	return "", fmt.Errorf("no device %s found", id)
}

//
func matchesHexID(s string, id uint16) bool {
	return strings.EqualFold(strings.TrimPrefix(s, "0x"), fmt.Sprintf("%04x", id))
}
