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
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

//
const BackendBugst = "bugst"

//
func openBugst(name string) (Port, error) {

	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"port": name, "baud": BaudRate, "backend": BackendBugst}).Debug(
		"serial port opened")

	return &bugstPort{port: p}, nil
}

// bugstPort adapts a go.bug.st serial port, which has no flow control enabled
// unless asked for
type bugstPort struct {
	port serial.Port
}

//
func (b *bugstPort) Read(p []byte) (int, error) {
	return b.port.Read(p)
}

//
func (b *bugstPort) Write(p []byte) (int, error) {
	return b.port.Write(p)
}

//
func (b *bugstPort) Close() error {
	return b.port.Close()
}

//
func (b *bugstPort) SetReadTimeout(t time.Duration) error {
	return b.port.SetReadTimeout(t)
}

//
func (b *bugstPort) ResetInputBuffer() error {
	return b.port.ResetInputBuffer()
}
