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
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

//
const BackendJacobsa = "jacobsa"

// jacobsa/go-serial sets the read timeout once when opening the port, in
// multiples of 100ms
const jacobsaReadTimeout = 100 * time.Millisecond

//
func openJacobsa(name string) (Port, error) {

	options := serial.OpenOptions{
		PortName:              name,
		BaudRate:              BaudRate,
		DataBits:              DataBits,
		StopBits:              StopBits,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     false,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(jacobsaReadTimeout / time.Millisecond),
	}

	p, err := serial.Open(options)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"port": name, "baud": BaudRate, "backend": BackendJacobsa}).Debug(
		"serial port opened")

	return &jacobsaPort{rwc: p}, nil
}

//
type jacobsaPort struct {
	rwc io.ReadWriteCloser
}

// Read maps the EOF a tty reports when the inter character timeout expires
// without data onto an empty read.
func (j *jacobsaPort) Read(p []byte) (int, error) {
	n, err := j.rwc.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

//
func (j *jacobsaPort) Write(p []byte) (int, error) {
	return j.rwc.Write(p)
}

//
func (j *jacobsaPort) Close() error {
	return j.rwc.Close()
}

// SetReadTimeout is a no-op, the timeout is fixed at open time. Callers poll
// until their own deadline anyway.
func (j *jacobsaPort) SetReadTimeout(t time.Duration) error {
	return nil
}

// ResetInputBuffer drains whatever is pending on the line. The drain ends with
// the first read that times out empty.
func (j *jacobsaPort) ResetInputBuffer() error {
	buf := make([]byte, 64)
	for {
		n, err := j.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		log.WithField("bytes", n).Trace("discarded pending input")
	}
}
