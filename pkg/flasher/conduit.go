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
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/protocol"
	"github.com/xelalexv/gbshooper/pkg/transport"
)

// ErrTimeout is wrapped by all errors caused by the device not replying in
// time, so callers can tell them apart with errors.Is.
var ErrTimeout = errors.New("timeout waiting for reply")

// conduit is the command channel to the interface. It is only ever used by a
// single operation, from opening to closing the port.
type conduit struct {
	port        transport.Port
	readTimeout time.Duration
	byteDelay   time.Duration
}

//
func newConduit(p transport.Port, cfg Config) *conduit {
	return &conduit{
		port:        p,
		readTimeout: cfg.ReadTimeout,
		byteDelay:   cfg.ByteDelay,
	}
}

// sendByte writes a single byte and then waits for the inter byte delay, to
// give the interface's micro controller time to pick up the byte.
func (c *conduit) sendByte(b byte) error {
	if _, err := c.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("error sending byte: %v", err)
	}
	if c.byteDelay > 0 {
		time.Sleep(c.byteDelay)
	}
	return nil
}

// sendPacket sends type & data as two separate bytes.
func (c *conduit) sendPacket(p protocol.Packet) error {
	log.WithField("packet", p).Trace("sending packet")
	for _, b := range p.Encode() {
		if err := c.sendByte(b); err != nil {
			return err
		}
	}
	return nil
}

//
func (c *conduit) sendCommand(cmd protocol.Command) error {
	return c.sendPacket(protocol.NewCommand(cmd))
}

// sendBlock sends a full block of raw bytes in one go
func (c *conduit) sendBlock(block []byte) error {
	if len(block) != protocol.BlockSize {
		return fmt.Errorf("invalid block size: %d", len(block))
	}
	if _, err := c.port.Write(block); err != nil {
		return fmt.Errorf("error sending block: %v", err)
	}
	return nil
}

// receivePacket waits up to timeout for a complete packet. If the deadline
// passes with only one byte received, that byte is lost and the channel is out
// of step. This is acceptable since every failed exchange ends the operation
// and with it the connection.
func (c *conduit) receivePacket(timeout time.Duration) (protocol.Packet, protocol.Status) {

	var buf [protocol.PacketLength]byte

	st := c.receive(buf[:], timeout)
	if st != protocol.StatusOK {
		return protocol.Packet{}, st
	}

	p := protocol.Decode(buf)
	log.WithField("packet", p).Trace("received packet")
	return p, st
}

//
func (c *conduit) receiveByte(timeout time.Duration) (byte, protocol.Status) {
	var buf [1]byte
	st := c.receive(buf[:], timeout)
	return buf[0], st
}

// receive fills buf from the port, polling in slices of the read timeout
// until either buf is full or the deadline has passed.
func (c *conduit) receive(buf []byte, timeout time.Duration) protocol.Status {

	deadline := time.Now().Add(timeout)
	got := 0

	for got < len(buf) {

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.WithFields(log.Fields{
				"want": len(buf), "got": got, "timeout": timeout}).Debug(
				"receive timed out")
			return protocol.StatusTimeout
		}

		slice := c.readTimeout
		if remaining < slice {
			slice = remaining
		}
		if err := c.port.SetReadTimeout(slice); err != nil {
			log.Errorf("cannot set read timeout: %v", err)
			return protocol.StatusError
		}

		n, err := c.port.Read(buf[got:])
		got += n
		if err != nil {
			log.Errorf("error receiving: %v", err)
			return protocol.StatusError
		}
	}

	return protocol.StatusOK
}

// purge discards any input pending from previous exchanges
func (c *conduit) purge() error {
	return c.port.ResetInputBuffer()
}

// abort tries to bring the device back into idle state by sending END. The
// reason is returned as error.
func (c *conduit) abort(reason error) error {
	log.Warnf("aborting: %v", reason)
	if err := c.sendCommand(protocol.CmdEnd); err != nil {
		log.Errorf("could not send END: %v", err)
	}
	return reason
}

//
func (c *conduit) close() {
	if err := c.port.Close(); err != nil {
		log.Warnf("error closing port: %v", err)
	}
	log.Trace("port closed")
}

// replyError turns a non-OK receive status into an error
func replyError(st protocol.Status, what string) error {
	if st == protocol.StatusTimeout {
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	}
	return fmt.Errorf("%s: receive failed (%v)", what, st)
}

// StatusOf maps an operation error onto the status reported to callers.
func StatusOf(err error) protocol.Status {
	if err == nil {
		return protocol.StatusOK
	}
	if errors.Is(err, ErrTimeout) {
		return protocol.StatusTimeout
	}
	return protocol.StatusError
}
