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
	"bufio"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/protocol"
)

/*
	Programming flash or RAM

	For each block, the PROGRAM command is sent. Only the first one is answered
	with a status packet. Then the block is sent as raw bytes, and the device
	echoes the checksum it calculated. A mismatch ends the transfer, there are
	no retries. When the source is exhausted, END is sent.

	The last block is always sent in full. If the source ends within the block,
	the remainder of the block still holds the bytes of the previous block, or
	zeros if there was no previous block. The device firmware expects complete
	blocks, and the checksum covers the whole block as sent.
*/
func (f *Flasher) program(job *Job, cmd protocol.Command) error {

	src, err := os.Open(job.File())
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("source file %s is empty", job.File())
	}

	log.WithFields(log.Fields{
		"file": job.File(), "size": info.Size()}).Info("source file")

	c, err := f.connect()
	if err != nil {
		return err
	}
	defer c.close()

	return f.programBlocks(c, job, src, uint64(info.Size()), cmd)
}

//
func (f *Flasher) programBlocks(c *conduit, job *Job, src io.Reader,
	size uint64, cmd protocol.Command) error {

	if err := c.sendCommand(cmd); err != nil {
		return c.abort(err)
	}

	reply, st := c.receivePacket(f.config.ReplyTimeout)
	if st == protocol.StatusTimeout {
		return c.abort(replyError(st, fmt.Sprintf("%v not acknowledged", cmd)))
	}
	if st != protocol.StatusOK || reply.Status() != protocol.StatusOK {
		return c.abort(fmt.Errorf("%v rejected, reply %v", cmd, reply))
	}

	rd := bufio.NewReaderSize(src, 4*protocol.BlockSize)
	block := make([]byte, protocol.BlockSize)

	for count := uint64(0); ; count++ {

		job.setProgress(percent(count*protocol.BlockSize, size))

		n, err := io.ReadFull(rd, block)
		if err != nil && err != io.ErrUnexpectedEOF {
			return c.abort(fmt.Errorf("error reading source: %v", err))
		}

		check := protocol.Checksum(block)
		logger := log.WithFields(log.Fields{
			"block": count, "bytes": n, "checksum": check})
		logger.Debug("sending block")

		if err := c.sendBlock(block); err != nil {
			return c.abort(err)
		}

		reply, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return c.abort(replyError(st,
				fmt.Sprintf("no checksum for block %d", count)))
		}
		if reply.Data != check {
			return c.abort(fmt.Errorf(
				"checksum mismatch for block %d, want 0x%02X, got 0x%02X",
				count, check, reply.Data))
		}

		if _, err := rd.Peek(1); err == io.EOF {
			break
		} else if err != nil {
			return c.abort(fmt.Errorf("error reading source: %v", err))
		}

		if err := c.sendCommand(cmd); err != nil {
			return c.abort(err)
		}
	}

	return c.sendCommand(protocol.CmdEnd)
}

/*
	Reading flash or RAM

	The READ command is sent once per block. The device then sends the block
	as raw bytes. The host replies with the checksum in a DATA packet, and the
	device confirms with a status packet. If that carries the END sentinel, the
	device considered the checksum wrong. Only complete blocks are read, any
	remainder of size not filling a block is not transferred.
*/
func (f *Flasher) read(job *Job, cmd protocol.Command) error {

	dst, err := os.Create(job.File())
	if err != nil {
		return err
	}
	defer dst.Close()

	c, err := f.connect()
	if err != nil {
		return err
	}
	defer c.close()

	out := bufio.NewWriter(dst)
	err = f.readBlocks(c, job, out, job.Size(), cmd)
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

//
func (f *Flasher) readBlocks(c *conduit, job *Job, dst io.Writer,
	size uint64, cmd protocol.Command) error {

	blocks := size / protocol.BlockSize
	if rem := size % protocol.BlockSize; rem > 0 {
		log.WithField("bytes", rem).Warn(
			"size is not a multiple of block size, remainder is not read")
	}

	if err := c.sendCommand(cmd); err != nil {
		return c.abort(err)
	}

	block := make([]byte, protocol.BlockSize)

	for count := uint64(0); count < blocks; count++ {

		job.setProgress(percent(count*protocol.BlockSize, size))

		for ix := range block {
			b, st := c.receiveByte(f.config.ReplyTimeout)
			if st != protocol.StatusOK {
				return c.abort(replyError(st,
					fmt.Sprintf("incomplete block %d, got %d bytes", count, ix)))
			}
			block[ix] = b
		}

		if _, err := dst.Write(block); err != nil {
			return c.abort(fmt.Errorf("error writing destination: %v", err))
		}

		check := protocol.Checksum(block)
		log.WithFields(log.Fields{
			"block": count, "checksum": check}).Debug("received block")

		if err := c.sendPacket(protocol.NewData(check)); err != nil {
			return c.abort(err)
		}

		reply, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK {
			return c.abort(replyError(st,
				fmt.Sprintf("checksum of block %d not confirmed", count)))
		}
		if reply.IsEnd() {
			return c.abort(fmt.Errorf(
				"device rejected checksum 0x%02X of block %d", check, count))
		}

		if count < blocks-1 {
			if err := c.sendCommand(cmd); err != nil {
				return c.abort(err)
			}
		}
	}

	return c.sendCommand(protocol.CmdEnd)
}

/*
	Erasing RAM

	The ERASE_RAM command is acknowledged with a status packet. After that, the
	device reports a status packet for each chunk of the RAM it cleared, and the
	host requests the next chunk with another ERASE_RAM. There are size/256 + 1
	of these iterations.
*/
func (f *Flasher) eraseRAM(job *Job) error {

	c, err := f.connect()
	if err != nil {
		return err
	}
	defer c.close()

	return f.eraseRAMChunks(c, job, job.Size())
}

//
func (f *Flasher) eraseRAMChunks(c *conduit, job *Job, size uint64) error {

	if err := c.sendCommand(protocol.CmdEraseRAM); err != nil {
		return c.abort(err)
	}

	reply, st := c.receivePacket(f.config.ReplyTimeout)
	if st == protocol.StatusTimeout {
		return c.abort(replyError(st, "ERASE_RAM not acknowledged"))
	}
	if st != protocol.StatusOK || reply.Status() != protocol.StatusOK {
		return c.abort(fmt.Errorf("ERASE_RAM rejected, reply %v", reply))
	}

	iterations := size/protocol.BlockSize + 1

	for count := uint64(0); count < iterations; count++ {

		job.setProgress(percent(count*protocol.BlockSize, size))

		reply, st := c.receivePacket(f.config.ReplyTimeout)
		if st != protocol.StatusOK || reply.Status() != protocol.StatusOK {
			return c.abort(fmt.Errorf(
				"erasing chunk %d failed, status %v, reply %v", count, st, reply))
		}
		log.WithField("chunk", count).Debug("erased")

		if err := c.sendCommand(protocol.CmdEraseRAM); err != nil {
			return c.abort(err)
		}
	}

	return c.sendCommand(protocol.CmdEnd)
}

/*
	Erasing flash

	The flash chip is erased as a whole by the interface, which replies with a
	single status packet when done. This takes a while, so there is a separate,
	longer timeout for it. There is no progress information.
*/
func (f *Flasher) eraseFlash(job *Job) error {

	c, err := f.connect()
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.sendCommand(protocol.CmdEraseFlash); err != nil {
		return c.abort(err)
	}

	reply, st := c.receivePacket(f.config.EraseTimeout)
	if st != protocol.StatusOK {
		return c.abort(replyError(st, "flash erase not confirmed"))
	}
	if reply.Status() != protocol.StatusOK {
		return c.abort(fmt.Errorf("flash erase failed, reply %v", reply))
	}

	return nil
}
