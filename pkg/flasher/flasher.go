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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/protocol"
	"github.com/xelalexv/gbshooper/pkg/transport"
)

// Config holds the timing parameters of the protocol.
type Config struct {
	// ReplyTimeout is how long to wait for a reply packet or data byte
	ReplyTimeout time.Duration
	// EraseTimeout is how long to wait for the flash erase to complete
	EraseTimeout time.Duration
	// ReadTimeout is the slice in which the port is polled for data
	ReadTimeout time.Duration
	// ByteDelay is the pause after each single byte sent
	ByteDelay time.Duration
}

//
func DefaultConfig() Config {
	return Config{
		ReplyTimeout: 3 * time.Second,
		EraseTimeout: 60 * time.Second,
		ReadTimeout:  100 * time.Millisecond,
		ByteDelay:    50 * time.Microsecond,
	}
}

//
type Option func(*Config)

//
func WithReplyTimeout(t time.Duration) Option {
	return func(c *Config) {
		c.ReplyTimeout = t
	}
}

//
func WithEraseTimeout(t time.Duration) Option {
	return func(c *Config) {
		c.EraseTimeout = t
	}
}

//
func WithReadTimeout(t time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = t
	}
}

//
func WithByteDelay(d time.Duration) Option {
	return func(c *Config) {
		c.ByteDelay = d
	}
}

// Operation identifies one of the long running operations.
type Operation int

const (
	OpEraseFlash Operation = iota
	OpProgramFlash
	OpReadFlash
	OpEraseRAM
	OpProgramRAM
	OpReadRAM
)

var operationNames = []string{
	"erase flash", "program flash", "read flash",
	"erase RAM", "program RAM", "read RAM",
}

//
func (o Operation) String() string {
	if 0 <= int(o) && int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

/*
	Flasher runs operations against the flash cart interface. There is no
	session with the device. Each operation opens its own connection and closes
	it again before it returns, whether successful or not. Operations are
	serialized, so there is never more than one open connection.
*/
type Flasher struct {
	opener transport.Opener
	config Config
	lock   chan bool
}

//
func New(o transport.Opener, opts ...Option) *Flasher {

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Flasher{
		opener: o,
		config: cfg,
		lock:   make(chan bool, 1),
	}
}

//
func (f *Flasher) Config() Config {
	return f.config
}

// IsBusy tells whether an operation is currently using the device.
func (f *Flasher) IsBusy() bool {
	return len(f.lock) > 0
}

//
func (f *Flasher) acquire() {
	f.lock <- true
	log.Trace("device acquired")
}

//
func (f *Flasher) release() {
	select {
	case <-f.lock:
		log.Trace("device released")
	default:
		log.Debug("device was already released")
	}
}

// connect opens a fresh connection to the device
func (f *Flasher) connect() (*conduit, error) {
	p, err := f.opener.Open()
	if err != nil {
		log.Errorf("cannot open device: %v", err)
		return nil, fmt.Errorf("error opening device: %v", err)
	}
	return newConduit(p, f.config), nil
}

// Start runs op for job in the background. Callers poll the job until it is
// done.
func (f *Flasher) Start(op Operation, job *Job) {
	go f.Run(op, job)
}

// Run runs op for job and returns when the job is done.
func (f *Flasher) Run(op Operation, job *Job) {

	var fn func(*Job) error

	switch op {
	case OpEraseFlash:
		fn = f.eraseFlash
	case OpProgramFlash:
		fn = func(j *Job) error { return f.program(j, protocol.CmdProgramFlash) }
	case OpReadFlash:
		fn = func(j *Job) error { return f.read(j, protocol.CmdReadFlash) }
	case OpEraseRAM:
		fn = f.eraseRAM
	case OpProgramRAM:
		fn = func(j *Job) error { return f.program(j, protocol.CmdProgramRAM) }
	case OpReadRAM:
		fn = func(j *Job) error { return f.read(j, protocol.CmdReadRAM) }
	default:
		log.Errorf("unknown operation: %v", op)
		job.finish(protocol.StatusError)
		return
	}

	f.execute(op, job, fn)
}

//
func (f *Flasher) EraseFlash(job *Job) {
	f.Run(OpEraseFlash, job)
}

//
func (f *Flasher) ProgramFlash(job *Job) {
	f.Run(OpProgramFlash, job)
}

//
func (f *Flasher) ReadFlash(job *Job) {
	f.Run(OpReadFlash, job)
}

//
func (f *Flasher) EraseRAM(job *Job) {
	f.Run(OpEraseRAM, job)
}

//
func (f *Flasher) ProgramRAM(job *Job) {
	f.Run(OpProgramRAM, job)
}

//
func (f *Flasher) ReadRAM(job *Job) {
	f.Run(OpReadRAM, job)
}

// execute runs fn with exclusive access to the device, and finishes the job
// with the outcome. Any failure is reported as error, regardless of whether it
// was caused by a timeout.
func (f *Flasher) execute(op Operation, job *Job, fn func(*Job) error) {

	f.acquire()
	defer f.release()

	logger := log.WithFields(log.Fields{
		"operation": op, "file": job.File(), "size": job.Size()})
	logger.Info("starting")

	if err := fn(job); err != nil {
		logger.Errorf("failed: %v", err)
		job.finish(protocol.StatusError)
		return
	}

	job.finish(protocol.StatusOK)
	logger.WithField("duration", job.Duration()).Info("finished")
}
