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
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

//
type recordingPort struct {
	bytes.Buffer
	writes []int
}

func (r *recordingPort) Write(p []byte) (int, error) {
	r.writes = append(r.writes, len(p))
	return r.Buffer.Write(p)
}

func (r *recordingPort) Close() error                         { return nil }
func (r *recordingPort) SetReadTimeout(t time.Duration) error { return nil }
func (r *recordingPort) ResetInputBuffer() error              { return nil }

//
func TestChunkedWrite(t *testing.T) {

	rec := &recordingPort{}
	c := &chunked{Port: rec, max: MaxChunkSize}

	data := make([]byte, 2*MaxChunkSize+10)
	for ix := range data {
		data[ix] = byte(ix)
	}

	n, err := c.Write(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("want %d bytes written, got %d", len(data), n)
	}
	if len(rec.writes) != 3 || rec.writes[0] != MaxChunkSize ||
		rec.writes[1] != MaxChunkSize || rec.writes[2] != 10 {
		t.Errorf("unexpected chunking: %v", rec.writes)
	}
	if !bytes.Equal(rec.Bytes(), data) {
		t.Error("written data differs")
	}
}

//
func TestMatchesHexID(t *testing.T) {
	tests := []struct {
		s    string
		id   uint16
		want bool
	}{
		{"0403", 0x0403, true},
		{"6001", 0x6001, true},
		{"0x0403", 0x0403, true},
		{"ABCD", 0xabcd, true},
		{"abcd", 0xABCD, true},
		{"0404", 0x0403, false},
		{"", 0x0403, false},
	}
	for _, tt := range tests {
		if got := matchesHexID(tt.s, tt.id); got != tt.want {
			t.Errorf("matchesHexID(%q, %04x): want %v, got %v",
				tt.s, tt.id, tt.want, got)
		}
	}
}

//
func TestIdentityMatches(t *testing.T) {
	id := DefaultIdentity
	if !id.Matches("ladecadence.net", "GB Flasher") {
		t.Error("default strings should match")
	}
	if id.Matches("ladecadence.net", "GB Flasher ") {
		t.Error("match must be exact")
	}
	if id.Matches("FTDI", "FT232R USB UART") {
		t.Error("plain FTDI device must not match")
	}
}

//
type failingFinder struct{}

func (f *failingFinder) Find(id Identity) (string, error) {
	return "", fmt.Errorf("no device %s found", id)
}

//
func TestOpenerNoDevice(t *testing.T) {
	o := NewSerialOpener(DefaultIdentity, "", "")
	o.SetFinder(&failingFinder{})
	if p, err := o.Open(); err == nil || p != nil {
		t.Error("open should fail without device")
	}
}

//
func TestOpenerUSBInitFailure(t *testing.T) {

	defer func(f func() *gousb.Context) { newUSBContext = f }(newUSBContext)
	newUSBContext = func() *gousb.Context {
		panic("libusb: init failure")
	}

	o := NewSerialOpener(DefaultIdentity, "", "")
	p, err := o.Open()
	if err == nil || p != nil {
		t.Fatal("open should fail when USB cannot be initialized")
	}
	if !strings.Contains(err.Error(), "initializing USB") {
		t.Errorf("unexpected error: %v", err)
	}
}

//
func TestSelectPort(t *testing.T) {

	ftdi := func(name, serial string) *enumerator.PortDetails {
		return &enumerator.PortDetails{Name: name, IsUSB: true,
			VID: "0403", PID: "6001", SerialNumber: serial}
	}
	other := &enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true,
		VID: "2341", PID: "0043", SerialNumber: "A1"}
	builtin := &enumerator.PortDetails{Name: "/dev/ttyS0"}

	tests := []struct {
		ports  []*enumerator.PortDetails
		serial string
		want   string
	}{
		{[]*enumerator.PortDetails{builtin, ftdi("/dev/ttyUSB0", "XYZ"),
			ftdi("/dev/ttyUSB1", "GBS1")}, "GBS1", "/dev/ttyUSB1"},
		{[]*enumerator.PortDetails{ftdi("/dev/ttyUSB0", "XYZ")}, "GBS1", ""},
		{[]*enumerator.PortDetails{other, ftdi("/dev/ttyUSB0", "")}, "",
			"/dev/ttyUSB0"},
		{[]*enumerator.PortDetails{ftdi("/dev/ttyUSB0", ""),
			ftdi("/dev/ttyUSB1", "XYZ")}, "", ""},
		{[]*enumerator.PortDetails{other, builtin}, "", ""},
	}

	for ix, tt := range tests {
		got, err := selectPort(tt.ports, DefaultIdentity, tt.serial)
		if got != tt.want {
			t.Errorf("case %d: want port '%s', got '%s'", ix, tt.want, got)
		}
		if (err == nil) != (tt.want != "") {
			t.Errorf("case %d: unexpected error: %v", ix, err)
		}
	}
}

//
func TestOpenerUnknownBackend(t *testing.T) {
	o := NewSerialOpener(DefaultIdentity, "/dev/null", "carrier-pigeon")
	if _, err := o.Open(); err == nil {
		t.Error("open should fail for unknown backend")
	}
	if ValidBackend("carrier-pigeon") || !ValidBackend(BackendJacobsa) {
		t.Error("backend validation broken")
	}
}
