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

package run

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/protocol"
	"github.com/xelalexv/gbshooper/pkg/transport/transporttest"
)

var fastDevice = []string{"--reply-timeout=300ms", "--erase-timeout=300ms",
	"--poll-interval=5ms", "--log-level=error"}

// execute runs r with args, and short timings if r talks to the device
func execute(t *testing.T, r *Runner, args ...string) (string, error) {
	var out bytes.Buffer
	r.Command.SetOut(&out)
	if r.Command.Flags().Lookup("reply-timeout") != nil {
		args = append(append([]string{}, fastDevice...), args...)
	}
	r.Command.SetArgs(args)
	err := r.Command.Execute()
	return out.String(), err
}

//
func makeROM(t *testing.T, size int) []byte {
	data := make([]byte, size)
	copy(data[0x134:], "TETRIS")
	data[0x147] = 0x01
	data[0x148] = 0x00
	data[0x149] = 0x00
	hd, err := cart.ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	data[0x14d] = hd.CalculateChecksum()
	return data
}

//
func TestTranslateLegacy(t *testing.T) {

	tests := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{"--status"}, []string{"status"}},
		{[]string{"--read-flash", "--size", "3", "rom.gb"},
			[]string{"read-flash", "--size", "3", "rom.gb"}},
		{[]string{"--erase-ram"}, []string{"erase-ram"}},
		{[]string{"--bogus", "x"}, []string{"--bogus", "x"}},
		{[]string{"status", "--port", "/dev/ttyUSB0"},
			[]string{"status", "--port", "/dev/ttyUSB0"}},
	}

	for _, tc := range tests {
		if got := TranslateLegacy(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%v: want %v, got %v", tc.in, tc.want, got)
		}
	}
}

//
func TestRootNoCommand(t *testing.T) {

	var out bytes.Buffer
	root := NewRoot()
	root.SetOut(&out)
	root.SetArgs([]string{})

	if err := root.Execute(); err != ErrNoCommand {
		t.Errorf("want %v, got %v", ErrNoCommand, err)
	}
	if !strings.Contains(out.String(), "write-flash") {
		t.Errorf("help not shown: %s", out.String())
	}
}

//
func TestSettingsPrecedence(t *testing.T) {

	cfg := filepath.Join(t.TempDir(), "gbshooper.yaml")
	if err := os.WriteFile(cfg, []byte(
		"reply-timeout: 7s\nerase-timeout: 42s\nport: /dev/from-config\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GBSHOOPER_PORT", "/dev/from-env")
	t.Setenv("GBSHOOPER_ERASE_TIMEOUT", "9s")

	s := NewStatus()
	if err := s.Command.ParseFlags([]string{
		"--config", cfg, "--erase-timeout", "11s"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseSettings(); err != nil {
		t.Fatal(err)
	}

	if s.ReplyTimeout != 7*time.Second {
		t.Errorf("reply timeout from config: want 7s, got %v", s.ReplyTimeout)
	}
	if s.EraseTimeout != 11*time.Second {
		t.Errorf("erase timeout from flag: want 11s, got %v", s.EraseTimeout)
	}
	if s.Port != "/dev/from-env" {
		t.Errorf("port from env: want /dev/from-env, got %s", s.Port)
	}
	if s.Backend != "bugst" || s.PollInterval != 100*time.Millisecond {
		t.Errorf("unexpected defaults: %s, %v", s.Backend, s.PollInterval)
	}
	if !s.IsSet("port") || s.IsSet("backend") {
		t.Errorf("IsSet wrong")
	}
}

//
func TestSettingsInvalid(t *testing.T) {

	s := NewStatus()
	s.Command.ParseFlags([]string{"--backend", "usb"})
	if err := s.ParseSettings(); err == nil {
		t.Errorf("unknown backend accepted")
	}

	s = NewStatus()
	s.Command.ParseFlags([]string{"--log-level", "loud"})
	if err := s.ParseSettings(); err == nil {
		t.Errorf("invalid log level accepted")
	}

	se := NewSearch()
	se.Command.ParseFlags([]string{"--items", "5"})
	if err := se.ParseSettings(); err == nil ||
		!strings.Contains(err.Error(), "term") {
		t.Errorf("missing term not reported: %v", err)
	}
}

//
func TestStatus(t *testing.T) {

	s := NewStatus()
	s.opener = transporttest.NewDevice()
	out, err := execute(t, &s.Runner)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "READY") || !strings.Contains(out, "version: 1.2") {
		t.Errorf("unexpected output: %s", out)
	}

	s = NewStatus()
	s.opener = &transporttest.Absent{}
	if out, err = execute(t, &s.Runner); err == nil {
		t.Errorf("absent device not reported")
	}
	if !strings.Contains(out, "Hardware error") {
		t.Errorf("unexpected output: %s", out)
	}
}

//
func TestID(t *testing.T) {

	i := NewID()
	i.opener = transporttest.NewDevice()
	out, err := execute(t, &i.Runner)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Flash manufacturer: AMD") {
		t.Errorf("unexpected output: %s", out)
	}

	dev := transporttest.NewDevice()
	dev.Chip = 0x0c
	i = NewID()
	i.opener = dev
	out, err = execute(t, &i.Runner)
	if err == nil {
		t.Errorf("unknown chip not reported")
	}
	if !strings.Contains(out, "Unknown flash ID: 0x0C") {
		t.Errorf("unexpected output: %s", out)
	}
}

//
func TestReadHeader(t *testing.T) {

	dev := transporttest.NewDevice()
	dev.CartType = 0x03
	r := NewReadHeader()
	r.opener = dev
	out, err := execute(t, &r.Runner)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Cart name: TETRIS", "ROM+MBC1+RAM+BATT", "32KB"} {
		if !strings.Contains(out, want) {
			t.Errorf("%q missing in output: %s", want, out)
		}
	}
}

//
func TestWriteFlash(t *testing.T) {

	img := makeROM(t, 2*protocol.BlockSize)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(img)
	zw.Close()

	file := filepath.Join(t.TempDir(), "tetris.gb.gz")
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dev := transporttest.NewDevice()
	w := NewWriteFlash()
	w.opener = dev
	out, err := execute(t, &w.Runner, file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "100%\nFLASH PROGRAMMED") {
		t.Errorf("unexpected output: %s", out)
	}
	if got := bytes.Join(dev.Blocks(), nil); !bytes.Equal(got, img) {
		t.Errorf("programmed data differs")
	}
	if n := dev.Count(protocol.CmdProgramFlash); n != 2 {
		t.Errorf("want 2 PROGRAM_FLASH commands, got %d", n)
	}
}

//
func TestWriteFlashFailure(t *testing.T) {

	file := filepath.Join(t.TempDir(), "tetris.gb")
	if err := os.WriteFile(file, makeROM(t, 4*protocol.BlockSize), 0644); err != nil {
		t.Fatal(err)
	}

	dev := transporttest.NewDevice()
	dev.CorruptBlock = 2
	w := NewWriteFlash()
	w.opener = dev
	out, err := execute(t, &w.Runner, file)
	if err != ErrOperation {
		t.Errorf("want %v, got %v", ErrOperation, err)
	}
	if strings.Contains(out, "FLASH PROGRAMMED") {
		t.Errorf("failure reported as success: %s", out)
	}

	w = NewWriteFlash()
	w.opener = dev
	if _, err := execute(t, &w.Runner); err == nil {
		t.Errorf("missing file argument accepted")
	}
}

//
func TestReadFlash(t *testing.T) {

	dev := transporttest.NewDevice()
	dev.Memory = makeROM(t, int(cart.S64K))

	file := filepath.Join(t.TempDir(), "dump.gb")
	r := NewReadFlash()
	r.opener = dev
	out, err := execute(t, &r.Runner, "--size", "2", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FLASH READ") {
		t.Errorf("unexpected output: %s", out)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, dev.Memory) {
		t.Errorf("read data differs, got %d bytes", len(data))
	}
	if n := dev.Count(protocol.CmdReadFlash); n != int(cart.S64K)/protocol.BlockSize {
		t.Errorf("unexpected number of READ_FLASH commands: %d", n)
	}
}

//
func TestRAM(t *testing.T) {

	dir := t.TempDir()
	dev := transporttest.NewDevice()
	dev.Memory = bytes.Repeat([]byte{0x5a}, int(cart.S8K))

	save := filepath.Join(dir, "game.sav")
	r := NewReadRAM()
	r.opener = dev
	if _, err := execute(t, &r.Runner, save); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(save)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, dev.Memory) {
		t.Errorf("read RAM differs, got %d bytes", len(data))
	}

	w := NewWriteRAM()
	w.opener = dev
	out, err := execute(t, &w.Runner, save)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "RAM WRITTEN") {
		t.Errorf("unexpected output: %s", out)
	}
	if n := len(dev.Blocks()); n != int(cart.S8K)/protocol.BlockSize {
		t.Errorf("unexpected number of blocks written: %d", n)
	}

	e := NewEraseRAM()
	e.opener = dev
	if out, err = execute(t, &e.Runner); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "RAM ERASED") {
		t.Errorf("unexpected output: %s", out)
	}
	if n := dev.Count(protocol.CmdEraseRAM); n != 34 {
		t.Errorf("want 34 ERASE_RAM commands, got %d", n)
	}
}

//
func TestEraseFlash(t *testing.T) {

	dev := transporttest.NewDevice()
	e := NewEraseFlash()
	e.opener = dev
	out, err := execute(t, &e.Runner)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FLASH ERASED") {
		t.Errorf("unexpected output: %s", out)
	}

	dev = transporttest.NewDevice()
	dev.EraseReply = protocol.StatusError
	e = NewEraseFlash()
	e.opener = dev
	if _, err = execute(t, &e.Runner); err != ErrOperation {
		t.Errorf("want %v, got %v", ErrOperation, err)
	}
}

//
func TestInfo(t *testing.T) {

	file := filepath.Join(t.TempDir(), "tetris.gb")
	if err := os.WriteFile(file, makeROM(t, int(cart.S32K)), 0644); err != nil {
		t.Fatal(err)
	}

	i := NewInfo()
	out, err := execute(t, &i.Runner, "--check", "--hex", "32", file)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TETRIS", "ROM+MBC1", "Checksum:  ok",
		"00000010  00 00"} {
		if !strings.Contains(out, want) {
			t.Errorf("%q missing in output: %s", want, out)
		}
	}

	broken := makeROM(t, int(cart.S32K))
	broken[0x14d]++
	if err := os.WriteFile(file, broken, 0644); err != nil {
		t.Fatal(err)
	}
	i = NewInfo()
	if _, err := execute(t, &i.Runner, "--check", file); err == nil {
		t.Errorf("broken checksum not reported")
	}
}
