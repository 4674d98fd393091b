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

package util

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

//
type recorder struct {
	mutex   sync.Mutex
	events  map[string]fsnotify.Op
	flushes int
}

//
func (r *recorder) handle(evt fsnotify.Event) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events[evt.Name] |= evt.Op
	return nil
}

//
func (r *recorder) flush() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.flushes++
	return nil
}

//
func (r *recorder) seen(path string, op fsnotify.Op) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.events[path]&op != 0
}

//
func (r *recorder) flushed() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.flushes
}

//
func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

//
func TestDirWatcher(t *testing.T) {

	dir := t.TempDir()
	rec := &recorder{events: make(map[string]fsnotify.Op)}

	dw, err := NewDirWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer dw.Stop()

	if err := dw.Start(50*time.Millisecond, rec.handle, rec.flush); err != nil {
		t.Fatal(err)
	}
	if err := dw.Start(50*time.Millisecond, rec.handle, rec.flush); err == nil {
		t.Errorf("second start not rejected")
	}

	rom := filepath.Join(dir, "tetris.gb")
	if err := os.WriteFile(rom, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "create event", func() bool { return rec.seen(rom, fsnotify.Create) })
	waitFor(t, "flush", func() bool { return rec.flushed() > 0 })

	// files in new sub directories are seen as well
	sub := filepath.Join(dir, "nintendo")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "directory event", func() bool { return rec.seen(sub, fsnotify.Create) })

	nested := filepath.Join(sub, "zelda.gbc")
	if err := os.WriteFile(nested, []byte{4, 5, 6}, 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "nested create event", func() bool {
		return rec.seen(nested, fsnotify.Create)
	})

	if err := os.Remove(rom); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "remove event", func() bool { return rec.seen(rom, fsnotify.Remove) })

	dw.Stop()
	dw.Stop()
	if err := dw.Start(time.Second, rec.handle, rec.flush); err == nil {
		t.Errorf("restart of stopped watcher not rejected")
	}
}
