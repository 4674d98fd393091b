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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// EventHandler is called for every change in a watched directory tree.
type EventHandler func(evt fsnotify.Event) error

/*
	NewDirWatcher creates a recursive watcher for the directory tree rooted in
	dir. Directories created later on are added to the watch. Nothing is
	reported until Start is called.
*/
func NewDirWatcher(dir string) (*DirWatcher, error) {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ret := &DirWatcher{root: dir, watcher: w, done: make(chan struct{})}

	if err := filepath.WalkDir(dir, ret.walk); err != nil {
		w.Close()
		return nil, fmt.Errorf("error walking directory '%s': %v", dir, err)
	}

	return ret, nil
}

//
type DirWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	//
	mutex   sync.Mutex
	running bool
	stopped bool
}

/*
	Start begins delivering events to handler, from a single go routine. Once
	there has been no further change for the duration of quiet, flush is called
	from that same go routine, so neither handler nor flush need to be thread
	safe.
*/
func (dw *DirWatcher) Start(quiet time.Duration, handler EventHandler,
	flush func() error) error {

	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.stopped {
		return fmt.Errorf("directory watcher for %s stopped", dw.root)
	}
	if dw.running {
		return fmt.Errorf("directory watcher for %s already started", dw.root)
	}
	dw.running = true

	go dw.loop(quiet, handler, flush)
	return nil
}

//
func (dw *DirWatcher) loop(quiet time.Duration, handler EventHandler,
	flush func() error) {

	defer close(dw.done)

	// only armed while there are unflushed changes
	var pending <-chan time.Time

	for {
		select {

		case evt, ok := <-dw.watcher.Events:
			if !ok {
				log.WithField("dir", dw.root).Debug("directory watcher exiting")
				return
			}
			dw.track(evt)
			if err := handler(evt); err != nil {
				log.Errorf("error handling change of %s: %v", evt.Name, err)
			}
			pending = time.After(quiet)

		case err, ok := <-dw.watcher.Errors:
			if ok {
				log.Errorf("directory watcher error: %v", err)
			}

		case <-pending:
			pending = nil
			if err := flush(); err != nil {
				log.Errorf("error flushing changes: %v", err)
			}
		}
	}
}

// Stop ends the watch and waits for the event loop to exit. A stopped watcher
// cannot be restarted.
func (dw *DirWatcher) Stop() {

	dw.mutex.Lock()
	if dw.stopped {
		dw.mutex.Unlock()
		return
	}
	dw.stopped = true
	running := dw.running
	dw.mutex.Unlock()

	log.WithField("dir", dw.root).Info("closing directory watcher")
	if err := dw.watcher.Close(); err != nil {
		log.Errorf("could not close directory watcher: %v", err)
	}
	if running {
		<-dw.done
	}
}

// track adds newly created directories to the watch
func (dw *DirWatcher) track(evt fsnotify.Event) {

	log.WithFields(log.Fields{
		"path": evt.Name, "op": evt.Op}).Trace("directory change")

	if evt.Op&fsnotify.Create == 0 {
		return
	}

	info, err := os.Lstat(evt.Name)
	if err != nil || !info.IsDir() {
		return
	}

	// the new directory may already have content
	if err := filepath.WalkDir(evt.Name, dw.walk); err != nil {
		log.Errorf("cannot watch new directory %s: %v", evt.Name, err)
	}
}

//
func (dw *DirWatcher) walk(path string, d fs.DirEntry, err error) error {

	if err != nil {
		return err
	}
	if !d.IsDir() {
		return nil
	}

	if err := dw.watcher.Add(path); err != nil {
		return fmt.Errorf("error watching directory '%s': %v", path, err)
	}
	log.WithField("path", path).Debug("watching directory")
	return nil
}
