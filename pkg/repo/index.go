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

package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/image"
	"github.com/xelalexv/gbshooper/pkg/util"
)

// characters in file names that are replaced with blanks for indexing
const replaceChars = "`~!@#$%^&*_-+=()[]{}|;:',.<>?"

// pending index changes are flushed after this many
const batchSize = 100

var nameCleaner *strings.Replacer

//
func init() {
	rep := make([]string, 0, 2*len(replaceChars))
	for _, c := range replaceChars {
		rep = append(rep, string(c), " ")
	}
	nameCleaner = strings.NewReplacer(rep...)
}

// Entry is what gets indexed for each image in the library.
type Entry struct {
	Name     string
	Title    string
	CartType string
	Type     string
}

/*
	Index is a search index over a ROM library, i.e. a directory tree of ROM
	and save images. Once started, the index follows changes in the library.
	Document IDs are the image paths relative to the library root.
*/
type Index struct {
	base    string
	library string
	//
	index   bleve.Index
	empty   bool
	watcher *util.DirWatcher
	quiet   time.Duration
	//
	mutex   sync.Mutex
	stopped bool
	//
	batch      *bleve.Batch
	batchCount int
}

// NewIndex opens the index stored at base, or creates it if it does not exist
// yet. library is the root of the ROM library.
func NewIndex(base, library string) (*Index, error) {

	var err error
	i := &Index{quiet: 5 * time.Second}

	if i.base, err = filepath.Abs(base); err != nil {
		return nil, err
	}
	if i.library, err = filepath.Abs(library); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{"index": i.base, "library": i.library})

	if _, err := os.Stat(i.base); os.IsNotExist(err) {
		logger.Info("creating new index")
		if i.index, err = bleve.New(i.base, bleve.NewIndexMapping()); err != nil {
			return nil, fmt.Errorf("cannot create index: %v", err)
		}
		i.empty = true

	} else if err != nil {
		return nil, err

	} else {
		logger.Info("opening index")
		if i.index, err = bleve.Open(i.base); err != nil {
			return nil, fmt.Errorf("cannot open index: %v", err)
		}
	}

	i.batch = i.index.NewBatch()
	return i, nil
}

//
func (i *Index) Library() string {
	return i.library
}

// Start brings the index up to date with the library, and then keeps watching
// the library for changes.
func (i *Index) Start() error {

	start := time.Now()
	if err := i.prune(); err != nil {
		return fmt.Errorf("error pruning index: %v", err)
	}
	log.WithField("duration", time.Since(start)).Info("index pruned")

	start = time.Now()
	if err := i.update(); err != nil {
		return fmt.Errorf("error updating index: %v", err)
	}
	log.WithField("duration", time.Since(start)).Info("index updated")

	if err := i.batched(true); err != nil {
		return err
	}

	if err := i.startWatching(); err != nil {
		return fmt.Errorf("error watching library: %v", err)
	}

	log.Info("index ready")
	return nil
}

//
func (i *Index) Stop() {

	i.mutex.Lock()
	i.stopped = true
	i.mutex.Unlock()

	if i.watcher != nil {
		i.watcher.Stop()
	}
	if i.index != nil {
		if err := i.index.Close(); err != nil {
			log.Errorf("error closing index: %v", err)
		}
	}
}

//
func (i *Index) isStopped() bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.stopped
}

// prune removes entries for images no longer present in the library
func (i *Index) prune() error {

	if i.empty {
		return nil
	}

	ix, err := i.index.Advanced()
	if err != nil {
		return err
	}

	rd, err := ix.Reader()
	if err != nil {
		return err
	}
	defer rd.Close()

	docs, err := rd.DocIDReaderAll()
	if err != nil {
		return err
	}
	defer docs.Close()

	var gone []string

	for {
		d, err := docs.Next()
		if err != nil {
			return err
		}
		if d == nil {
			break
		}
		id, err := rd.ExternalID(d)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(i.library, id)); os.IsNotExist(err) {
			gone = append(gone, id)
		}
	}

	for _, id := range gone {
		if err := i.removeEntry(id); err != nil {
			return err
		}
	}
	return nil
}

// update adds all images changed since the last index modification
func (i *Index) update() error {

	var lastMod time.Time
	if !i.empty {
		if store, err := os.Stat(filepath.Join(i.base, "store")); err == nil {
			lastMod = store.ModTime()
			log.Debugf("last index modification: %v", lastMod)
		}
	}
	i.empty = false

	return filepath.WalkDir(i.library,
		func(path string, d fs.DirEntry, err error) error {

			if i.isStopped() {
				return fmt.Errorf("index stopped")
			}
			if err != nil {
				log.Warnf("skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !isImage(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil || !info.ModTime().After(lastMod) {
				return nil
			}
			return i.addEntry(i.makeRelative(path))
		})
}

//
func (i *Index) startWatching() error {
	var err error
	if i.watcher, err = util.NewDirWatcher(i.library); err != nil {
		return err
	}
	return i.watcher.Start(i.quiet, i.watchEvent, i.flush)
}

//
func (i *Index) watchEvent(evt fsnotify.Event) error {

	rel := i.makeRelative(evt.Name)

	switch {

	case evt.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !isImage(evt.Name) {
			return nil
		}
		if info, err := os.Stat(evt.Name); err != nil {
			return fmt.Errorf("cannot add %s: %v", rel, err)
		} else if !info.IsDir() {
			return i.addEntry(rel)
		}

	case evt.Op&(fsnotify.Rename|fsnotify.Remove) != 0:
		return i.removeEntry(rel)
	}

	return nil
}

//
func (i *Index) flush() error {
	return i.batched(true)
}

//
func (i *Index) addEntry(path string) error {

	entry := i.describe(path)
	log.WithFields(log.Fields{
		"file": path, "title": entry.Title}).Debug("indexing image")

	if err := i.batch.Index(path, entry); err != nil {
		return fmt.Errorf("cannot index %s: %v", path, err)
	}
	return i.batched(false)
}

//
func (i *Index) removeEntry(path string) error {
	log.WithField("file", path).Debug("removing image from index")
	i.batch.Delete(path)
	return i.batched(false)
}

// describe creates the index entry for the image at path. For ROM images, the
// title and cart type are taken from the header, if it can be read.
func (i *Index) describe(path string) Entry {

	_, typ, _ := image.SplitNameTypeCompressor(path)
	ret := Entry{Name: nameCleaner.Replace(path), Type: typ}

	if typ == image.TypeSave {
		return ret
	}

	r, err := image.Open(filepath.Join(i.library, path))
	if err != nil {
		log.Debugf("cannot open %s: %v", path, err)
		return ret
	}
	defer r.Close()

	hd, err := cart.ReadHeader(r)
	if err != nil {
		log.Debugf("no header in %s: %v", path, err)
		return ret
	}

	ret.Title = hd.Title()
	ret.CartType, _ = cart.CartType(hd.CartTypeCode())
	return ret
}

// batched is not thread safe. After the index has been started, add and
// remove are only called from the dir watcher's go routine.
func (i *Index) batched(flush bool) error {

	if i.batchCount++; flush || i.batchCount > batchSize {
		log.Debug("flushing pending index changes")
		if err := i.index.Batch(i.batch); err != nil {
			return fmt.Errorf("failed to execute index batch: %v", err)
		}
		i.batch = i.index.NewBatch()
		i.batchCount = 0
	}

	return nil
}

//
func (i *Index) makeRelative(path string) string {
	if rel, err := filepath.Rel(i.library, path); err == nil &&
		!strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

//
func isImage(path string) bool {
	_, typ, _ := image.SplitNameTypeCompressor(path)
	return typ != ""
}
