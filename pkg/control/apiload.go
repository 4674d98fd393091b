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

package control

import (
	"fmt"
	"io"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/flasher"
	"github.com/xelalexv/gbshooper/pkg/image"
	"github.com/xelalexv/gbshooper/pkg/repo"
)

//
func (a *api) programFlash(w http.ResponseWriter, req *http.Request) {
	a.program(w, req, flasher.OpProgramFlash)
}

//
func (a *api) programRAM(w http.ResponseWriter, req *http.Request) {
	a.program(w, req, flasher.OpProgramRAM)
}

/*
	program starts a job writing an image to flash or RAM. The image is either
	the request body, or referenced with the ref parameter. It may be
	compressed, in which case the compressor parameter names the compression.
	For references, the compression is derived from the file extension if not
	given. The decompressed image is staged in a work file, since the transfer
	needs to know its size.
*/
func (a *api) program(w http.ResponseWriter, req *http.Request,
	op flasher.Operation) {

	if a.isBusy() {
		handleError(errBusy, http.StatusLocked, w)
		return
	}

	var in io.ReadCloser
	compressor := getArg(req, "compressor")

	if ref := getArg(req, "ref"); ref != "" {
		library := ""
		if a.index != nil {
			library = a.index.Library()
		}
		var err error
		if in, err = repo.Resolve(ref, library); err != nil {
			handleError(err, http.StatusNotAcceptable, w)
			return
		}
		if !isFlagSet(req, "compressor") {
			_, _, compressor = image.SplitNameTypeCompressor(ref)
		}
	} else {
		in = http.MaxBytesReader(w, req.Body, repo.MaxImageSize)
	}

	rd, err := image.NewReader(in, compressor)
	if err != nil {
		in.Close()
		handleError(err, http.StatusUnprocessableEntity, w)
		return
	}
	defer rd.Close()

	staged, err := os.CreateTemp(a.workDir, "upload-*.img")
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	cleanup := func() {
		if err := os.Remove(staged.Name()); err != nil && !os.IsNotExist(err) {
			log.Warnf("cannot remove staged image: %v", err)
		}
	}

	size, err := io.Copy(staged, rd)
	if cerr := staged.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		handleError(fmt.Errorf("cannot stage image: %v", err),
			http.StatusUnprocessableEntity, w)
		return
	}
	if size == 0 {
		cleanup()
		handleError(fmt.Errorf("empty image"), http.StatusUnprocessableEntity, w)
		return
	}

	job := flasher.NewJob(staged.Name(), uint64(size))
	if err := a.startJob(op, job, false, cleanup); err != nil {
		cleanup()
		handleError(err, http.StatusLocked, w)
		return
	}

	log.WithFields(log.Fields{
		"name": rd.Name(), "size": size, "operation": op}).Info("image staged")

	sendReply([]byte(fmt.Sprintf("%s started, %d bytes\n", op, size)),
		http.StatusAccepted, w)
}
