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
	"net/http"
	"os"
	"path/filepath"

	"github.com/xelalexv/gbshooper/pkg/cart"
	"github.com/xelalexv/gbshooper/pkg/flasher"
)

// JobStatus is what clients see when polling the current job.
type JobStatus struct {
	Operation string `json:"operation"`
	State     string `json:"state"`
	Progress  int    `json:"progress"`
	Result    string `json:"result"`
	Duration  string `json:"duration"`
	Data      bool   `json:"data"`
}

//
func (a *api) eraseFlash(w http.ResponseWriter, req *http.Request) {
	a.start(w, flasher.OpEraseFlash, flasher.NewJob("", 0), false)
}

//
func (a *api) eraseRAM(w http.ResponseWriter, req *http.Request) {
	size, ok := getSize(w, req, cart.S8K)
	if !ok {
		return
	}
	a.start(w, flasher.OpEraseRAM, flasher.NewJob("", size), false)
}

//
func (a *api) readFlash(w http.ResponseWriter, req *http.Request) {
	size, ok := getSize(w, req, cart.S32K)
	if !ok {
		return
	}
	a.start(w, flasher.OpReadFlash,
		flasher.NewJob(a.workFile("flash.gb"), size), true)
}

//
func (a *api) readRAM(w http.ResponseWriter, req *http.Request) {
	size, ok := getSize(w, req, cart.S8K)
	if !ok {
		return
	}
	a.start(w, flasher.OpReadRAM,
		flasher.NewJob(a.workFile("ram.sav"), size), true)
}

//
func (a *api) start(w http.ResponseWriter, op flasher.Operation,
	job *flasher.Job, output bool) {

	var cleanup func()
	if output {
		cleanup = func() { os.Remove(job.File()) }
	}

	if handleError(a.startJob(op, job, output, cleanup), http.StatusLocked, w) {
		return
	}

	sendReply([]byte(fmt.Sprintf("%s started\n", op)), http.StatusAccepted, w)
}

//
func (a *api) jobStatus(w http.ResponseWriter, req *http.Request) {

	s := a.currentJob()
	if s == nil {
		handleError(fmt.Errorf("no job"), http.StatusNotFound, w)
		return
	}

	st := &JobStatus{
		Operation: s.op.String(),
		State:     s.job.State().String(),
		Progress:  s.job.Progress(),
		Duration:  s.job.Duration().Round(1e6).String(),
		Data:      s.output && s.job.IsDone() && s.job.Result().IsOK(),
	}
	if s.job.IsDone() {
		st.Result = s.job.Result().String()
	}

	if wantsJSON(req) {
		sendJSONReply(st, http.StatusOK, w)
		return
	}

	msg := fmt.Sprintf("%s: %s, %d%%", st.Operation, st.State, st.Progress)
	if st.Result != "" {
		msg = fmt.Sprintf("%s, %s", msg, st.Result)
	}
	sendReply([]byte(msg+"\n"), http.StatusOK, w)
}

// jobData sends the data read by the last job, if that was a successful read
func (a *api) jobData(w http.ResponseWriter, req *http.Request) {

	s := a.currentJob()
	if s == nil || !s.output {
		handleError(fmt.Errorf("no read job"), http.StatusNotFound, w)
		return
	}

	if !s.job.IsDone() {
		handleError(errBusy, http.StatusLocked, w)
		return
	}

	if !s.job.Result().IsOK() {
		handleError(fmt.Errorf("%s failed", s.op), http.StatusConflict, w)
		return
	}

	f, err := os.Open(s.job.File())
	if handleError(err, http.StatusGone, w) {
		return
	}
	defer f.Close()

	sendStreamReply(f, filepath.Base(s.job.File()), http.StatusOK, w)
}

//
func getSize(w http.ResponseWriter, req *http.Request, def uint32) (uint64, bool) {
	size, err := getIntArg(req, "size", int(def))
	if err == nil && size <= 0 {
		err = fmt.Errorf("invalid size: %d", size)
	}
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return 0, false
	}
	return uint64(size), true
}
