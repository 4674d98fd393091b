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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/gbshooper/pkg/flasher"
	"github.com/xelalexv/gbshooper/pkg/repo"
)

// errBusy is returned when an operation is requested while the device is in
// use. It is reported as 423 Locked.
var errBusy = fmt.Errorf("device busy")

/*
	APIServer exposes the flasher over HTTP, for graphical frontends. Long
	running operations are started as jobs, which clients poll for progress.
	There is only ever one job at a time.
*/
type APIServer interface {
	Serve() error
	Stop() error
}

//
func NewAPIServer(addr string, f *flasher.Flasher, index *repo.Index) APIServer {
	return &api{
		addr:    addr,
		flasher: f,
		index:   index,
	}
}

//
type api struct {
	addr    string
	server  *http.Server
	flasher *flasher.Flasher
	index   *repo.Index
	workDir string
	//
	mutex   sync.Mutex
	current *slot
}

// slot is the job currently or most recently run
type slot struct {
	op      flasher.Operation
	job     *flasher.Job
	output  bool
	cleanup func()
}

//
func (a *api) Serve() error {

	var err error
	if a.workDir, err = os.MkdirTemp("", "gbshooper-"); err != nil {
		return fmt.Errorf("cannot create work directory: %v", err)
	}

	a.server = &http.Server{
		Addr:              a.addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("address", a.addr).Info("API server starting")
	if err := a.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {

	log.Info("API server stopping")

	var err error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = a.server.Shutdown(ctx)
	}

	a.mutex.Lock()
	if a.current != nil && a.current.job.IsDone() {
		a.current.cleanup()
		a.current = nil
	}
	a.mutex.Unlock()

	if a.workDir != "" {
		if e := os.RemoveAll(a.workDir); e != nil {
			log.Warnf("cannot remove work directory: %v", e)
		}
	}

	return err
}

//
func (a *api) router() *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "version", "GET", "/version", a.version)
	addRoute(router, "config", "GET", "/config", a.getConfig)
	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "id", "GET", "/id", a.flashID)
	addRoute(router, "header", "GET", "/header", a.header)

	addRoute(router, "program flash", "PUT", "/flash", a.programFlash)
	addRoute(router, "erase flash", "DELETE", "/flash", a.eraseFlash)
	addRoute(router, "read flash", "GET", "/flash", a.readFlash)

	addRoute(router, "program RAM", "PUT", "/ram", a.programRAM)
	addRoute(router, "erase RAM", "DELETE", "/ram", a.eraseRAM)
	addRoute(router, "read RAM", "GET", "/ram", a.readRAM)

	addRoute(router, "job", "GET", "/job", a.jobStatus)
	addRoute(router, "job data", "GET", "/job/data", a.jobData)

	addRoute(router, "search", "GET", "/search", a.search)

	return router
}

//
func addRoute(r *mux.Router, name, method, pattern string, handler http.HandlerFunc) {
	r.Methods(method).Path(pattern).Name(name).Handler(logged(handler, name))
}

//
func logged(h http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"uri":      r.RequestURI,
			"route":    name,
			"duration": time.Since(start),
		}).Debug("API call")
	})
}

// startJob hands job to the flasher, unless a job is still running. The
// previous job's files are cleaned up. cleanup is called once the job is
// superseded by the next one, or the server stops.
func (a *api) startJob(op flasher.Operation, job *flasher.Job, output bool,
	cleanup func()) error {

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if (a.current != nil && !a.current.job.IsDone()) || a.flasher.IsBusy() {
		return errBusy
	}

	if a.current != nil {
		a.current.cleanup()
	}

	if cleanup == nil {
		cleanup = func() {}
	}
	a.current = &slot{op: op, job: job, output: output, cleanup: cleanup}
	a.flasher.Start(op, job)

	log.WithFields(log.Fields{"operation": op, "file": job.File()}).Info(
		"job started")
	return nil
}

//
func (a *api) currentJob() *slot {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.current
}

// isBusy checks whether a query can be run right now without waiting for a
// job to finish
func (a *api) isBusy() bool {
	if s := a.currentJob(); s != nil && !s.job.IsDone() {
		return true
	}
	return a.flasher.IsBusy()
}

//
func (a *api) workFile(name string) string {
	return filepath.Join(a.workDir, name)
}

//
func getArg(req *http.Request, arg string) string {
	return req.URL.Query().Get(arg)
}

//
func getIntArg(req *http.Request, arg string, def int) (int, error) {
	if a := getArg(req, arg); a != "" {
		v, err := strconv.Atoi(a)
		if err != nil {
			return def, fmt.Errorf("invalid value for %s: %s", arg, a)
		}
		return v, nil
	}
	return def, nil
}

//
func isFlagSet(req *http.Request, flag string) bool {
	_, ok := req.URL.Query()[flag]
	return ok
}

//
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	if e == errBusy {
		statusCode = http.StatusLocked
	}

	log.Errorf("%v", e)
	msg := e.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	sendReply([]byte(msg), statusCode, w)
	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem sending JSON reply: %v", err)
	}
}

//
func sendStreamReply(r io.Reader, name string, statusCode int,
	w http.ResponseWriter) {

	w.Header().Set("Content-Type", "application/octet-stream")
	if name != "" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(statusCode)
	if _, err := io.Copy(w, r); err != nil {
		log.Errorf("problem sending stream reply: %v", err)
	}
}
