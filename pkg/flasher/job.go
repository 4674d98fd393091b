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
	"sync"
	"time"

	"github.com/xelalexv/gbshooper/pkg/protocol"
)

//
type State int

const (
	StateRunning State = iota
	StateDone
)

//
func (s State) String() string {
	if s == StateDone {
		return "done"
	}
	return "running"
}

/*
	Job is the record of a long running operation. It is created in running
	state, then handed to the operation which is its only writer. Any number of
	readers may poll it while it runs. Once the job is done, it does not change
	anymore.
*/
type Job struct {
	file string
	size uint64
	//
	mutex    sync.RWMutex
	progress int
	result   protocol.Status
	state    State
	started  time.Time
	finished time.Time
}

// NewJob creates a job. Depending on the operation, file is the source or
// destination file, and size the number of bytes to read or erase.
func NewJob(file string, size uint64) *Job {
	return &Job{
		file:    file,
		size:    size,
		result:  protocol.StatusError,
		state:   StateRunning,
		started: time.Now(),
	}
}

//
func (j *Job) File() string {
	return j.file
}

//
func (j *Job) Size() uint64 {
	return j.size
}

// Progress returns the progress in percent, 0 to 100.
func (j *Job) Progress() int {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.progress
}

// Result is only meaningful once the job is done.
func (j *Job) Result() protocol.Status {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.result
}

//
func (j *Job) State() State {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.state
}

//
func (j *Job) IsDone() bool {
	return j.State() == StateDone
}

// Duration returns how long the job has been running, or ran.
func (j *Job) Duration() time.Duration {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	if j.state == StateDone {
		return j.finished.Sub(j.started)
	}
	return time.Since(j.started)
}

/*
	Poll calls report with the current progress every interval, until the job
	is done, and then returns the result. There is no notification from the
	operation, the caller drives the refresh cadence.
*/
func (j *Job) Poll(interval time.Duration, report func(progress int)) protocol.Status {
	for !j.IsDone() {
		if report != nil {
			report(j.Progress())
		}
		time.Sleep(interval)
	}
	if report != nil {
		report(j.Progress())
	}
	return j.Result()
}

//
func (j *Job) setProgress(p int) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.state == StateDone {
		return
	}
	if p > 100 {
		p = 100
	} else if p < 0 {
		p = 0
	}
	j.progress = p
}

// finish sets the result and moves the job to done state. Later calls have no
// effect.
func (j *Job) finish(res protocol.Status) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.state == StateDone {
		return
	}
	if res == protocol.StatusOK {
		j.progress = 100
	}
	j.result = res
	j.finished = time.Now()
	j.state = StateDone
}

//
func (j *Job) String() string {
	return fmt.Sprintf("%s %d%% %v", j.State(), j.Progress(), j.Result())
}

// percent calculates progress of done out of total, rounded down
func percent(done, total uint64) int {
	if total == 0 {
		return 0
	}
	p := 100 * done / total
	if p > 100 {
		p = 100
	}
	return int(p)
}
