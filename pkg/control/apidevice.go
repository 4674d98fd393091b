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
	"strings"

	"github.com/xelalexv/gbshooper/pkg/flasher"
	"github.com/xelalexv/gbshooper/pkg/protocol"
)

//
type DeviceStatus struct {
	DeviceID byte   `json:"deviceId"`
	Firmware string `json:"firmware"`
}

//
type FlashID struct {
	Manufacturer string `json:"manufacturer"`
	Chip         string `json:"chip"`
	Known        bool   `json:"known"`
}

//
type Header struct {
	Title    string `json:"title"`
	CartType string `json:"cartType"`
	ROMSize  string `json:"romSize"`
	RAMSize  string `json:"ramSize"`
	ROMBytes uint32 `json:"romBytes"`
	RAMBytes uint32 `json:"ramBytes"`
	Degraded bool   `json:"degraded"`
}

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	if a.isBusy() {
		handleError(errBusy, http.StatusLocked, w)
		return
	}

	st, err := a.flasher.Status()
	if handleError(err, http.StatusServiceUnavailable, w) {
		return
	}

	res := &DeviceStatus{
		DeviceID: protocol.DeviceID,
		Firmware: st.String(),
	}

	if wantsJSON(req) {
		sendJSONReply(res, http.StatusOK, w)
	} else {
		sendReply([]byte(fmt.Sprintf("GB Shooper firmware version %s\n",
			res.Firmware)), http.StatusOK, w)
	}
}

// flashID replies with the names even for unknown chips, Known tells the two
// apart
func (a *api) flashID(w http.ResponseWriter, req *http.Request) {

	if a.isBusy() {
		handleError(errBusy, http.StatusLocked, w)
		return
	}

	id, err := a.flasher.FlashID()
	if id == nil {
		handleError(err, http.StatusServiceUnavailable, w)
		return
	}

	res := &FlashID{
		Manufacturer: id.Manufacturer,
		Chip:         id.Chip,
		Known:        err == nil,
	}

	if wantsJSON(req) {
		sendJSONReply(res, http.StatusOK, w)
	} else {
		sendReply([]byte(fmt.Sprintf("%s\n%s\n", res.Manufacturer, res.Chip)),
			http.StatusOK, w)
	}
}

//
func (a *api) header(w http.ResponseWriter, req *http.Request) {

	if a.isBusy() {
		handleError(errBusy, http.StatusLocked, w)
		return
	}

	hd, err := a.flasher.ReadHeader()
	if handleError(err, http.StatusServiceUnavailable, w) {
		return
	}

	res := newHeader(hd)

	if wantsJSON(req) {
		sendJSONReply(res, http.StatusOK, w)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "title:      %s\n", res.Title)
	fmt.Fprintf(&sb, "cart type:  %s\n", res.CartType)
	fmt.Fprintf(&sb, "ROM size:   %s\n", res.ROMSize)
	fmt.Fprintf(&sb, "RAM size:   %s\n", res.RAMSize)
	if res.Degraded {
		sb.WriteString("\nheader contains unknown codes\n")
	}
	sendReply([]byte(sb.String()), http.StatusOK, w)
}

//
func newHeader(hd *flasher.Header) *Header {
	return &Header{
		Title:    hd.Title,
		CartType: hd.CartType,
		ROMSize:  hd.ROMSize,
		RAMSize:  hd.RAMSize,
		ROMBytes: hd.ROMBytes,
		RAMBytes: hd.RAMBytes,
		Degraded: hd.Degraded,
	}
}
