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
)

//
type Config struct {
	ReplyTimeout string `json:"replyTimeout"`
	EraseTimeout string `json:"eraseTimeout"`
	ReadTimeout  string `json:"readTimeout"`
	ByteDelay    string `json:"byteDelay"`
}

//
func (a *api) getConfig(w http.ResponseWriter, req *http.Request) {

	cfg := a.flasher.Config()
	conf := &Config{
		ReplyTimeout: cfg.ReplyTimeout.String(),
		EraseTimeout: cfg.EraseTimeout.String(),
		ReadTimeout:  cfg.ReadTimeout.String(),
		ByteDelay:    cfg.ByteDelay.String(),
	}

	if item := getArg(req, "item"); item != "" {
		var val string
		switch item {
		case "reply-timeout":
			val = conf.ReplyTimeout
		case "erase-timeout":
			val = conf.EraseTimeout
		case "read-timeout":
			val = conf.ReadTimeout
		case "byte-delay":
			val = conf.ByteDelay
		default:
			handleError(fmt.Errorf("unknown config item: %s", item),
				http.StatusUnprocessableEntity, w)
			return
		}
		if wantsJSON(req) {
			sendJSONReply(map[string]string{item: val}, http.StatusOK, w)
		} else {
			sendReply([]byte(val+"\n"), http.StatusOK, w)
		}
		return
	}

	if wantsJSON(req) {
		sendJSONReply(conf, http.StatusOK, w)
		return
	}

	sendReply([]byte(fmt.Sprintf(
		"reply timeout:  %s\nerase timeout:  %s\nread timeout:   %s\nbyte delay:     %s\n",
		conf.ReplyTimeout, conf.EraseTimeout, conf.ReadTimeout, conf.ByteDelay)),
		http.StatusOK, w)
}
