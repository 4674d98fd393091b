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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var apiClient = &http.Client{Timeout: 30 * time.Second}

// AddAddressSetting adds the setting for talking to an API server instead of
// the device.
func (r *Runner) AddAddressSetting(def string) {
	r.AddSetting(&r.Address, "address", "a", "ADDRESS", def,
		"listen address of the API server, {host}:{port}", false)
}

// apiCall sends a request to the API server, and returns the reply body.
// Replies other than 2xx are turned into an error carrying the reply message.
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	addr := r.Address
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	req, err := http.NewRequest(method, addr+path, body)
	if err != nil {
		return nil, err
	}
	if json {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return resp.Body, nil
}
