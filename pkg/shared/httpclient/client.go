// Moonwatch Core
// Copyright (c) 2026 The Moonwatch Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Moonwatch Core.
//
// Moonwatch Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Moonwatch Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Moonwatch Core.  If not, see <http://www.gnu.org/licenses/>.

package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeoutSeconds is the default timeout for HTTP requests
	DefaultTimeoutSeconds = 30
)

// HeaderTransport adds a fixed set of headers, such as API keys, to every
// request.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

// RoundTrip implements http.RoundTripper. The request is cloned before its
// headers are touched.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if len(t.Headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.Headers {
			if v != "" {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP round trip: %w", err)
	}
	return resp, nil
}

// DefaultTransport is sized for a device making a handful of requests a day:
// short timeouts and almost no idle connections kept around.
var DefaultTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 15 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          2,
	MaxIdleConnsPerHost:   1,
	IdleConnTimeout:       30 * time.Second,
}

// Client is an HTTP client that sends the same headers on every request.
type Client struct {
	*http.Client
}

// NewClient creates a client with the default timeout.
func NewClient(headers map[string]string) *Client {
	return NewClientWithTimeout(headers, DefaultTimeoutSeconds*time.Second)
}

// NewClientWithTimeout creates a client with a custom overall timeout.
func NewClientWithTimeout(headers map[string]string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: &HeaderTransport{
				Base:    DefaultTransport,
				Headers: headers,
			},
			Timeout: timeout,
		},
	}
}
