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

// Package clocksource gets the current UTC time from the network.
package clocksource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultQueryTimeout bounds a single server query when the context
	// has no deadline.
	DefaultQueryTimeout = 5 * time.Second
	// queryInterval spaces out queries to successive servers.
	queryInterval = 500 * time.Millisecond
)

// DefaultServers are tried in order.
var DefaultServers = []string{
	"pool.ntp.org",
	"time.google.com",
	"time.cloudflare.com",
}

var ErrNoServers = errors.New("no NTP servers configured")

// QueryFunc queries one NTP server.
type QueryFunc func(host string, opts ntp.QueryOptions) (*ntp.Response, error)

// NTP is a clock source backed by a list of NTP servers. It implements
// reconcile.ClockSource.
type NTP struct {
	clock   clockwork.Clock
	query   QueryFunc
	limiter *rate.Limiter
	servers []string
}

// NewNTP returns a source that tries servers in order. An empty list uses
// DefaultServers.
func NewNTP(servers []string) *NTP {
	return NewNTPWithQuery(servers, clockwork.NewRealClock(), ntp.QueryWithOptions)
}

// NewNTPWithQuery is NewNTP with the local clock and query function
// injected.
func NewNTPWithQuery(servers []string, clock clockwork.Clock, query QueryFunc) *NTP {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	return &NTP{
		servers: servers,
		clock:   clock,
		query:   query,
		limiter: rate.NewLimiter(rate.Every(queryInterval), 1),
	}
}

// SyncTime returns the local clock corrected by the first server that
// gives a valid response.
func (n *NTP) SyncTime(ctx context.Context) (time.Time, error) {
	if len(n.servers) == 0 {
		return time.Time{}, ErrNoServers
	}

	var errs []error
	for _, host := range n.servers {
		if err := n.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}

		timeout := DefaultQueryTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = min(timeout, time.Until(deadline))
		}
		if timeout <= 0 {
			errs = append(errs, context.DeadlineExceeded)
			break
		}

		resp, err := n.query(host, ntp.QueryOptions{Timeout: timeout})
		if err == nil {
			err = resp.Validate()
		}
		if err != nil {
			log.Debug().Err(err).Str("server", host).Msg("clocksource: ntp query failed")
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
			continue
		}

		now := n.clock.Now().Add(resp.ClockOffset).UTC()
		log.Debug().
			Str("server", host).
			Dur("offset", resp.ClockOffset).
			Dur("rtt", resp.RTT).
			Msg("clocksource: ntp sync")
		return now, nil
	}
	return time.Time{}, fmt.Errorf("all NTP servers failed: %w", errors.Join(errs...))
}
