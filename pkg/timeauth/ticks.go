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

package timeauth

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mackerelio/go-osstat/uptime"
	"github.com/rs/zerolog/log"
)

// TickPeriod is the duration of one tick.
const TickPeriod = time.Millisecond

// TickSource is a free-running millisecond counter. It wraps at 2^32 (about
// 49.7 days) and restarts from an arbitrary value after power loss.
type TickSource interface {
	Ticks() uint32
}

// elapsedTicks is the unsigned wraparound difference between two counter
// readings. A single rollover between from and to is absorbed; the counter
// going "backwards" is read as a wrap, never as a fault.
func elapsedTicks(from, to uint32) time.Duration {
	return time.Duration(to-from) * TickPeriod
}

// ClockTicks counts milliseconds on a clockwork clock's monotonic reading.
type ClockTicks struct {
	clock  clockwork.Clock
	start  time.Time
	offset uint32
}

// NewClockTicks starts a counter at offset. A real clock gives a monotonic
// counter immune to wall-clock steps; a fake clock gives tests full control,
// and a large offset lets them start close to rollover.
func NewClockTicks(clock clockwork.Clock, offset uint32) *ClockTicks {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockTicks{clock: clock, start: clock.Now(), offset: offset}
}

func (c *ClockTicks) Ticks() uint32 {
	ms := int64(c.clock.Since(c.start) / TickPeriod)
	return c.offset + uint32(ms) //nolint:gosec // wraparound is the point
}

// UptimeTicks derives ticks from system uptime, so the counter keeps running
// across process restarts within one boot.
type UptimeTicks struct {
	get  func() (time.Duration, error)
	last uint32
}

// NewUptimeTicks probes the uptime source once and fails if it's unusable.
func NewUptimeTicks() (*UptimeTicks, error) {
	t := &UptimeTicks{get: uptime.Get}
	up, err := t.get()
	if err != nil {
		return nil, fmt.Errorf("failed to read system uptime: %w", err)
	}
	t.last = uint32(int64(up / TickPeriod)) //nolint:gosec // wraparound is the point
	return t, nil
}

// Ticks returns the uptime in milliseconds. If uptime can't be read the last
// good value is repeated, which only stalls the clock rather than jumping it.
func (t *UptimeTicks) Ticks() uint32 {
	up, err := t.get()
	if err != nil {
		log.Warn().Err(err).Msg("timeauth: failed to read uptime, holding last tick")
		return t.last
	}
	t.last = uint32(int64(up / TickPeriod)) //nolint:gosec // wraparound is the point
	return t.last
}
