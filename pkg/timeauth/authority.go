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

// Package timeauth holds the device's best-known UTC time.
//
// The authority pairs a UTC instant with the tick count at which it was
// captured, so the current time is always
//
//	lastKnownUTC + (nowTick - establishedAtTick)
//
// until the next correction. It survives power loss through Snapshot and
// Restore. Before anything has established it the authority is in the
// Unestablished state and every read fails with ErrTimeUnavailable; it never
// falls back to an arbitrary epoch.
//
// An Authority is not safe for concurrent use. It is owned by the
// reconciliation engine, which runs on a single goroutine.
package timeauth

import (
	"errors"
	"time"
)

// ErrTimeUnavailable is returned when no clock source has ever succeeded and
// nothing was restored.
var ErrTimeUnavailable = errors.New("time unavailable: clock not established")

// rebaseAfter is half the counter's wrap period. Re-anchoring at least this
// often keeps a second rollover from ever being mistaken for a short gap.
const rebaseAfter = time.Duration(1<<31) * TickPeriod

// Authority is the persisted time authority.
type Authority struct {
	ticks         TickSource
	lastKnownUTC  time.Time
	highWater     time.Time
	correctedAt   time.Time
	establishedAt uint32
	source        Source
	correctedBy   Source
	established   bool
}

// New returns an Unestablished authority counting on ticks.
func New(ticks TickSource) *Authority {
	return &Authority{ticks: ticks}
}

// Establish unconditionally sets the time, its tick anchor and its source.
// It is a correction, so it also resets the monotonic floor: the only way
// for CurrentUTC to move backwards is through here.
func (a *Authority) Establish(utc time.Time, source Source) {
	utc = utc.UTC()
	a.lastKnownUTC = utc
	a.establishedAt = a.ticks.Ticks()
	a.source = source
	a.established = true
	a.highWater = utc
	if source != SourceElapsedOnly {
		a.correctedAt = utc
		a.correctedBy = source
	}
}

// CurrentUTC extrapolates the last known time by the ticks elapsed since it
// was captured. Results never decrease between calls unless Establish is
// called in between.
func (a *Authority) CurrentUTC() (time.Time, error) {
	if !a.established {
		return time.Time{}, ErrTimeUnavailable
	}

	now := a.ticks.Ticks()
	elapsed := elapsedTicks(a.establishedAt, now)
	cur := a.lastKnownUTC.Add(elapsed)

	if elapsed >= rebaseAfter {
		a.lastKnownUTC = cur
		a.establishedAt = now
	}

	if cur.Before(a.highWater) {
		return a.highWater, nil
	}
	a.highWater = cur
	return cur, nil
}

// ElapsedSince returns the time elapsed since tick, treating counter
// rollover as unsigned wraparound.
func (a *Authority) ElapsedSince(tick uint32) time.Duration {
	return elapsedTicks(tick, a.ticks.Ticks())
}

// Established reports whether the authority has a valid time.
func (a *Authority) Established() bool {
	return a.established
}

// Source is the provenance of the current time.
func (a *Authority) Source() Source {
	return a.source
}

// LastCorrection returns when and by which source the time was last
// corrected (NTP or remote verification). ok is false if it never was.
func (a *Authority) LastCorrection() (at time.Time, source Source, ok bool) {
	if a.correctedAt.IsZero() {
		return time.Time{}, SourceElapsedOnly, false
	}
	return a.correctedAt, a.correctedBy, true
}

// CanCorrect reports whether establishing utc from source is allowed without
// breaking monotonicity rules: moving forward is always fine, moving back
// needs a source at least as trusted as the current one.
func (a *Authority) CanCorrect(utc time.Time, source Source) bool {
	if !a.established {
		return true
	}
	cur, err := a.CurrentUTC()
	if err != nil {
		return true
	}
	if !utc.Before(cur) {
		return true
	}
	return source.Confidence() >= a.source.Confidence()
}
