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
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers"
)

// maxRTCElapsed caps how far an RTC hint may advance a restored time. A
// bigger gap means the RTC itself was reset or is garbage.
const maxRTCElapsed = 5 * 365 * 24 * time.Hour

// RTC is a low-power timekeeping hint that keeps counting while the main
// processor is off, such as a battery-backed real-time clock. ok is false
// when no reading is available.
type RTC interface {
	Now() (t time.Time, ok bool)
}

// SystemRTC reads a clockwork clock, normally the OS wall clock, and only
// offers readings that look like the clock has been set.
type SystemRTC struct {
	Clock clockwork.Clock
}

func (r SystemRTC) Now() (time.Time, bool) {
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now().UTC()
	return now, helpers.IsClockReliable(now)
}

// Snapshot is the persisted form of the authority.
type Snapshot struct {
	// LastKnownUTC is the authority's time when the snapshot was taken.
	LastKnownUTC time.Time `json:"last_known_utc"`
	// PersistedAtUTC is the RTC reading at the same moment, or LastKnownUTC
	// when no RTC was available. Only the difference between this and a later
	// RTC reading is used, so an RTC that runs at the right rate but was
	// never set still gives a usable hint.
	PersistedAtUTC time.Time `json:"persisted_at_utc"`
	// LastSyncUTC is when the time was last corrected by Source. Zero if it
	// never was.
	LastSyncUTC time.Time `json:"last_sync_utc"`
	// Source is the provenance of the last correction.
	Source Source `json:"source"`
	// PlannedSleep is how long the device intended to sleep after taking
	// the snapshot. Zero when not going to sleep.
	PlannedSleep time.Duration `json:"planned_sleep,omitempty"`
}

// Snapshot captures the authority for persistence. rtc may be nil.
func (a *Authority) Snapshot(rtc RTC, plannedSleep time.Duration) (Snapshot, error) {
	now, err := a.CurrentUTC()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		LastKnownUTC:   now,
		PersistedAtUTC: now,
		Source:         a.source,
		PlannedSleep:   plannedSleep,
	}
	if at, src, ok := a.LastCorrection(); ok {
		snap.LastSyncUTC = at
		snap.Source = src
	}
	if rtc != nil {
		if rtcNow, ok := rtc.Now(); ok {
			snap.PersistedAtUTC = rtcNow
		}
	}
	return snap, nil
}

// RestoreMethod says how the elapsed time since a snapshot was estimated.
type RestoreMethod int

const (
	// RestoreRTC advanced the time by the RTC's elapsed reading.
	RestoreRTC RestoreMethod = iota
	// RestorePlannedSleep advanced the time by the planned sleep duration.
	RestorePlannedSleep
	// RestoreElapsedUnknown kept the persisted time as a lower bound; the
	// caller must re-sync before trusting it.
	RestoreElapsedUnknown
)

func (m RestoreMethod) String() string {
	switch m {
	case RestoreRTC:
		return "rtc"
	case RestorePlannedSleep:
		return "planned_sleep"
	case RestoreElapsedUnknown:
		return "elapsed_unknown"
	default:
		return "unknown"
	}
}

// RestoreResult describes a Restore.
type RestoreResult struct {
	Method  RestoreMethod
	Elapsed time.Duration
}

// NeedsResync reports whether the restored time is only a lower bound.
func (r RestoreResult) NeedsResync() bool {
	return r.Method == RestoreElapsedUnknown
}

// Restore rebuilds an authority from a snapshot after a reset, advancing it
// by the best available estimate of the time spent powered down. The result
// is always established with SourceElapsedOnly; the snapshot's correction
// history is carried over. rtc may be nil.
func Restore(snap Snapshot, rtc RTC, ticks TickSource) (*Authority, RestoreResult) {
	res := RestoreResult{Method: RestoreElapsedUnknown}

	if rtc != nil {
		if rtcNow, ok := rtc.Now(); ok {
			elapsed := rtcNow.Sub(snap.PersistedAtUTC)
			if elapsed >= 0 && elapsed <= maxRTCElapsed {
				res = RestoreResult{Method: RestoreRTC, Elapsed: elapsed}
			}
		}
	}
	if res.Method == RestoreElapsedUnknown && snap.PlannedSleep > 0 {
		res = RestoreResult{Method: RestorePlannedSleep, Elapsed: snap.PlannedSleep}
	}

	a := New(ticks)
	a.Establish(snap.LastKnownUTC.Add(res.Elapsed), SourceElapsedOnly)
	if snap.Source != SourceElapsedOnly && !snap.LastSyncUTC.IsZero() {
		a.correctedAt = snap.LastSyncUTC.UTC()
		a.correctedBy = snap.Source
	}
	return a, res
}
