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

package helpers

import "time"

const (
	// MinReliableYear is the earliest year considered valid for a wall clock.
	// Boards without a battery-backed RTC come up at the epoch (or at the
	// firmware build date) until something sets the clock, and nothing this
	// device persisted can predate this year.
	MinReliableYear = 2024
)

// IsClockReliable checks if a wall-clock reading looks like it was set.
// Returns false if the clock is clearly wrong (e.g., year < 2024).
func IsClockReliable(t time.Time) bool {
	return t.Year() >= MinReliableYear
}

// dayStart returns midnight UTC of t's day.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	return dayStart(a).Equal(dayStart(b))
}
