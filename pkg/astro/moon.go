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

// Package astro is the local lunar model. Everything here is a pure function
// of a UTC timestamp and a fixed location: no I/O, no state, safe to call as
// often as needed.
//
// Accuracy is deliberately modest. Age comes from a mean synodic month
// counted from a single reference new moon, illumination from the cosine
// approximation (about 1% against an ephemeris), and rise/set from a
// low-precision lunar position good to a few minutes.
package astro

import (
	"math"
	"time"
)

const (
	// SynodicMonth is the mean new-moon-to-new-moon period in days.
	SynodicMonth = 29.53058867

	// ReferenceNewMoonJD is the new moon of 2000-01-06 18:14 UTC.
	ReferenceNewMoonJD = 2451550.26

	unixEpochJD   = 2440587.5
	secondsPerDay = 86400.0
)

// Location is the observer's fixed position in degrees. North and east are
// positive.
type Location struct {
	Latitude  float64
	Longitude float64
}

// MoonState is a snapshot of the moon at a single instant. It is a value and
// is never mutated after Calculate returns it.
type MoonState struct {
	At              time.Time
	Rise            *time.Time
	Set             *time.Time
	AgeDays         float64
	IlluminationPct float64
	Phase           Phase
}

// JulianDate converts a timestamp to a Julian date.
func JulianDate(t time.Time) float64 {
	secs := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return secs/secondsPerDay + unixEpochJD
}

// AgeDays returns days since the last new moon, always in [0, SynodicMonth),
// including for timestamps before the reference epoch.
func AgeDays(t time.Time) float64 {
	return normaliseAge(JulianDate(t) - ReferenceNewMoonJD)
}

// normaliseAge is a floored modulo: the result is never negative and never
// equal to SynodicMonth.
func normaliseAge(days float64) float64 {
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return 0
	}
	m := math.Mod(days, SynodicMonth)
	if m < 0 {
		m += SynodicMonth
	}
	// m+S can round up to exactly S for tiny negative m
	if m >= SynodicMonth {
		m = 0
	}
	return m
}

// Illumination returns the illuminated fraction of the disc as a percentage.
func Illumination(ageDays float64) float64 {
	angle := 2 * math.Pi * normaliseAge(ageDays) / SynodicMonth
	pct := (1 - math.Cos(angle)) / 2 * 100
	return math.Max(0, math.Min(100, pct))
}

// Calculate computes the full MoonState for t at loc.
func Calculate(t time.Time, loc Location) MoonState {
	t = t.UTC()
	age := AgeDays(t)
	rise, set := NextRiseSet(t, loc)
	return MoonState{
		At:              t,
		AgeDays:         age,
		IlluminationPct: Illumination(age),
		Phase:           PhaseForAge(age),
		Rise:            rise,
		Set:             set,
	}
}

// Waxing reports whether the moon is between new and full.
func (s MoonState) Waxing() bool {
	return s.AgeDays < SynodicMonth/2
}
