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

package astro

import (
	"math"
	"time"
)

const (
	// RiseSetWindow is how far ahead NextRiseSet searches for horizon
	// crossings.
	RiseSetWindow = 24 * time.Hour

	riseSetStep = 10 * time.Minute

	// horizonAltitude accounts for the lunar semi-diameter and mean
	// parallax at the horizon.
	horizonAltitude = 0.133 * deg2rad

	j2000JD = 2451545.0
	deg2rad = math.Pi / 180

	// obliquity of the ecliptic at J2000
	obliquity = 23.4397 * deg2rad
)

// equatorial holds right ascension and declination in radians.
type equatorial struct {
	ra  float64
	dec float64
}

// moonPosition is a low-precision geocentric lunar position (truncated
// series, a few arcminutes of error), d days from J2000.
func moonPosition(d float64) equatorial {
	meanLon := deg2rad * (218.316 + 13.176396*d)
	meanAnomaly := deg2rad * (134.963 + 13.064993*d)
	argLat := deg2rad * (93.272 + 13.229350*d)

	lon := meanLon + deg2rad*6.289*math.Sin(meanAnomaly)
	lat := deg2rad * 5.128 * math.Sin(argLat)

	ra := math.Atan2(
		math.Sin(lon)*math.Cos(obliquity)-math.Tan(lat)*math.Sin(obliquity),
		math.Cos(lon),
	)
	dec := math.Asin(
		math.Sin(lat)*math.Cos(obliquity) + math.Cos(lat)*math.Sin(obliquity)*math.Sin(lon),
	)
	return equatorial{ra: ra, dec: dec}
}

// localSiderealTime in radians for d days from J2000 at longitude lon
// (degrees, east positive).
func localSiderealTime(d, lon float64) float64 {
	return deg2rad * (280.16 + 360.9856235*d + lon)
}

// altitudeDeg is the moon's altitude above the horizon in degrees.
func altitudeDeg(t time.Time, loc Location) float64 {
	return altitude(t, loc) / deg2rad
}

func altitude(t time.Time, loc Location) float64 {
	d := JulianDate(t) - j2000JD
	pos := moonPosition(d)
	hourAngle := localSiderealTime(d, loc.Longitude) - pos.ra
	phi := deg2rad * loc.Latitude
	return math.Asin(
		math.Sin(phi)*math.Sin(pos.dec) + math.Cos(phi)*math.Cos(pos.dec)*math.Cos(hourAngle),
	)
}

// NextRiseSet finds the first moonrise and moonset within RiseSetWindow of t.
// Either result is nil when the moon doesn't cross the horizon in that
// direction inside the window, which happens routinely near the poles and
// once a month everywhere because the lunar day is longer than 24 hours.
// That is not an error.
func NextRiseSet(t time.Time, loc Location) (rise, set *time.Time) {
	t = t.UTC()
	steps := int(RiseSetWindow / riseSetStep)

	prevT := t
	prevH := altitude(t, loc) - horizonAltitude
	for i := 1; i <= steps && (rise == nil || set == nil); i++ {
		curT := t.Add(time.Duration(i) * riseSetStep)
		curH := altitude(curT, loc) - horizonAltitude

		switch {
		case rise == nil && prevH < 0 && curH >= 0:
			ev := interpolateCrossing(prevT, prevH, curH)
			rise = &ev
		case set == nil && prevH >= 0 && curH < 0:
			ev := interpolateCrossing(prevT, prevH, curH)
			set = &ev
		}

		prevT, prevH = curT, curH
	}
	return rise, set
}

// interpolateCrossing linearly estimates when altitude passes zero between
// two samples one step apart.
func interpolateCrossing(from time.Time, h0, h1 float64) time.Time {
	frac := h0 / (h0 - h1)
	if math.IsNaN(frac) || frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return from.Add(time.Duration(frac * float64(riseSetStep))).Truncate(time.Second)
}
