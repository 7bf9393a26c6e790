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

import "strings"

// Phase is one of the eight principal lunar phase categories.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseWaxingCrescent
	PhaseFirstQuarter
	PhaseWaxingGibbous
	PhaseFull
	PhaseWaningGibbous
	PhaseLastQuarter
	PhaseWaningCrescent
	// PhaseUnknown is only produced when parsing a remote phase name that
	// doesn't match any category. Calculate never returns it.
	PhaseUnknown Phase = -1
)

// PhaseCount is the number of arcs the synodic month is divided into.
const PhaseCount = 8

var phaseNames = [PhaseCount]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseGlyphs = [PhaseCount]string{
	"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘",
}

func (p Phase) String() string {
	if !p.Valid() {
		return "Unknown"
	}
	return phaseNames[p]
}

// Glyph returns the moon emoji for the phase, or a generic moon for an
// unknown phase.
func (p Phase) Glyph() string {
	if !p.Valid() {
		return "🌙"
	}
	return phaseGlyphs[p]
}

func (p Phase) Valid() bool {
	return p >= PhaseNew && p <= PhaseWaningCrescent
}

// Distance returns the number of arcs between two phases going the short way
// round the cycle, 0 to 4. Unknown phases are always 4 apart.
func (p Phase) Distance(other Phase) int {
	if !p.Valid() || !other.Valid() {
		return PhaseCount / 2
	}
	d := int(p) - int(other)
	if d < 0 {
		d = -d
	}
	if d > PhaseCount/2 {
		d = PhaseCount - d
	}
	return d
}

// ParsePhase matches a phase name case-insensitively. The "Moon" suffix and
// separators are optional, so "full", "Full Moon" and "waxing_gibbous" all
// parse.
func ParsePhase(name string) Phase {
	key := normalisePhaseName(name)
	if key == "" {
		return PhaseUnknown
	}
	for i, n := range phaseNames {
		if normalisePhaseName(n) == key {
			return Phase(i)
		}
	}
	return PhaseUnknown
}

func normalisePhaseName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
	return strings.TrimSuffix(s, "moon")
}

// PhaseForAge buckets a moon age into one of eight equal arcs of S/8, counted
// from the new moon. Arcs are lower-inclusive and upper-exclusive; an age that
// rounds up to a full synodic month wraps round and belongs to New.
func PhaseForAge(ageDays float64) Phase {
	age := normaliseAge(ageDays)
	idx := int(age / (SynodicMonth / PhaseCount))
	return Phase(idx % PhaseCount)
}

// arcBounds returns the [lower, upper) age range of a phase arc.
func arcBounds(p Phase) (lower, upper float64) {
	arc := SynodicMonth / PhaseCount
	return float64(p) * arc, float64(p+1) * arc
}
