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

package reconcile

import (
	"math"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
)

// AgeMatchDays is the largest age difference, in days, still reported as a
// match. It is informational; drift is decided by illumination and phase.
const AgeMatchDays = 0.5

// Comparison is the outcome of checking the local model against a remote
// observation.
type Comparison struct {
	LocalPhase        astro.Phase
	RemotePhase       astro.Phase
	IlluminationDelta float64
	// PhaseMismatch is set whenever the categories differ.
	PhaseMismatch bool
	// BoundaryAmbiguity is a mismatch between neighbouring phases while the
	// illumination agrees. It is not drift.
	BoundaryAmbiguity bool
	Drift             bool
	// AgeDelta is the difference in moon age the short way round the cycle.
	// It is only meaningful when AgeCompared is set.
	AgeDelta    float64
	AgeCompared bool
	AgeMatch    bool
}

// Compare decides whether local and remote disagree enough to count as
// drift. Illumination beyond tolerancePct is always drift. A phase mismatch
// is drift unless the two phases are neighbours and illumination agrees, in
// which case the illumination figure wins over the coarser category. An
// unrecognised remote phase is ignored.
func Compare(local astro.MoonState, remote Observation, tolerancePct float64) Comparison {
	c := Comparison{
		LocalPhase:        local.Phase,
		RemotePhase:       remote.Phase,
		IlluminationDelta: math.Abs(local.IlluminationPct - remote.IlluminationPct),
	}
	c.PhaseMismatch = remote.Phase.Valid() && remote.Phase != local.Phase
	if remote.AgeDays != nil {
		c.AgeDelta = ageDelta(local.AgeDays, *remote.AgeDays)
		c.AgeCompared = true
		c.AgeMatch = c.AgeDelta <= AgeMatchDays
	}

	switch {
	case c.IlluminationDelta > tolerancePct:
		c.Drift = true
	case c.PhaseMismatch && local.Phase.Distance(remote.Phase) <= 1:
		c.BoundaryAmbiguity = true
	case c.PhaseMismatch:
		c.Drift = true
	}
	return c
}

// ageDelta is |a-b| on the synodic cycle, so 29.4 and 0.1 are 0.23 days
// apart rather than 29.3.
func ageDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), astro.SynodicMonth)
	return math.Min(d, astro.SynodicMonth-d)
}
