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
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/timeauth"
)

// Frame is everything a presentation sink gets each cycle. Moon is nil when
// the time is unavailable; sinks must render that as such and never show a
// computed phase.
type Frame struct {
	At               time.Time
	LastSync         time.Time
	LastVerification time.Time
	Moon             *astro.MoonState
	Location         astro.Location
	State            State
	Source           timeauth.Source
	LastDriftPct     float64
	MonthlyCalls     int
	Budget           int
	Drift            bool
	// Corrected is set when the drift moved the clock to the remote time.
	Corrected bool
}

// TimeUnavailable reports whether this is the no-valid-time sentinel.
func (f Frame) TimeUnavailable() bool {
	return f.Moon == nil
}

// Sink consumes frames. Render must not fail the cycle; sinks log their own
// problems.
type Sink interface {
	Render(frame Frame)
}
