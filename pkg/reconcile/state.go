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

import "github.com/moonwatch-project/moonwatch-core/pkg/timeauth"

// State is the clock state of the reconciliation state machine. It is never
// stored; it is read off the time authority every cycle.
type State int

const (
	// ClockUnknown means no valid time: nothing was restored and no clock
	// source has succeeded.
	ClockUnknown State = iota
	// ClockLocal means the time is an extrapolation of a restored snapshot.
	ClockLocal
	// ClockVerified means the time was corrected by NTP or by remote
	// verification during this session.
	ClockVerified
)

func (s State) String() string {
	switch s {
	case ClockUnknown:
		return "clock_unknown"
	case ClockLocal:
		return "clock_local"
	case ClockVerified:
		return "clock_verified"
	default:
		return "invalid"
	}
}

func stateOf(a *timeauth.Authority) State {
	switch {
	case !a.Established():
		return ClockUnknown
	case a.Source() == timeauth.SourceElapsedOnly:
		return ClockLocal
	default:
		return ClockVerified
	}
}
