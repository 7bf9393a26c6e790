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

// ManualTicks is a millisecond tick counter that only moves when told to.
type ManualTicks struct {
	Value uint32
}

func (m *ManualTicks) Ticks() uint32 {
	return m.Value
}

// Advance moves the counter forward by d, wrapping at 2^32.
func (m *ManualTicks) Advance(d time.Duration) {
	m.Value += uint32(d.Milliseconds()) //nolint:gosec // wraparound is the point
}
