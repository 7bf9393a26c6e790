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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsClockReliable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		time time.Time
		name string
		want bool
	}{
		{
			name: "year 2024 is reliable",
			time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "year 2026 is reliable",
			time: time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "year 2023 is unreliable",
			time: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			want: false,
		},
		{
			name: "epoch time (1970) is unreliable",
			time: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "unix zero is unreliable",
			time: time.Unix(0, 0),
			want: false,
		},
		{
			name: "zero time is unreliable",
			time: time.Time{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IsClockReliable(tt.time)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinReliableYear(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2024, MinReliableYear)
	assert.True(t, IsClockReliable(time.Date(MinReliableYear, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, IsClockReliable(time.Date(MinReliableYear-1, 12, 31, 23, 59, 59, 0, time.UTC)))
}

func TestCalendarBoundaries(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*3600)
	// 2026-01-31 22:00 EST is already February in UTC
	at := time.Date(2026, 1, 31, 22, 0, 0, 0, est)

	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), dayStart(at))
	assert.True(t, SameUTCDay(at, time.Date(2026, 2, 1, 23, 59, 59, 0, time.UTC)))
	assert.False(t, SameUTCDay(at, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)))
}
