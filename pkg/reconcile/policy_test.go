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

package reconcile_test

import (
	"testing"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestShouldResetCounter(t *testing.T) {
	t.Parallel()

	jan := store.MonthKey{Year: 2026, Month: time.January}

	tests := []struct {
		name      string
		persisted store.MonthKey
		current   store.MonthKey
		want      bool
	}{
		{name: "same month", persisted: jan, current: jan, want: false},
		{name: "next month", persisted: jan, current: store.MonthKey{Year: 2026, Month: time.February}, want: true},
		{name: "same month next year", persisted: jan, current: store.MonthKey{Year: 2027, Month: time.January}, want: true},
		{name: "december to january", persisted: store.MonthKey{Year: 2025, Month: time.December}, current: jan, want: true},
		{name: "clock moved back a month", persisted: jan, current: store.MonthKey{Year: 2025, Month: time.December}, want: false},
		{name: "nothing persisted", persisted: store.MonthKey{}, current: jan, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, reconcile.ShouldResetCounter(tt.persisted, tt.current))
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	local := func(p astro.Phase, illum float64) astro.MoonState {
		return astro.MoonState{Phase: p, IlluminationPct: illum}
	}
	remote := func(p astro.Phase, illum float64) reconcile.Observation {
		return reconcile.Observation{Phase: p, IlluminationPct: illum}
	}

	tests := []struct {
		name          string
		local         astro.MoonState
		remote        reconcile.Observation
		wantDrift     bool
		wantAmbiguous bool
	}{
		{
			name:   "agreement",
			local:  local(astro.PhaseFirstQuarter, 50),
			remote: remote(astro.PhaseFirstQuarter, 52),
		},
		{
			name:      "illumination beyond tolerance",
			local:     local(astro.PhaseFirstQuarter, 50),
			remote:    remote(astro.PhaseFirstQuarter, 58),
			wantDrift: true,
		},
		{
			name:   "exactly at tolerance",
			local:  local(astro.PhaseFirstQuarter, 50),
			remote: remote(astro.PhaseFirstQuarter, 55),
		},
		{
			name:          "adjacent phase within tolerance",
			local:         local(astro.PhaseFull, 99.9),
			remote:        remote(astro.PhaseWaningGibbous, 99),
			wantAmbiguous: true,
		},
		{
			name:          "adjacent across the new moon wrap",
			local:         local(astro.PhaseNew, 0.5),
			remote:        remote(astro.PhaseWaningCrescent, 1),
			wantAmbiguous: true,
		},
		{
			name:      "non-adjacent phase within tolerance",
			local:     local(astro.PhaseWaxingGibbous, 90),
			remote:    remote(astro.PhaseWaningGibbous, 90),
			wantDrift: true,
		},
		{
			name:      "adjacent phase beyond tolerance",
			local:     local(astro.PhaseWaxingCrescent, 20),
			remote:    remote(astro.PhaseFirstQuarter, 50),
			wantDrift: true,
		},
		{
			name:   "unrecognised remote phase",
			local:  local(astro.PhaseFull, 99),
			remote: remote(astro.PhaseUnknown, 98),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := reconcile.Compare(tt.local, tt.remote, reconcile.DefaultDriftTolerancePct)
			assert.Equal(t, tt.wantDrift, c.Drift, "drift")
			assert.Equal(t, tt.wantAmbiguous, c.BoundaryAmbiguity, "ambiguity")
			assert.GreaterOrEqual(t, c.IlluminationDelta, 0.0)
		})
	}
}

func TestCompareAge(t *testing.T) {
	t.Parallel()

	age := func(v float64) *float64 { return &v }

	tests := []struct {
		remoteAge    *float64
		name         string
		localAge     float64
		wantDelta    float64
		wantCompared bool
		wantMatch    bool
	}{
		{name: "no remote age", localAge: 7.4},
		{
			name:         "within half a day",
			localAge:     7.4,
			remoteAge:    age(7.7),
			wantDelta:    0.3,
			wantCompared: true,
			wantMatch:    true,
		},
		{
			name:         "a day apart",
			localAge:     7.4,
			remoteAge:    age(8.4),
			wantDelta:    1,
			wantCompared: true,
		},
		{
			name:         "across the new moon",
			localAge:     29.4,
			remoteAge:    age(0.1),
			wantDelta:    astro.SynodicMonth - 29.3,
			wantCompared: true,
			wantMatch:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			local := astro.MoonState{Phase: astro.PhaseFirstQuarter, IlluminationPct: 50, AgeDays: tt.localAge}
			remote := reconcile.Observation{
				Phase:           astro.PhaseFirstQuarter,
				IlluminationPct: 50,
				AgeDays:         tt.remoteAge,
			}

			c := reconcile.Compare(local, remote, reconcile.DefaultDriftTolerancePct)
			assert.Equal(t, tt.wantCompared, c.AgeCompared)
			assert.Equal(t, tt.wantMatch, c.AgeMatch)
			assert.InDelta(t, tt.wantDelta, c.AgeDelta, 1e-9)
			// age never decides drift
			assert.False(t, c.Drift)
		})
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "clock_unknown", reconcile.ClockUnknown.String())
	assert.Equal(t, "clock_local", reconcile.ClockLocal.String())
	assert.Equal(t, "clock_verified", reconcile.ClockVerified.String())
	assert.Equal(t, "invalid", reconcile.State(7).String())
}
