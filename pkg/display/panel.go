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

// Package display turns reconciliation frames into something a person can
// read: a text panel, log lines, or both.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
)

const (
	panelWidth = 50
	noEvent    = "--:--"
)

// Panel lays out a frame as the device's text panel.
type Panel struct {
	LocationName string
	// UTCOffset shifts times to the location's local clock.
	UTCOffset time.Duration
}

// Hemisphere names the observer's hemisphere, which decides whether the
// lit limb appears on the right or the left while waxing.
func Hemisphere(loc astro.Location) string {
	if loc.Latitude < 0 {
		return "South"
	}
	return "North"
}

func (p Panel) local(t time.Time) time.Time {
	return t.UTC().Add(p.UTCOffset)
}

func (p Panel) clock(t *time.Time) string {
	if t == nil {
		return noEvent
	}
	return p.local(*t).Format("15:04")
}

// Format renders f. A frame without a MoonState renders as the time
// unavailable panel and shows no phase at all.
func (p Panel) Format(f reconcile.Frame) string {
	var b strings.Builder
	rule := strings.Repeat("=", panelWidth)

	b.WriteString(rule + "\n")
	name := p.LocationName
	if name == "" {
		name = fmt.Sprintf("%.2f, %.2f", f.Location.Latitude, f.Location.Longitude)
	}
	fmt.Fprintf(&b, "Location:     %s\n", name)

	if f.TimeUnavailable() {
		b.WriteString("\n  Time unavailable: waiting for clock sync\n\n")
		fmt.Fprintf(&b, "Clock:        %s\n", f.State)
		b.WriteString(rule + "\n")
		return b.String()
	}

	m := f.Moon
	fmt.Fprintf(&b, "Date:         %s\n", p.local(f.At).Format("01/02/2006 15:04"))
	fmt.Fprintf(&b, "\n%s%s  %s\n\n", strings.Repeat(" ", 4), m.Phase.Glyph(), m.Phase)
	fmt.Fprintf(&b, "Age:          %.1f days\n", m.AgeDays)
	fmt.Fprintf(&b, "Illumination: %.1f%%\n", m.IlluminationPct)
	fmt.Fprintf(&b, "Hemisphere:   %s\n", Hemisphere(f.Location))
	fmt.Fprintf(&b, "Moon Rise:    %s\n", p.clock(m.Rise))
	fmt.Fprintf(&b, "Moon Set:     %s\n", p.clock(m.Set))
	fmt.Fprintf(&b, "Clock:        %s (%s)\n", f.State, f.Source)
	if f.Budget > 0 {
		fmt.Fprintf(&b, "Checks:       %d/%d this month\n", f.MonthlyCalls, f.Budget)
	}
	if f.Drift {
		outcome := "detected"
		if f.Corrected {
			outcome = "corrected"
		}
		fmt.Fprintf(&b, "Drift:        %.1f%% %s\n", f.LastDriftPct, outcome)
	}
	b.WriteString(rule + "\n")
	return b.String()
}
