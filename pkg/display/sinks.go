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

package display

import (
	"io"

	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/rs/zerolog/log"
)

// ConsoleSink writes the text panel to a writer.
type ConsoleSink struct {
	w     io.Writer
	panel Panel
}

func NewConsoleSink(w io.Writer, panel Panel) *ConsoleSink {
	return &ConsoleSink{w: w, panel: panel}
}

func (s *ConsoleSink) Render(f reconcile.Frame) {
	if _, err := io.WriteString(s.w, s.panel.Format(f)); err != nil {
		log.Warn().Err(err).Msg("display: failed to write panel")
	}
}

// LogSink logs each frame as a structured line.
type LogSink struct{}

func (LogSink) Render(f reconcile.Frame) {
	if f.TimeUnavailable() {
		log.Warn().Str("state", f.State.String()).Msg("display: time unavailable")
		return
	}
	ev := log.Info().
		Time("at", f.At).
		Str("phase", f.Moon.Phase.String()).
		Float64("illumination", f.Moon.IlluminationPct).
		Float64("age", f.Moon.AgeDays).
		Str("state", f.State.String()).
		Str("source", f.Source.String()).
		Int("checks", f.MonthlyCalls)
	if f.Moon.Rise != nil {
		ev = ev.Time("rise", *f.Moon.Rise)
	}
	if f.Moon.Set != nil {
		ev = ev.Time("set", *f.Moon.Set)
	}
	ev.Bool("drift", f.Drift).Bool("corrected", f.Corrected).Msg("display: moon updated")
}

type multi []reconcile.Sink

// Multi renders each frame to every sink in order. Nil sinks are skipped.
func Multi(sinks ...reconcile.Sink) reconcile.Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Render(f reconcile.Frame) {
	for _, s := range m {
		s.Render(f)
	}
}
