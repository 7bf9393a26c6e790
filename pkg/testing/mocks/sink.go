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

package mocks

import (
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/stretchr/testify/mock"
)

// MockSink is a mock implementation of reconcile.Sink that also records
// every frame it was given.
type MockSink struct {
	mock.Mock
	Frames []reconcile.Frame
}

// NewMockSink creates a sink that accepts any frame.
func NewMockSink() *MockSink {
	m := &MockSink{}
	m.On("Render", mock.Anything).Return()
	return m
}

// Render records the frame.
func (m *MockSink) Render(frame reconcile.Frame) {
	m.Called(frame)
	m.Frames = append(m.Frames, frame)
}

// LastFrame returns the most recent frame, or false if none was rendered.
func (m *MockSink) LastFrame() (reconcile.Frame, bool) {
	if len(m.Frames) == 0 {
		return reconcile.Frame{}, false
	}
	return m.Frames[len(m.Frames)-1], true
}
