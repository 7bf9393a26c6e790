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
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClockSource is a mock implementation of reconcile.ClockSource.
type MockClockSource struct {
	mock.Mock
}

// NewMockClockSource creates a new mock clock source.
func NewMockClockSource() *MockClockSource {
	return &MockClockSource{}
}

// SyncTime mocks a clock sync.
func (m *MockClockSource) SyncTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(time.Time)
	return t, args.Error(1)
}

// SetupSync configures the mock to return utc once.
func (m *MockClockSource) SetupSync(utc time.Time) *mock.Call {
	return m.On("SyncTime", mock.Anything).Return(utc, nil).Once()
}

// SetupFailure configures the mock to fail once with err.
func (m *MockClockSource) SetupFailure(err error) *mock.Call {
	return m.On("SyncTime", mock.Anything).Return(time.Time{}, err).Once()
}
