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

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/stretchr/testify/mock"
)

// MockVerifier is a mock implementation of reconcile.Verifier.
type MockVerifier struct {
	mock.Mock
}

// NewMockVerifier creates a new mock verifier.
func NewMockVerifier() *MockVerifier {
	return &MockVerifier{}
}

// Verify mocks a remote verification call.
func (m *MockVerifier) Verify(
	ctx context.Context,
	loc astro.Location,
	date time.Time,
) (*reconcile.Observation, error) {
	args := m.Called(ctx, loc, date)
	obs, _ := args.Get(0).(*reconcile.Observation)
	return obs, args.Error(1)
}

// SetupObservation configures the mock to return obs for any request.
func (m *MockVerifier) SetupObservation(obs *reconcile.Observation) *mock.Call {
	return m.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(obs, nil)
}

// SetupFailure configures the mock to fail every request with err.
func (m *MockVerifier) SetupFailure(err error) *mock.Call {
	return m.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(nil, err)
}
