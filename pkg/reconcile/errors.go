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

import "errors"

var (
	// ErrNetworkFailure wraps a failed clock sync or verification call.
	// It is recovered by waiting for the next eligible cycle.
	ErrNetworkFailure = errors.New("network failure")
	// ErrBudgetExhausted means this month's verification calls are used up.
	// It is informational: the local MoonState stands.
	ErrBudgetExhausted = errors.New("monthly verification budget exhausted")
	// ErrAlreadyVerifiedToday means a verification was already attempted on
	// the current UTC day.
	ErrAlreadyVerifiedToday = errors.New("verification already attempted today")
	// ErrNoVerifier means remote verification is not configured.
	ErrNoVerifier = errors.New("no verifier configured")
)
