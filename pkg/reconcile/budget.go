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

import (
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/helpers"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
)

// ShouldResetCounter reports whether the monthly call count belongs to an
// earlier UTC calendar month than current and must be reset. A clock that
// moved back into an earlier month keeps counting against the persisted
// month, so a correction can never hand out a second budget.
func ShouldResetCounter(persisted, current store.MonthKey) bool {
	return current.After(persisted)
}

// eligibility checks the verification rules against the bookkeeping,
// assuming any month rollover has already been applied.
func eligibility(rec store.Reconciliation, now time.Time, budget int) error {
	// a clock set back behind the last attempt also waits for a new day
	last := rec.LastAttemptUTC
	if !last.IsZero() && (helpers.SameUTCDay(now, last) || now.Before(last)) {
		return ErrAlreadyVerifiedToday
	}
	if rec.MonthlyCallCount >= budget {
		return ErrBudgetExhausted
	}
	return nil
}
