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

// Package store persists the reconciliation record: the time authority
// snapshot plus the verification bookkeeping, in a single slot that every
// save replaces.
//
// Records are written through a checksummed envelope and verified on load.
// Anything that fails verification is reported as ErrCorrupt, which callers
// treat exactly like ErrNotFound.
package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/timeauth"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrCorrupt  = fmt.Errorf("%w: stored record is corrupt", ErrNotFound)
)

// Store loads and saves the one persisted record. Save must either fully
// replace the previous record or leave it intact.
type Store interface {
	Load() (Record, error)
	Save(rec Record) error
	Close() error
}

// MonthKey identifies a calendar month in UTC.
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) MonthKey {
	u := t.UTC()
	return MonthKey{Year: u.Year(), Month: u.Month()}
}

func (k MonthKey) IsZero() bool {
	return k == MonthKey{}
}

// After reports whether k is a later month than other.
func (k MonthKey) After(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year > other.Year
	}
	return k.Month > other.Month
}

func (k MonthKey) String() string {
	if k.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Reconciliation is the verification bookkeeping.
type Reconciliation struct {
	// LastVerificationUTC is the last successful verification.
	LastVerificationUTC time.Time `json:"last_verification_utc"`
	// LastAttemptUTC is the last reserved verification call, successful or
	// not. It gates the once-per-day rule.
	LastAttemptUTC time.Time `json:"last_attempt_utc"`
	// Month is the calendar month MonthlyCallCount belongs to.
	Month            MonthKey `json:"month"`
	MonthlyCallCount int      `json:"monthly_call_count"`
	// LastDriftPct is the illumination delta seen at the last verification.
	LastDriftPct float64 `json:"last_drift_pct"`
}

// Record is everything persisted between cycles. Time is nil until the
// authority has been established at least once.
type Record struct {
	Time           *timeauth.Snapshot `json:"time,omitempty"`
	Reconciliation Reconciliation     `json:"reconciliation"`
}

// Validate checks the record for values no healthy writer would produce.
func (r Record) Validate() error {
	rec := r.Reconciliation
	if rec.MonthlyCallCount < 0 {
		return fmt.Errorf("negative monthly call count: %d", rec.MonthlyCallCount)
	}
	if !rec.Month.IsZero() && (rec.Month.Month < time.January || rec.Month.Month > time.December) {
		return fmt.Errorf("invalid month: %d", int(rec.Month.Month))
	}
	if rec.MonthlyCallCount > 0 && rec.Month.IsZero() {
		return errors.New("monthly call count without a month")
	}
	if math.IsNaN(rec.LastDriftPct) || math.IsInf(rec.LastDriftPct, 0) || rec.LastDriftPct < 0 {
		return fmt.Errorf("invalid drift: %v", rec.LastDriftPct)
	}

	if r.Time != nil {
		if r.Time.LastKnownUTC.IsZero() {
			return errors.New("time snapshot without a known time")
		}
		if !r.Time.Source.Valid() {
			return fmt.Errorf("invalid time source: %d", int(r.Time.Source))
		}
		if r.Time.PlannedSleep < 0 {
			return fmt.Errorf("negative planned sleep: %s", r.Time.PlannedSleep)
		}
	}
	return nil
}
