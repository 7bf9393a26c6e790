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

package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/config"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"gopkg.in/yaml.v3"
)

type storeStatus struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Error   string `yaml:"error,omitempty"`
}

type clockStatus struct {
	LastKnownUTC   time.Time  `yaml:"last_known_utc"`
	PersistedAtUTC time.Time  `yaml:"persisted_at_utc"`
	LastSyncUTC    *time.Time `yaml:"last_sync_utc,omitempty"`
	Source         string     `yaml:"source"`
	PlannedSleep   string     `yaml:"planned_sleep,omitempty"`
}

type verificationStatus struct {
	LastVerificationUTC *time.Time `yaml:"last_verification_utc,omitempty"`
	LastAttemptUTC      *time.Time `yaml:"last_attempt_utc,omitempty"`
	Month               string     `yaml:"month"`
	Calls               int        `yaml:"calls"`
	Budget              int        `yaml:"budget"`
	LastDriftPct        float64    `yaml:"last_drift_pct"`
}

type statusReport struct {
	Clock        *clockStatus       `yaml:"clock"`
	Version      string             `yaml:"version"`
	DeviceID     string             `yaml:"device_id"`
	Config       string             `yaml:"config"`
	Location     string             `yaml:"location"`
	Store        storeStatus        `yaml:"store"`
	Verification verificationStatus `yaml:"verification"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func newStatusReport(cfg *config.Instance, dataDir string, rec store.Record, loadErr error) statusReport {
	report := statusReport{
		Version:  config.AppVersion,
		DeviceID: cfg.DeviceID(),
		Config:   cfg.Path(),
		Location: cfg.LocationName(),
		Store: storeStatus{
			Backend: cfg.StorageBackend(),
			Path:    cfg.StoragePath(dataDir),
		},
		Verification: verificationStatus{
			Month:  store.MonthKey{}.String(),
			Budget: cfg.MonthlyBudget(),
		},
	}

	switch {
	case errors.Is(loadErr, store.ErrCorrupt):
		report.Store.Error = "corrupt: " + loadErr.Error()
	case errors.Is(loadErr, store.ErrNotFound):
		report.Store.Error = "no record yet"
	case loadErr != nil:
		report.Store.Error = loadErr.Error()
	}
	if loadErr != nil {
		return report
	}

	rc := rec.Reconciliation
	report.Verification.Month = rc.Month.String()
	report.Verification.Calls = rc.MonthlyCallCount
	report.Verification.LastDriftPct = rc.LastDriftPct
	report.Verification.LastVerificationUTC = optionalTime(rc.LastVerificationUTC)
	report.Verification.LastAttemptUTC = optionalTime(rc.LastAttemptUTC)

	if snap := rec.Time; snap != nil {
		report.Clock = &clockStatus{
			LastKnownUTC:   snap.LastKnownUTC.UTC(),
			PersistedAtUTC: snap.PersistedAtUTC.UTC(),
			LastSyncUTC:    optionalTime(snap.LastSyncUTC),
			Source:         snap.Source.String(),
		}
		if snap.PlannedSleep > 0 {
			report.Clock.PlannedSleep = snap.PlannedSleep.String()
		}
	}
	return report
}

// WriteStatus prints the persisted record as YAML. A missing or corrupt
// record is reported, not returned as an error.
func WriteStatus(w io.Writer, cfg *config.Instance, dataDir string) error {
	var (
		rec     store.Record
		loadErr error
	)
	st, err := store.Open(cfg.StorageBackend(), cfg.StoragePath(dataDir))
	if err != nil {
		loadErr = err
	} else {
		rec, loadErr = st.Load()
		_ = st.Close()
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newStatusReport(cfg, dataDir, rec, loadErr)); err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return nil
}
