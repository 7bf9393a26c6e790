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

// Package reconcile is the wake-cycle state machine. It decides on each
// cycle whether to trust the local time extrapolation, to sync the clock, or
// to spend one of the month's remote verification calls, and it corrects the
// time authority when the remote source shows the local model has drifted.
//
// An Engine owns its time authority and reconciliation record; there is no
// package state. Power-down and resume are the same as a process restart:
// the caller Boots a fresh Engine from the store every time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"github.com/moonwatch-project/moonwatch-core/pkg/timeauth"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBudget            = 25
	DefaultDriftTolerancePct = 5.0
	DefaultSyncInterval      = 24 * time.Hour
	DefaultSyncTimeout       = 10 * time.Second
	DefaultVerifyTimeout     = 15 * time.Second
)

// ClockSource returns the current UTC time from an authoritative source.
type ClockSource interface {
	SyncTime(ctx context.Context) (time.Time, error)
}

// Observation is what the remote verification service reports for a date.
// ServerTime is the service's own UTC time, when it provides one.
type Observation struct {
	Rise       *time.Time
	Set        *time.Time
	ServerTime *time.Time
	// AgeDays is the remote moon age, nil when the service didn't report one.
	AgeDays         *float64
	IlluminationPct float64
	Phase           astro.Phase
}

// Verifier queries the remote verification service.
type Verifier interface {
	Verify(ctx context.Context, loc astro.Location, date time.Time) (*Observation, error)
}

// Settings are the policy knobs.
type Settings struct {
	Location          astro.Location
	Budget            int
	DriftTolerancePct float64
	// SyncInterval is the re-sync period for an NTP-sourced clock. Less
	// trusted sources re-sync more often.
	SyncInterval  time.Duration
	SyncTimeout   time.Duration
	VerifyTimeout time.Duration
}

// DefaultSettings returns the stock policy for loc.
func DefaultSettings(loc astro.Location) Settings {
	return Settings{
		Location:          loc,
		Budget:            DefaultBudget,
		DriftTolerancePct: DefaultDriftTolerancePct,
		SyncInterval:      DefaultSyncInterval,
		SyncTimeout:       DefaultSyncTimeout,
		VerifyTimeout:     DefaultVerifyTimeout,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Budget < 0 {
		s.Budget = 0
	}
	if s.DriftTolerancePct <= 0 {
		s.DriftTolerancePct = DefaultDriftTolerancePct
	}
	if s.SyncInterval <= 0 {
		s.SyncInterval = DefaultSyncInterval
	}
	if s.SyncTimeout <= 0 {
		s.SyncTimeout = DefaultSyncTimeout
	}
	if s.VerifyTimeout <= 0 {
		s.VerifyTimeout = DefaultVerifyTimeout
	}
	return s
}

// syncIntervalFor is how long a clock from source is trusted before the
// next sync is due.
func (s Settings) syncIntervalFor(source timeauth.Source) time.Duration {
	switch source {
	case timeauth.SourceNTP:
		return s.SyncInterval
	case timeauth.SourceRemoteVerify:
		return s.SyncInterval / 4
	default:
		return s.SyncInterval / 24
	}
}

// Deps are the engine's collaborators. Verifier, Sink and RTC are optional.
type Deps struct {
	Clock    ClockSource
	Verifier Verifier
	Store    store.Store
	Sink     Sink
	Ticks    timeauth.TickSource
	RTC      timeauth.RTC
}

// Stats are process-lifetime counters. They are never persisted.
type Stats struct {
	Cycles          int
	SyncFailures    int
	VerifyFailures  int
	PersistFailures int
	Corrections     int
}

// CycleResult describes one Cycle.
type CycleResult struct {
	// Err is set when the cycle produced no MoonState: the time is
	// unavailable or the context was cancelled.
	Err error
	// SyncErr and VerifyErr are the outcomes of the two network steps. Both
	// are nil when the step was not attempted or succeeded.
	SyncErr    error
	VerifyErr  error
	Moon       *astro.MoonState
	Comparison *Comparison
	Frame      Frame
	State      State
	Synced     bool
	Verified   bool
	Corrected  bool
}

// Engine runs reconciliation cycles. It is not safe for concurrent use.
type Engine struct {
	deps     Deps
	restore  *timeauth.RestoreResult
	auth     *timeauth.Authority
	last     CycleResult
	rec      store.Reconciliation
	settings Settings
	stats    Stats
	// resync is set when the restored time is only a lower bound.
	resync bool
}

// Boot is the cold-start path, identical for process start and for waking
// from deep sleep. A missing or corrupt record leaves the engine in
// ClockUnknown; a valid one is restored into ClockLocal.
func Boot(ctx context.Context, deps Deps, settings Settings) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case deps.Clock == nil:
		return nil, errors.New("reconcile: clock source is required")
	case deps.Store == nil:
		return nil, errors.New("reconcile: store is required")
	case deps.Ticks == nil:
		return nil, errors.New("reconcile: tick source is required")
	}

	e := &Engine{
		deps:     deps,
		settings: settings.withDefaults(),
		auth:     timeauth.New(deps.Ticks),
	}

	rec, err := deps.Store.Load()
	switch {
	case errors.Is(err, store.ErrCorrupt):
		log.Warn().Err(err).Msg("reconcile: persisted record is corrupt, starting with unknown clock")
	case errors.Is(err, store.ErrNotFound):
		log.Info().Msg("reconcile: no persisted record, starting with unknown clock")
	case err != nil:
		log.Error().Err(err).Msg("reconcile: failed to load persisted record, starting with unknown clock")
	default:
		e.rec = rec.Reconciliation
		if rec.Time != nil {
			auth, res := timeauth.Restore(*rec.Time, deps.RTC, deps.Ticks)
			e.auth = auth
			e.restore = &res
			e.resync = res.NeedsResync()
			log.Info().
				Str("method", res.Method.String()).
				Dur("elapsed", res.Elapsed).
				Time("lastKnown", rec.Time.LastKnownUTC).
				Msg("reconcile: restored time from snapshot")
		}
	}

	return e, nil
}

// State is the current clock state.
func (e *Engine) State() State {
	return stateOf(e.auth)
}

// Stats returns the process-lifetime counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Last returns the result of the most recent Cycle.
func (e *Engine) Last() CycleResult {
	return e.last
}

// Restored returns how the time was restored at boot, if it was.
func (e *Engine) Restored() (timeauth.RestoreResult, bool) {
	if e.restore == nil {
		return timeauth.RestoreResult{}, false
	}
	return *e.restore, true
}

// Reconciliation returns the in-memory verification bookkeeping.
func (e *Engine) Reconciliation() store.Reconciliation {
	return e.rec
}

// Cycle runs one wake cycle: sync the clock if due, compute the MoonState,
// verify it if eligible, and render the result.
func (e *Engine) Cycle(ctx context.Context) CycleResult {
	e.stats.Cycles++
	var res CycleResult

	if e.syncDue() {
		if err := e.syncTime(ctx); err != nil {
			res.SyncErr = err
		} else {
			res.Synced = true
		}
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		res.State = e.State()
		e.last = res
		return res
	}

	res.State = e.State()
	now, err := e.auth.CurrentUTC()
	if err != nil {
		res.Err = err
		res.Frame = e.frame(nil, false, false)
		e.render(res.Frame)
		e.last = res
		return res
	}

	moon := astro.Calculate(now, e.settings.Location)
	res.Moon = &moon

	cmp, corrected, err := e.verify(ctx, now, moon, res.Synced)
	res.VerifyErr = err
	res.Comparison = cmp
	res.Verified = cmp != nil
	res.Corrected = corrected
	if corrected {
		now, err = e.auth.CurrentUTC()
		if err == nil {
			moon = astro.Calculate(now, e.settings.Location)
			res.Moon = &moon
		}
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		res.State = e.State()
		e.last = res
		return res
	}

	res.State = e.State()
	res.Frame = e.frame(res.Moon, cmp != nil && cmp.Drift, corrected)
	e.render(res.Frame)
	e.last = res
	return res
}

// Checkpoint persists the current time snapshot ahead of a planned sleep.
func (e *Engine) Checkpoint(plannedSleep time.Duration) error {
	if !e.auth.Established() {
		return nil
	}
	return e.persist(plannedSleep)
}

func (e *Engine) syncDue() bool {
	if !e.auth.Established() || e.resync {
		return true
	}
	at, _, ok := e.auth.LastCorrection()
	if !ok {
		return true
	}
	now, err := e.auth.CurrentUTC()
	if err != nil {
		return true
	}
	return now.Sub(at) >= e.settings.syncIntervalFor(e.auth.Source())
}

func (e *Engine) syncTime(ctx context.Context) error {
	syncCtx, cancel := context.WithTimeout(ctx, e.settings.SyncTimeout)
	defer cancel()

	utc, err := e.deps.Clock.SyncTime(syncCtx)
	if err == nil && !helpers.IsClockReliable(utc) {
		err = fmt.Errorf("implausible time %s", utc.Format(time.RFC3339))
	}
	if err != nil {
		e.stats.SyncFailures++
		log.Warn().Err(err).Int("failures", e.stats.SyncFailures).Msg("reconcile: clock sync failed")
		return fmt.Errorf("%w: clock sync: %w", ErrNetworkFailure, err)
	}

	e.auth.Establish(utc, timeauth.SourceNTP)
	e.resync = false
	log.Info().Time("utc", utc).Msg("reconcile: clock synced")

	if err := e.persist(0); err != nil {
		log.Error().Err(err).Msg("reconcile: failed to persist after clock sync")
	}
	return nil
}

// verify spends one verification call if the rules allow it. The returned
// comparison is nil unless a call succeeded.
func (e *Engine) verify(
	ctx context.Context,
	now time.Time,
	local astro.MoonState,
	syncedNTP bool,
) (*Comparison, bool, error) {
	if e.deps.Verifier == nil {
		return nil, false, ErrNoVerifier
	}

	month := store.MonthOf(now)
	if ShouldResetCounter(e.rec.Month, month) {
		if !e.rec.Month.IsZero() {
			log.Info().
				Stringer("from", e.rec.Month).
				Stringer("to", month).
				Msg("reconcile: month rolled over, resetting verification count")
		}
		e.rec.Month = month
		e.rec.MonthlyCallCount = 0
	}

	if err := eligibility(e.rec, now, e.settings.Budget); err != nil {
		if errors.Is(err, ErrBudgetExhausted) {
			log.Debug().
				Int("count", e.rec.MonthlyCallCount).
				Int("budget", e.settings.Budget).
				Msg("reconcile: verification budget exhausted")
		}
		return nil, false, err
	}

	// reserve the call before making it
	prev := e.rec
	e.rec.MonthlyCallCount++
	e.rec.LastAttemptUTC = now
	if err := e.persist(0); err != nil {
		e.rec = prev
		return nil, false, fmt.Errorf("failed to reserve verification call: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.settings.VerifyTimeout)
	obs, err := e.deps.Verifier.Verify(verifyCtx, e.settings.Location, now)
	cancel()
	if err == nil && obs == nil {
		err = errors.New("empty observation")
	}
	if err != nil {
		e.stats.VerifyFailures++
		log.Warn().Err(err).Int("failures", e.stats.VerifyFailures).Msg("reconcile: verification failed")
		return nil, false, fmt.Errorf("%w: verification: %w", ErrNetworkFailure, err)
	}

	cmp := Compare(local, *obs, e.settings.DriftTolerancePct)
	e.rec.LastVerificationUTC = now
	e.rec.LastDriftPct = cmp.IlluminationDelta

	ev := log.Info().
		Str("localPhase", cmp.LocalPhase.String()).
		Str("remotePhase", cmp.RemotePhase.String()).
		Float64("delta", cmp.IlluminationDelta).
		Int("count", e.rec.MonthlyCallCount)
	if cmp.AgeCompared {
		ev = ev.Float64("ageDelta", cmp.AgeDelta).Bool("ageMatch", cmp.AgeMatch)
	}
	switch {
	case cmp.Drift:
		ev.Msg("reconcile: drift detected")
	case cmp.BoundaryAmbiguity:
		ev.Msg("reconcile: phase boundary ambiguity, trusting illumination")
	default:
		ev.Msg("reconcile: verification agrees")
	}

	corrected := false
	if cmp.Drift {
		corrected = e.correct(obs, syncedNTP)
	}

	if err := e.persist(0); err != nil {
		log.Error().Err(err).Msg("reconcile: failed to persist verification result")
	}
	return &cmp, corrected, nil
}

// correct applies the remote time after drift. NTP outranks it: if the clock
// was synced this cycle the remote time is ignored.
func (e *Engine) correct(obs *Observation, syncedNTP bool) bool {
	switch {
	case obs.ServerTime == nil:
		log.Debug().Msg("reconcile: no remote time to correct with")
		return false
	case syncedNTP:
		log.Debug().Msg("reconcile: clock synced this cycle, not using remote time")
		return false
	case !helpers.IsClockReliable(*obs.ServerTime):
		log.Warn().Time("remote", *obs.ServerTime).Msg("reconcile: ignoring implausible remote time")
		return false
	case !e.auth.CanCorrect(*obs.ServerTime, timeauth.SourceRemoteVerify):
		log.Info().Msg("reconcile: remote time would move a more trusted clock backwards")
		return false
	}

	e.auth.Establish(*obs.ServerTime, timeauth.SourceRemoteVerify)
	e.stats.Corrections++
	log.Info().Time("utc", *obs.ServerTime).Msg("reconcile: corrected time from remote verification")
	return true
}

func (e *Engine) persist(plannedSleep time.Duration) error {
	rec := store.Record{Reconciliation: e.rec}
	if e.auth.Established() {
		snap, err := e.auth.Snapshot(e.deps.RTC, plannedSleep)
		if err != nil {
			return fmt.Errorf("failed to snapshot time: %w", err)
		}
		rec.Time = &snap
	}
	if err := e.deps.Store.Save(rec); err != nil {
		e.stats.PersistFailures++
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (e *Engine) frame(moon *astro.MoonState, drift, corrected bool) Frame {
	f := Frame{
		Moon:             moon,
		Location:         e.settings.Location,
		State:            e.State(),
		Source:           e.auth.Source(),
		LastVerification: e.rec.LastVerificationUTC,
		LastDriftPct:     e.rec.LastDriftPct,
		MonthlyCalls:     e.rec.MonthlyCallCount,
		Budget:           e.settings.Budget,
		Drift:            drift,
		Corrected:        corrected,
	}
	if at, _, ok := e.auth.LastCorrection(); ok {
		f.LastSync = at
	}
	if now, err := e.auth.CurrentUTC(); err == nil {
		f.At = now
	}
	return f
}

func (e *Engine) render(f Frame) {
	if e.deps.Sink == nil {
		return
	}
	e.deps.Sink.Render(f)
}
