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

// Package service runs the reconciliation engine on a schedule.
//
// A resident device boots the engine once and cycles it on every tick. A
// device that deep-sleeps between cycles loses its RAM on every wake, so in
// that mode each wake is a cold start through reconcile.Boot followed by a
// Checkpoint naming the planned sleep.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moonwatch-project/moonwatch-core/pkg/config"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval = time.Hour
	// RetryInterval is the wait after a cycle that couldn't tell the time.
	RetryInterval = time.Minute
)

// Options configures Run.
type Options struct {
	Clock     clockwork.Clock
	Settings  reconcile.Settings
	Interval  time.Duration
	DeepSleep bool
	// Once runs a single cold-start cycle and returns, for devices woken by
	// an external timer.
	Once bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// nextWait is how long to sleep after res.
func nextWait(res reconcile.CycleResult, interval time.Duration) time.Duration {
	if res.Err != nil && interval > RetryInterval {
		return RetryInterval
	}
	return interval
}

// Run cycles the engine until ctx is cancelled. It returns an error only if
// the engine can't be booted at all.
func Run(ctx context.Context, deps reconcile.Deps, opts Options) error {
	opts = opts.withDefaults()
	log.Info().Msgf("version: %s", config.AppVersion)

	switch {
	case opts.Once:
		_, err := wake(ctx, deps, opts)
		return err
	case opts.DeepSleep:
		return runSleeping(ctx, deps, opts)
	default:
		return runResident(ctx, deps, opts)
	}
}

// wake is one cold start: boot, cycle, checkpoint. It returns the planned
// sleep written into the checkpoint.
func wake(ctx context.Context, deps reconcile.Deps, opts Options) (time.Duration, error) {
	eng, err := reconcile.Boot(ctx, deps, opts.Settings)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to boot engine: %w", err)
	}

	res := eng.Cycle(ctx)
	if ctx.Err() != nil {
		log.Info().Msg("service: cycle cancelled")
		return 0, nil
	}
	logCycle(res)

	wait := nextWait(res, opts.Interval)
	if err := eng.Checkpoint(wait); err != nil {
		log.Error().Err(err).Msg("service: failed to checkpoint before sleep")
	}
	return wait, nil
}

func runSleeping(ctx context.Context, deps reconcile.Deps, opts Options) error {
	for {
		wait, err := wake(ctx, deps, opts)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		log.Debug().Msgf("service: sleeping for %s", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-opts.Clock.After(wait):
		}
	}
}

func runResident(ctx context.Context, deps reconcile.Deps, opts Options) error {
	eng, err := reconcile.Boot(ctx, deps, opts.Settings)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to boot engine: %w", err)
	}

	period := opts.Interval
	ticker := opts.Clock.NewTicker(period)
	defer ticker.Stop()

	for {
		res := eng.Cycle(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("service: cycle cancelled")
			return nil
		}
		logCycle(res)

		if wait := nextWait(res, opts.Interval); wait != period {
			period = wait
			ticker.Reset(period)
		}

		select {
		case <-ctx.Done():
			if err := eng.Checkpoint(0); err != nil {
				log.Error().Err(err).Msg("service: failed to checkpoint on shutdown")
			}
			return nil
		case <-ticker.Chan():
		}
	}
}

func logCycle(res reconcile.CycleResult) {
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("state", res.State.String()).Msg("service: no moon this cycle")
		return
	}
	ev := log.Info().Str("state", res.State.String())
	if res.Moon != nil {
		ev = ev.Str("phase", res.Moon.Phase.String()).
			Float64("illumination", res.Moon.IlluminationPct)
	}
	if res.SyncErr != nil {
		ev = ev.AnErr("sync", res.SyncErr)
	}
	if res.VerifyErr != nil {
		ev = ev.AnErr("verify", res.VerifyErr)
	}
	ev.Bool("synced", res.Synced).
		Bool("verified", res.Verified).
		Bool("corrected", res.Corrected).
		Msg("service: cycle complete")
}
