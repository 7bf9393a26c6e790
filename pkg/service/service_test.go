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

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers/syncutil"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"github.com/moonwatch-project/moonwatch-core/pkg/testing/helpers"
	"github.com/moonwatch-project/moonwatch-core/pkg/timeauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	annArbor  = astro.Location{Latitude: 42.2808, Longitude: -83.7430}
	startTime = time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
)

// frameSink hands frames to the test goroutine.
type frameSink chan reconcile.Frame

func (s frameSink) Render(f reconcile.Frame) {
	s <- f
}

// stubClock answers from the fake clock for the first ok calls, then fails.
type stubClock struct {
	clock clockwork.Clock
	ok    int
	calls int
	mu    syncutil.Mutex
}

func (s *stubClock) SyncTime(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.ok >= 0 && s.calls > s.ok {
		return time.Time{}, errors.New("no network")
	}
	return s.clock.Now().UTC(), nil
}

func (s *stubClock) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	clock  *clockwork.FakeClock
	source *stubClock
	store  *store.FileStore
	frames frameSink
	deps   reconcile.Deps
}

// newFixture answers okSyncs clock syncs; -1 answers all of them.
func newFixture(okSyncs int) *fixture {
	clock := clockwork.NewFakeClockAt(startTime)
	st, _ := helpers.NewMemoryStore()
	f := &fixture{
		clock:  clock,
		source: &stubClock{clock: clock, ok: okSyncs},
		store:  st,
		frames: make(frameSink, 16),
	}
	f.deps = reconcile.Deps{
		Clock: f.source,
		Store: st,
		Sink:  f.frames,
		Ticks: timeauth.NewClockTicks(clock, 0),
	}
	return f
}

func (f *fixture) options() Options {
	return Options{
		Clock:    f.clock,
		Settings: reconcile.DefaultSettings(annArbor),
		Interval: time.Hour,
	}
}

// nextFrame waits for the loop to block on the fake clock, then advances it
// by step until the loop renders again. A resident ticker may not have been
// reset yet when the clock first moves, so it keeps stepping.
func (f *fixture) nextFrame(t *testing.T, step time.Duration) reconcile.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))

	for {
		f.clock.Advance(step)
		select {
		case fr := <-f.frames:
			return fr
		case <-ctx.Done():
			t.Fatal("timed out waiting for a frame")
			return reconcile.Frame{}
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// firstFrame waits without touching the clock, so the first sync reads
// startTime.
func (f *fixture) firstFrame(t *testing.T) reconcile.Frame {
	t.Helper()
	select {
	case fr := <-f.frames:
		return fr
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first frame")
		return reconcile.Frame{}
	}
}

func (f *fixture) start(t *testing.T, opts Options) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, f.deps, opts)
	}()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(-1)
	opts := f.options()
	opts.Once = true
	opts.Interval = 30 * time.Minute

	require.NoError(t, Run(context.Background(), f.deps, opts))

	require.Len(t, f.frames, 1)
	fr := <-f.frames
	assert.Equal(t, reconcile.ClockVerified, fr.State)
	require.NotNil(t, fr.Moon)
	assert.Equal(t, astro.PhaseWaxingGibbous, fr.Moon.Phase)

	rec, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec.Time)
	assert.Equal(t, 30*time.Minute, rec.Time.PlannedSleep)
	assert.Equal(t, startTime, rec.Time.LastKnownUTC)
}

func TestRunResidentCyclesOnTicks(t *testing.T) {
	t.Parallel()

	f := newFixture(-1)
	stop := f.start(t, f.options())

	first := f.firstFrame(t)
	assert.Equal(t, reconcile.ClockVerified, first.State)
	assert.Equal(t, startTime, first.At)

	second := f.nextFrame(t, time.Hour)
	assert.Equal(t, reconcile.ClockVerified, second.State)
	assert.True(t, second.At.After(first.At))

	stop()

	// one sync serves the whole day
	assert.Equal(t, 1, f.source.Calls())

	rec, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec.Time)
	assert.Zero(t, rec.Time.PlannedSleep)
}

func TestRunResidentRetriesSoonerWithoutTime(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	stop := f.start(t, f.options())
	defer stop()

	first := f.firstFrame(t)
	assert.True(t, first.TimeUnavailable())
	assert.Equal(t, reconcile.ClockUnknown, first.State)

	start := f.clock.Now()
	second := f.nextFrame(t, RetryInterval)
	assert.True(t, second.TimeUnavailable())
	assert.Less(t, f.clock.Since(start), time.Hour)
}

func TestRunDeepSleepColdStartsEveryWake(t *testing.T) {
	t.Parallel()

	// the first wake syncs; every later one is offline
	f := newFixture(1)
	opts := f.options()
	opts.DeepSleep = true
	stop := f.start(t, opts)
	defer stop()

	first := f.firstFrame(t)
	assert.Equal(t, reconcile.ClockVerified, first.State)

	// RAM is gone on wake: the time comes back from the checkpoint
	second := f.nextFrame(t, time.Hour)
	assert.Equal(t, reconcile.ClockLocal, second.State)
	assert.Equal(t, timeauth.SourceElapsedOnly, second.Source)
	assert.Equal(t, startTime.Add(time.Hour), second.At)
	assert.Equal(t, startTime, second.LastSync)
}

func TestRunBootFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(-1)
	f.deps.Clock = nil

	err := Run(context.Background(), f.deps, f.options())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to boot engine")
	assert.Empty(t, f.frames)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	f := newFixture(-1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, opts := range []Options{
		f.options(),
		{Clock: f.clock, Once: true},
		{Clock: f.clock, DeepSleep: true},
	} {
		require.NoError(t, Run(ctx, f.deps, opts))
	}
	assert.Empty(t, f.frames)
	assert.Zero(t, f.source.Calls())
}

func TestNextWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		res      reconcile.CycleResult
		interval time.Duration
		want     time.Duration
	}{
		{name: "normal cycle", interval: time.Hour, want: time.Hour},
		{
			name:     "network failure keeps schedule",
			res:      reconcile.CycleResult{SyncErr: reconcile.ErrNetworkFailure},
			interval: time.Hour,
			want:     time.Hour,
		},
		{
			name:     "time unavailable retries sooner",
			res:      reconcile.CycleResult{Err: timeauth.ErrTimeUnavailable},
			interval: time.Hour,
			want:     RetryInterval,
		},
		{
			name:     "short interval is kept",
			res:      reconcile.CycleResult{Err: timeauth.ErrTimeUnavailable},
			interval: 30 * time.Second,
			want:     30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nextWait(tt.res, tt.interval))
		})
	}
}
