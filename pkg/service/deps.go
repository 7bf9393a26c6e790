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
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/moonwatch-project/moonwatch-core/pkg/clocksource"
	"github.com/moonwatch-project/moonwatch-core/pkg/config"
	"github.com/moonwatch-project/moonwatch-core/pkg/display"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/moonwatch-project/moonwatch-core/pkg/service/publishers"
	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"github.com/moonwatch-project/moonwatch-core/pkg/timeauth"
	"github.com/moonwatch-project/moonwatch-core/pkg/verify"
	"github.com/rs/zerolog/log"
)

// SettingsFromConfig maps the config file onto the engine's policy.
func SettingsFromConfig(cfg *config.Instance) reconcile.Settings {
	s := reconcile.DefaultSettings(cfg.Location())
	s.Budget = cfg.MonthlyBudget()
	s.DriftTolerancePct = cfg.DriftTolerancePct()
	s.SyncInterval = cfg.SyncInterval()
	s.SyncTimeout = cfg.SyncTimeout()
	s.VerifyTimeout = cfg.VerifyTimeout()
	return s
}

// OptionsFromConfig builds Run options. once overrides the config's mode.
func OptionsFromConfig(cfg *config.Instance, once bool) Options {
	return Options{
		Settings:  SettingsFromConfig(cfg),
		Interval:  cfg.CycleInterval(),
		DeepSleep: cfg.DeepSleep(),
		Once:      once,
	}
}

// NewTicks returns the configured tick source, falling back to the process
// monotonic clock if uptime can't be read.
func NewTicks(kind string) timeauth.TickSource {
	if kind == config.TickSourceUptime {
		ticks, err := timeauth.NewUptimeTicks()
		if err == nil {
			return ticks
		}
		log.Warn().Err(err).Msg("service: uptime unavailable, using monotonic clock ticks")
	}
	return timeauth.NewClockTicks(clockwork.NewRealClock(), 0)
}

// NewVerifier returns nil with a warning when no API key is configured;
// the engine then never verifies.
func NewVerifier(cfg *config.Instance) reconcile.Verifier {
	endpoint := cfg.VerifyEndpoint()
	if endpoint == "" {
		endpoint = verify.DefaultEndpoint
	}
	client, err := verify.New(verify.Config{
		Endpoint:  endpoint,
		APIHost:   cfg.VerifyAPIHost(),
		APIKey:    cfg.APIKey(endpoint),
		UTCOffset: cfg.UTCOffset(),
		Timeout:   cfg.VerifyTimeout(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("service: remote verification disabled")
		return nil
	}
	return client
}

// Runtime owns the collaborators built from the config and closes them.
type Runtime struct {
	Deps      reconcile.Deps
	publisher *publishers.MQTTPublisher
}

// NewRuntime opens the store and wires every collaborator. out receives
// the console panel; nil disables it.
func NewRuntime(cfg *config.Instance, dataDir string, out io.Writer) (*Runtime, error) {
	st, err := store.Open(cfg.StorageBackend(), cfg.StoragePath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	rt := &Runtime{}
	sinks := []reconcile.Sink{display.LogSink{}}
	if out != nil {
		sinks = append(sinks, display.NewConsoleSink(out, display.Panel{
			LocationName: cfg.LocationName(),
			UTCOffset:    cfg.UTCOffset(),
		}))
	}

	if broker := cfg.MQTTBroker(); broker != "" {
		pub := publishers.NewMQTTPublisher(broker, cfg.MQTTTopic(), cfg.DeviceID())
		if user, pass, ok := cfg.MQTTCredentials(); ok {
			pub.SetCredentials(user, pass)
		}
		if err := pub.Start(); err != nil {
			log.Error().Err(err).Msg("service: mqtt publisher failed to start (continuing without it)")
		} else {
			rt.publisher = pub
			sinks = append(sinks, pub)
		}
	}

	var rtc timeauth.RTC
	if cfg.SystemRTC() {
		rtc = timeauth.SystemRTC{}
	}

	rt.Deps = reconcile.Deps{
		Clock:    clocksource.NewNTP(cfg.NTPServers()),
		Verifier: NewVerifier(cfg),
		Store:    st,
		Sink:     display.Multi(sinks...),
		Ticks:    NewTicks(cfg.TickSource()),
		RTC:      rtc,
	}
	return rt, nil
}

// Close stops the publisher and closes the store.
func (rt *Runtime) Close() error {
	if rt.publisher != nil {
		rt.publisher.Stop()
	}
	if rt.Deps.Store == nil {
		return nil
	}
	if err := rt.Deps.Store.Close(); err != nil {
		return fmt.Errorf("failed to close state store: %w", err)
	}
	return nil
}
