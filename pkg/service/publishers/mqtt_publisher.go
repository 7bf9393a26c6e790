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

package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers/syncutil"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTopic = "moonwatch/state"

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectMs   = 250
)

var ErrNotStarted = errors.New("mqtt publisher not started")

// MQTTPublisher publishes every frame to an MQTT broker as a retained JSON
// message, so a subscriber that connects later still sees the latest moon.
// It implements reconcile.Sink.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(opts *mqtt.ClientOptions) mqtt.Client
	broker    string
	topic     string
	deviceID  string
	username  string
	password  string
	mu        syncutil.Mutex
}

// NewMQTTPublisher creates a publisher for broker ("host:port" or a full
// URL) and topic. deviceID is included in every message.
func NewMQTTPublisher(broker, topic, deviceID string) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		deviceID:  deviceID,
		newClient: mqtt.NewClient,
	}
}

// SetCredentials sets the broker login used by Start.
func (p *MQTTPublisher) SetCredentials(username, password string) {
	p.username = username
	p.password = password
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the broker.
func (p *MQTTPublisher) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("moonwatch-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(connectTimeout)
	if p.username != "" {
		opts.SetUsername(p.username)
		opts.SetPassword(p.password)
	}

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	client := p.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", p.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	log.Info().Msgf("mqtt publisher: publishing to %s (topic: %s)", p.broker, p.topic)
	return nil
}

// Stop disconnects from the broker.
func (p *MQTTPublisher) Stop() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client != nil && client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		client.Disconnect(disconnectMs)
	}
}

type moonPayload struct {
	Rise            *time.Time `json:"rise"`
	Set             *time.Time `json:"set"`
	Phase           string     `json:"phase"`
	Glyph           string     `json:"glyph"`
	AgeDays         float64    `json:"age_days"`
	IlluminationPct float64    `json:"illumination_pct"`
}

type framePayload struct {
	At            *time.Time   `json:"at"`
	Moon          *moonPayload `json:"moon"`
	Device        string       `json:"device,omitempty"`
	State         string       `json:"state"`
	Source        string       `json:"source,omitempty"`
	MonthlyCalls  int          `json:"monthly_calls"`
	Budget        int          `json:"budget"`
	TimeAvailable bool         `json:"time_available"`
	Drift         bool         `json:"drift"`
	Corrected     bool         `json:"corrected"`
}

func newFramePayload(f reconcile.Frame, deviceID string) framePayload {
	fp := framePayload{
		Device:        deviceID,
		State:         f.State.String(),
		MonthlyCalls:  f.MonthlyCalls,
		Budget:        f.Budget,
		TimeAvailable: !f.TimeUnavailable(),
		Drift:         f.Drift,
		Corrected:     f.Corrected,
	}
	if f.TimeUnavailable() {
		return fp
	}
	at := f.At.UTC()
	fp.At = &at
	fp.Source = f.Source.String()
	fp.Moon = &moonPayload{
		Phase:           f.Moon.Phase.String(),
		Glyph:           f.Moon.Phase.Glyph(),
		AgeDays:         f.Moon.AgeDays,
		IlluminationPct: f.Moon.IlluminationPct,
		Rise:            f.Moon.Rise,
		Set:             f.Moon.Set,
	}
	return fp
}

// Render publishes f. Failures are logged and never reach the caller.
func (p *MQTTPublisher) Render(f reconcile.Frame) {
	if err := p.publish(f); err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to publish frame")
	}
}

func (p *MQTTPublisher) publish(f reconcile.Frame) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return ErrNotStarted
	}

	payload, err := json.Marshal(newFramePayload(f, p.deviceID))
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	token := client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("timed out publishing frame")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}

	log.Debug().Msgf("mqtt publisher: published frame to %s", p.topic)
	return nil
}
