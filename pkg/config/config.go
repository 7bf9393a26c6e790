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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "MOONWATCH_CFG"
	// APIKeyEnv overrides the verification API key so it can be kept out
	// of the config file.
	APIKeyEnv = "MOONWATCH_API_KEY"

	BackendBolt = "bolt"
	BackendFile = "file"

	TickSourceUptime    = "uptime"
	TickSourceMonotonic = "monotonic"
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Location          Location     `toml:"location"`
	Schedule          Schedule     `toml:"schedule"`
	Verification      Verification `toml:"verification"`
	MQTT              MQTT         `toml:"mqtt,omitempty"`
	Storage           Storage      `toml:"storage"`
	DeviceID          string       `toml:"device_id"`
	ErrorReportingDSN string       `toml:"error_reporting_dsn,omitempty" validate:"omitempty,url"`
	Clock             Clock        `toml:"clock"`
	ConfigSchema      int          `toml:"config_schema"`
	DebugLogging      bool         `toml:"debug_logging"`
	ErrorReporting    bool         `toml:"error_reporting"`
}

type Location struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `toml:"longitude" validate:"gte=-180,lte=180"`
	// UTCOffset is in hours, e.g. -5 or 5.5.
	UTCOffset float64 `toml:"utc_offset" validate:"gte=-12,lte=14"`
}

type Schedule struct {
	CycleInterval string `toml:"cycle_interval" validate:"required,duration"`
	// DeepSleep cold-starts the engine on every wake, the way a board
	// that resets out of deep sleep would.
	DeepSleep bool `toml:"deep_sleep"`
}

type Verification struct {
	Endpoint          string  `toml:"endpoint,omitempty" validate:"omitempty,url"`
	APIHost           string  `toml:"api_host,omitempty" validate:"omitempty,hostname"`
	APIKey            string  `toml:"api_key,omitempty"`
	Timeout           string  `toml:"timeout" validate:"required,duration"`
	MonthlyBudget     int     `toml:"monthly_budget" validate:"gte=0"`
	DriftTolerancePct float64 `toml:"drift_tolerance_pct" validate:"gt=0,lte=100"`
}

type Clock struct {
	TickSource   string   `toml:"tick_source" validate:"omitempty,oneof=uptime monotonic"`
	SyncInterval string   `toml:"sync_interval" validate:"required,duration"`
	SyncTimeout  string   `toml:"sync_timeout" validate:"required,duration"`
	NTPServers   []string `toml:"ntp_servers,omitempty,multiline" validate:"dive,required"`
	// SystemRTC uses the OS wall clock as the restore hint after a reset.
	SystemRTC bool `toml:"system_rtc"`
}

type Storage struct {
	Backend string `toml:"backend" validate:"omitempty,oneof=bolt file"`
	Path    string `toml:"path,omitempty"`
}

type MQTT struct {
	Broker string `toml:"broker,omitempty"`
	Topic  string `toml:"topic,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Location: Location{
		Name:      "Ann Arbor",
		Latitude:  42.2808,
		Longitude: -83.7430,
		UTCOffset: -5,
	},
	Schedule: Schedule{
		CycleInterval: "1h",
	},
	Verification: Verification{
		Timeout:           "15s",
		MonthlyBudget:     25,
		DriftTolerancePct: 5,
	},
	Clock: Clock{
		TickSource:   TickSourceUptime,
		SyncInterval: "24h",
		SyncTimeout:  "10s",
		SystemRTC:    true,
	},
	Storage: Storage{
		Backend: BackendBolt,
	},
}

type Instance struct {
	auth     map[string]CredentialEntry
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config from MOONWATCH_CFG or configDir/config.toml,
// writing the defaults there first if the file doesn't exist.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}
	return Open(cfgPath, defaults)
}

// Open loads the config at cfgPath, creating it from defaults if missing.
//
//nolint:gocritic // config struct copied for immutability
func Open(cfgPath string, defaults Values) (*Instance, error) {
	cfg := Instance{
		cfgPath:  cfgPath,
		authPath: filepath.Join(filepath.Dir(cfgPath), AuthFile),
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// fields missing from the file keep their defaults
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := Validate(&newVals); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.cfgPath, err)
	}

	c.vals = newVals

	c.auth = nil
	if _, err := os.Stat(c.authPath); err == nil {
		log.Info().Msg("loading auth file")
		authData, err := os.ReadFile(c.authPath)
		if err != nil {
			return fmt.Errorf("failed to read auth file: %w", err)
		}
		c.auth = LoadAuthFromData(authData)
		log.Info().Msgf("loaded %d auth entries", len(c.auth))
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	if c.vals.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path is the config file this instance reads.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

// parseDuration reads a validated duration field, falling back to def if
// the field was cleared after validation.
func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceID
}

func (c *Instance) LocationName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Location.Name
}

func (c *Instance) Location() astro.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return astro.Location{
		Latitude:  c.vals.Location.Latitude,
		Longitude: c.vals.Location.Longitude,
	}
}

// UTCOffset is the location's offset from UTC, rounded to the minute.
func (c *Instance) UTCOffset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Location.UTCOffset * float64(time.Hour)).Round(time.Minute)
}

func (c *Instance) CycleInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Schedule.CycleInterval, time.Hour)
}

func (c *Instance) DeepSleep() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Schedule.DeepSleep
}

func (c *Instance) VerifyEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Verification.Endpoint
}

func (c *Instance) VerifyAPIHost() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Verification.APIHost
}

// APIKey resolves the verification key: the environment first, then a
// bearer entry in auth.toml matching endpoint, then the config file.
func (c *Instance) APIKey(endpoint string) string {
	if v := os.Getenv(APIKeyEnv); v != "" {
		return v
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if cred := LookupAuth(c.auth, endpoint); cred != nil && cred.Bearer != "" {
		return cred.Bearer
	}
	return c.vals.Verification.APIKey
}

func (c *Instance) VerifyTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Verification.Timeout, 15*time.Second)
}

func (c *Instance) MonthlyBudget() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Verification.MonthlyBudget
}

func (c *Instance) DriftTolerancePct() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Verification.DriftTolerancePct
}

func (c *Instance) NTPServers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.vals.Clock.NTPServers...)
}

func (c *Instance) SyncInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Clock.SyncInterval, 24*time.Hour)
}

func (c *Instance) SyncTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Clock.SyncTimeout, 10*time.Second)
}

func (c *Instance) TickSource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Clock.TickSource == "" {
		return TickSourceUptime
	}
	return c.vals.Clock.TickSource
}

func (c *Instance) SystemRTC() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Clock.SystemRTC
}

func (c *Instance) StorageBackend() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Storage.Backend == "" {
		return BackendBolt
	}
	return c.vals.Storage.Backend
}

// StoragePath returns the configured record path, or the backend's default
// file under dataDir.
func (c *Instance) StoragePath(dataDir string) string {
	backend := c.StorageBackend()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Storage.Path != "" {
		return c.vals.Storage.Path
	}
	if backend == BackendFile {
		return filepath.Join(dataDir, StateFileJSON)
	}
	return filepath.Join(dataDir, StateFile)
}

func (c *Instance) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Broker
}

func (c *Instance) MQTTTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Topic
}

// MQTTCredentials looks up a username and password for the broker in
// auth.toml. ok is false if there is no entry.
func (c *Instance) MQTTCredentials() (username, password string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.MQTT.Broker == "" {
		return "", "", false
	}
	cred := LookupAuth(c.auth, brokerAuthURL(c.vals.MQTT.Broker))
	if cred == nil {
		return "", "", false
	}
	return cred.Username, cred.Password, true
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting
}

func (c *Instance) ErrorReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReportingDSN
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Values returns a copy of the loaded values, for status output.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vals := c.vals
	vals.Clock.NTPServers = append([]string(nil), c.vals.Clock.NTPServers...)
	vals.Verification.APIKey = ""
	return vals
}
