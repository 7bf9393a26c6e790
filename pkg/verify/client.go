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

// Package verify is the client for the remote moon phase service the
// reconciliation policy checks the local model against.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"github.com/moonwatch-project/moonwatch-core/pkg/reconcile"
	"github.com/moonwatch-project/moonwatch-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEndpoint = "https://moon-phase.p.rapidapi.com/advanced"
	DefaultAPIHost  = "moon-phase.p.rapidapi.com"

	headerAPIHost = "x-rapidapi-host"
	headerAPIKey  = "x-rapidapi-key"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 64 << 10
)

var (
	ErrNoAPIKey    = errors.New("verification API key not set")
	ErrBadStatus   = errors.New("unexpected response status")
	ErrBadResponse = errors.New("malformed verification response")
)

// Config configures a Client.
type Config struct {
	Endpoint string
	APIHost  string
	APIKey   string
	// UTCOffset is the location's offset from UTC, used to read the
	// service's local "HH:MM" rise and set times.
	UTCOffset time.Duration
	Timeout   time.Duration
}

// Client queries the remote service. It implements reconcile.Verifier.
type Client struct {
	http     *httpclient.Client
	endpoint *url.URL
	offset   time.Duration
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid verification endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid verification endpoint scheme: %q", endpoint.Scheme)
	}
	if cfg.APIHost == "" {
		cfg.APIHost = endpoint.Hostname()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpclient.DefaultTimeoutSeconds * time.Second
	}

	headers := map[string]string{
		headerAPIHost: cfg.APIHost,
		headerAPIKey:  cfg.APIKey,
	}
	return &Client{
		http:     httpclient.NewClientWithTimeout(headers, cfg.Timeout),
		endpoint: endpoint,
		offset:   cfg.UTCOffset,
	}, nil
}

type response struct {
	Moonrise string `json:"moonrise"`
	Moonset  string `json:"moonset"`
	Phase    struct {
		Phase        string     `json:"phase"`
		Illumination percentage `json:"illumination"`
		Age          *float64   `json:"age"`
	} `json:"phase"`
}

// percentage accepts 42.5, "42.5" and "42.5%".
type percentage float64

func (p *percentage) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(unquoted), "%")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("invalid illumination %s: %w", data, err)
	}
	*p = percentage(v)
	return nil
}

// Verify fetches the service's view of the moon at loc on date's UTC day.
func (c *Client) Verify(
	ctx context.Context,
	loc astro.Location,
	date time.Time,
) (*reconcile.Observation, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	q.Set("date", date.UTC().Format(time.DateOnly))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting verification: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("verify: error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	obs, err := c.observation(body, date)
	if err != nil {
		return nil, err
	}
	if serverTime, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		serverTime = serverTime.UTC()
		obs.ServerTime = &serverTime
	}

	log.Debug().
		Str("phase", body.Phase.Phase).
		Float64("illumination", obs.IlluminationPct).
		Msg("verify: received observation")
	return obs, nil
}

func (c *Client) observation(body response, date time.Time) (*reconcile.Observation, error) {
	illum := float64(body.Phase.Illumination)
	if illum < 0 || illum > 100 {
		return nil, fmt.Errorf("%w: illumination %v out of range", ErrBadResponse, illum)
	}
	phase := parsePhase(body.Phase.Phase)
	if phase == astro.PhaseUnknown {
		log.Warn().Str("phase", body.Phase.Phase).Msg("verify: unrecognised phase name")
	}

	obs := &reconcile.Observation{
		Phase:           phase,
		IlluminationPct: illum,
		Rise:            c.localClock(body.Moonrise, date),
		Set:             c.localClock(body.Moonset, date),
	}
	if age := body.Phase.Age; age != nil {
		if *age >= 0 && *age <= astro.SynodicMonth+1 {
			obs.AgeDays = age
		} else {
			log.Warn().Float64("age", *age).Msg("verify: ignoring out of range moon age")
		}
	}
	return obs, nil
}

// localClock reads a local "HH:MM" on date's local day as a UTC instant.
// Anything else, such as "N/A" or "-", means no event.
func (c *Client) localClock(hhmm string, date time.Time) *time.Time {
	clock, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return nil
	}
	local := date.UTC().Add(c.offset)
	at := time.Date(
		local.Year(), local.Month(), local.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.UTC,
	).Add(-c.offset)
	return &at
}
