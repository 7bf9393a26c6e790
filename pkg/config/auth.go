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
	"maps"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry is one auth.toml entry. The verification service reads
// Bearer as its API key; the MQTT broker uses Username and Password.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

// schemeAliases maps protocol variants to their canonical form.
var schemeAliases = map[string]string{
	"tcp": "mqtt",
	"ssl": "mqtts",
	"tls": "mqtts",
	"ws":  "http",
	"wss": "https",
}

type authCredsFormat struct {
	Creds map[string]CredentialEntry `toml:"creds"`
}

// LoadAuthFromData parses auth.toml. Both a root-level ["url"] table and a
// [creds."url"] table are accepted and merged, with creds winning.
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root map[string]CredentialEntry
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			if k != "creds" {
				result[k] = v
			}
		}
	}

	var creds authCredsFormat
	if err := toml.Unmarshal(data, &creds); err == nil {
		maps.Copy(result, creds.Creds)
	}

	return result
}

func normalizeScheme(scheme string) string {
	lower := strings.ToLower(scheme)
	if canonical, ok := schemeAliases[lower]; ok {
		return canonical
	}
	return lower
}

// brokerAuthURL turns a "host:port" broker into a URL LookupAuth can parse.
func brokerAuthURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

type authMatch int

const (
	matchExact authMatch = iota
	matchCanonical
	matchHostPort
)

func (m authMatch) matches(key string, u *url.URL) bool {
	if m == matchHostPort {
		return !strings.Contains(key, "://") && strings.EqualFold(key, u.Host)
	}
	if !strings.Contains(key, "://") {
		return false
	}
	def, err := url.Parse(key)
	if err != nil {
		log.Error().Msgf("invalid auth config url: %s", key)
		return false
	}
	schemeOK := strings.EqualFold(def.Scheme, u.Scheme)
	if m == matchCanonical {
		schemeOK = normalizeScheme(def.Scheme) == normalizeScheme(u.Scheme)
	}
	return schemeOK &&
		strings.EqualFold(def.Host, u.Host) &&
		strings.HasPrefix(u.Path, def.Path)
}

// LookupAuth finds credentials for reqURL. Exact scheme matches win over
// equivalent schemes (tcp and mqtt), which win over bare host:port keys.
func LookupAuth(creds map[string]CredentialEntry, reqURL string) *CredentialEntry {
	if len(creds) == 0 || reqURL == "" {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil {
		log.Warn().Msgf("invalid auth request url: %s", reqURL)
		return nil
	}

	for _, m := range []authMatch{matchExact, matchCanonical, matchHostPort} {
		for k, v := range creds {
			if m.matches(k, u) {
				return &v
			}
		}
	}
	return nil
}
