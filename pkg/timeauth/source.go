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

package timeauth

import (
	"fmt"
	"strings"
)

// Source records where the authority's time came from. Higher values are
// more trusted; lower-confidence sources are re-synced more often.
type Source int

const (
	// SourceElapsedOnly means the time is an extrapolation from a restored
	// snapshot, with no fresh correction this session.
	SourceElapsedOnly Source = iota
	// SourceRemoteVerify means the time was corrected from the remote
	// verification service's clock after drift was detected.
	SourceRemoteVerify
	// SourceNTP means the time came from a successful clock sync.
	SourceNTP
)

var sourceNames = map[Source]string{
	SourceElapsedOnly:  "elapsed_only",
	SourceRemoteVerify: "remote_verify",
	SourceNTP:          "ntp",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Confidence orders sources for correction decisions.
func (s Source) Confidence() int {
	return int(s)
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	_, ok := sourceNames[s]
	return ok
}

// ParseSource is the inverse of String.
func ParseSource(name string) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for s, n := range sourceNames {
		if n == key {
			return s, nil
		}
	}
	return SourceElapsedOnly, fmt.Errorf("unknown time source: %q", name)
}

func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown time source: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
