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

package store

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
)

// FormatVersion is the envelope version written by Encode.
const FormatVersion = 1

type envelope struct {
	Payload  json.RawMessage `json:"payload"`
	Version  int             `json:"version"`
	Checksum uint32          `json:"crc32"`
}

// Encode validates rec and wraps it in a versioned, checksummed envelope.
func Encode(rec Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to encode invalid record: %w", err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	data, err := json.Marshal(envelope{
		Version:  FormatVersion,
		Checksum: crc32.ChecksumIEEE(payload),
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Decode verifies and unwraps an envelope written by Encode. Every failure
// is an ErrCorrupt.
func Decode(data []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if env.Version != FormatVersion {
		return Record{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}
	if len(env.Payload) == 0 {
		return Record{}, fmt.Errorf("%w: empty payload", ErrCorrupt)
	}
	if sum := crc32.ChecksumIEEE(env.Payload); sum != env.Checksum {
		return Record{}, fmt.Errorf("%w: checksum mismatch (%08x != %08x)", ErrCorrupt, sum, env.Checksum)
	}

	var rec Record
	if err := json.Unmarshal(env.Payload, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rec, nil
}
