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
	"fmt"
	"strings"
)

const (
	BackendBolt = "bolt"
	BackendFile = "file"
)

// Open opens the store for the named backend at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendBolt, "":
		return OpenBolt(path)
	case BackendFile:
		return NewFileStore(nil, path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", backend)
	}
}
