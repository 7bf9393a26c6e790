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

package helpers

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName names the per-user config and data directories.
	AppName = "moonwatch"
	// DataEnv overrides the data directory, mostly for read-only root
	// filesystems that mount a writable partition elsewhere.
	DataEnv = "MOONWATCH_DATA"
)

// ConfigDir is where config.toml lives, normally ~/.config/moonwatch.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir holds the persisted reconciliation record and logs.
func DataDir() string {
	if v := os.Getenv(DataEnv); v != "" {
		return v
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// LogDir is where the rotating log file is written.
func LogDir() string {
	return filepath.Join(DataDir(), "logs")
}
