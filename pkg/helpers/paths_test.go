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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

//nolint:paralleltest // uses t.Setenv
func TestDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DataEnv, dir)

	assert.Equal(t, dir, DataDir())
	assert.Equal(t, filepath.Join(dir, "logs"), LogDir())
}

//nolint:paralleltest // uses t.Setenv
func TestDataDirDefault(t *testing.T) {
	t.Setenv(DataEnv, "")

	assert.Equal(t, AppName, filepath.Base(DataDir()))
	assert.Equal(t, AppName, filepath.Base(ConfigDir()))
}
