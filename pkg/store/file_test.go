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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/data/moonwatch/state.json"

func TestFileStoreNotFound(t *testing.T) {
	t.Parallel()

	s := NewFileStore(afero.NewMemMapFs(), testPath)
	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreSaveLoad(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, testPath)

	rec := sampleRecord()
	require.NoError(t, s.Save(rec))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, rec.Reconciliation.MonthlyCallCount, got.Reconciliation.MonthlyCallCount)

	rec.Reconciliation.MonthlyCallCount = 4
	require.NoError(t, s.Save(rec))

	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, got.Reconciliation.MonthlyCallCount)

	exists, err := afero.Exists(fs, testPath+backupSuffix)
	require.NoError(t, err)
	assert.True(t, exists, "previous record kept as backup")

	exists, err = afero.Exists(fs, testPath+tmpSuffix)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, s.Close())
}

func TestFileStoreFallsBackToBackup(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, testPath)

	rec := sampleRecord()
	require.NoError(t, s.Save(rec))
	rec.Reconciliation.MonthlyCallCount = 4
	require.NoError(t, s.Save(rec))

	// torn write of the primary
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(`{"version":1,"crc32":12`), 0o600))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, got.Reconciliation.MonthlyCallCount)
}

func TestFileStoreMissingPrimaryUsesBackup(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, testPath)
	require.NoError(t, s.Save(sampleRecord()))
	require.NoError(t, s.Save(sampleRecord()))

	// power cut between the two renames
	require.NoError(t, fs.Remove(testPath))

	_, err := s.Load()
	require.NoError(t, err)
}

func TestFileStoreBothCorrupt(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/moonwatch", 0o750))
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("garbage"), 0o600))
	require.NoError(t, afero.WriteFile(fs, testPath+backupSuffix, []byte("also garbage"), 0o600))

	_, err := NewFileStore(fs, testPath).Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorruptBackupOnly(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/moonwatch", 0o750))
	require.NoError(t, afero.WriteFile(fs, testPath+backupSuffix, []byte("garbage"), 0o600))

	_, err := NewFileStore(fs, testPath).Load()
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreIgnoresLeftoverTemp(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, testPath)
	require.NoError(t, s.Save(sampleRecord()))
	require.NoError(t, afero.WriteFile(fs, testPath+tmpSuffix, []byte("half"), 0o600))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, got.Reconciliation.MonthlyCallCount)

	require.NoError(t, s.Save(sampleRecord()))
}

func TestFileStoreRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, testPath)
	require.NoError(t, s.Save(sampleRecord()))

	bad := sampleRecord()
	bad.Reconciliation.MonthlyCallCount = -1
	require.Error(t, s.Save(bad))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, got.Reconciliation.MonthlyCallCount)
}
