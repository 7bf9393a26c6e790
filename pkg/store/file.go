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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	tmpSuffix    = ".tmp"
	backupSuffix = ".bak"
)

// FileStore keeps the record in a single file. Saves go to a temporary file
// that is synced and renamed into place, and the previous record is kept as
// a backup that Load falls back to if the primary fails verification.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore returns a store writing to path on fsys. A nil fsys means the
// real filesystem.
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{fs: fsys, path: path}
}

// Path is the primary record file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (Record, error) {
	rec, err := s.loadFile(s.path)
	if err == nil {
		return rec, nil
	}

	bak, bakErr := s.loadFile(s.path + backupSuffix)
	if bakErr == nil {
		log.Warn().Err(err).Msg("store: primary record unusable, using backup")
		return bak, nil
	}
	if errors.Is(bakErr, ErrCorrupt) && !errors.Is(err, ErrCorrupt) {
		return Record{}, bakErr
	}
	return Record{}, err
}

func (s *FileStore) loadFile(path string) (Record, error) {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotFound
	} else if err != nil {
		return Record{}, fmt.Errorf("%w: failed to read %s: %w", ErrCorrupt, path, err)
	}
	rec, err := Decode(data)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func (s *FileStore) Save(rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + tmpSuffix
	if err := s.writeSynced(tmp, data); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}

	if _, err := s.fs.Stat(s.path); err == nil {
		bak := s.path + backupSuffix
		_ = s.fs.Remove(bak)
		if err := s.fs.Rename(s.path, bak); err != nil {
			return fmt.Errorf("failed to back up previous record: %w", err)
		}
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to move record into place: %w", err)
	}
	return nil
}

func (s *FileStore) writeSynced(path string, data []byte) error {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func (*FileStore) Close() error {
	return nil
}
