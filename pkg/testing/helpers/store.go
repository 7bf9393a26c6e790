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
	"errors"

	"github.com/moonwatch-project/moonwatch-core/pkg/store"
	"github.com/spf13/afero"
)

// MemoryStorePath is where NewMemoryStore keeps its record.
const MemoryStorePath = "/moonwatch/state.json"

// NewMemoryStore returns a file store on a fresh in-memory filesystem, plus
// the filesystem so tests can corrupt or inspect it.
func NewMemoryStore() (*store.FileStore, afero.Fs) {
	fs := afero.NewMemMapFs()
	return store.NewFileStore(fs, MemoryStorePath), fs
}

// FailingStore is a store whose Save always fails. Load delegates to Base,
// or reports not found when Base is nil.
type FailingStore struct {
	Base    store.Store
	SaveErr error
	Saves   int
}

func (s *FailingStore) Load() (store.Record, error) {
	if s.Base == nil {
		return store.Record{}, store.ErrNotFound
	}
	rec, err := s.Base.Load()
	if err != nil {
		return store.Record{}, err //nolint:wrapcheck // test helper passes through
	}
	return rec, nil
}

func (s *FailingStore) Save(store.Record) error {
	s.Saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	return errors.New("save failed")
}

func (*FailingStore) Close() error {
	return nil
}
