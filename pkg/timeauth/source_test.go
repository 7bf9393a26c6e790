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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceConfidenceOrder(t *testing.T) {
	t.Parallel()

	assert.Less(t, SourceElapsedOnly.Confidence(), SourceRemoteVerify.Confidence())
	assert.Less(t, SourceRemoteVerify.Confidence(), SourceNTP.Confidence())
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Source
		wantErr bool
	}{
		{input: "ntp", want: SourceNTP},
		{input: " NTP ", want: SourceNTP},
		{input: "remote_verify", want: SourceRemoteVerify},
		{input: "elapsed_only", want: SourceElapsedOnly},
		{input: "gps", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSource(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		S Source `json:"s"`
	}{S: SourceRemoteVerify})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"remote_verify"}`, string(data))

	var out struct {
		S Source `json:"s"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"s":"ntp"}`), &out))
	assert.Equal(t, SourceNTP, out.S)

	require.Error(t, json.Unmarshal([]byte(`{"s":"sundial"}`), &out))

	_, err = Source(7).MarshalText()
	require.Error(t, err)
	assert.Equal(t, "source(7)", Source(7).String())
	assert.False(t, Source(7).Valid())
}
