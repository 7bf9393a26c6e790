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

package verify

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/moonwatch-project/moonwatch-core/pkg/astro"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minPhaseSimilarity is the Jaro-Winkler score a remote phase name needs
// to be accepted as a misspelling of one of ours.
const minPhaseSimilarity = 0.88

// foldName strips accents and case so "Pleine Lune"-style variants and
// "Waxing Gibbous" compare on letters alone.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// parsePhase maps a remote phase name to a Phase. Exact names are tried
// first, then the closest known name if it is similar enough. Unmatched
// names give PhaseUnknown, which the comparison ignores.
func parsePhase(name string) astro.Phase {
	folded := foldName(name)
	if p := astro.ParsePhase(folded); p != astro.PhaseUnknown {
		return p
	}

	query := strings.TrimSuffix(strings.Join(strings.Fields(folded), " "), " moon")
	best, bestScore := astro.PhaseUnknown, float32(0)
	for p := astro.PhaseNew; p <= astro.PhaseWaningCrescent; p++ {
		candidate := strings.TrimSuffix(strings.ToLower(p.String()), " moon")
		score := edlib.JaroWinklerSimilarity(query, candidate)
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore < minPhaseSimilarity {
		return astro.PhaseUnknown
	}
	return best
}
