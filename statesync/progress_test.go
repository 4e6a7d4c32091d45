// Copyright 2024 The ethersync Authors
// This file is part of the ethersync library.
//
// The ethersync library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ethersync library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ethersync library. If not, see <http://www.gnu.org/licenses/>.

package statesync

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ethersync/statesync/ethdb/memorydb"
)

func randomProgress(rt *rapid.T) DetailedProgress {
	gen := rapid.Uint64Range(0, 1<<40)
	return DetailedProgress{
		Requested:        gen.Draw(rt, "Requested"),
		Consumed:         gen.Draw(rt, "Consumed"),
		Saved:            gen.Draw(rt, "Saved"),
		SavedAccounts:    gen.Draw(rt, "SavedAccounts"),
		SavedState:       gen.Draw(rt, "SavedState"),
		SavedStorage:     gen.Draw(rt, "SavedStorage"),
		SavedCode:        gen.Draw(rt, "SavedCode"),
		DBChecks:         gen.Draw(rt, "DBChecks"),
		CacheHits:        gen.Draw(rt, "CacheHits"),
		StateWasThere:    gen.Draw(rt, "StateWasThere"),
		StateWasNotThere: gen.Draw(rt, "StateWasNotThere"),
		EmptishCount:     gen.Draw(rt, "EmptishCount"),
		BadQualityCount:  gen.Draw(rt, "BadQualityCount"),
		InvalidFormat:    gen.Draw(rt, "InvalidFormat"),
		NotAssignedCount: gen.Draw(rt, "NotAssignedCount"),
		OKCount:          gen.Draw(rt, "OKCount"),
		SecondsInSync:    gen.Draw(rt, "SecondsInSync"),
		DataSize:         gen.Draw(rt, "DataSize"),
		LastReportTime:   gen.Draw(rt, "LastReportTime"),
	}
}

func TestDetailedProgressRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chainID := rapid.Uint32().Draw(rt, "chainID")
		want := randomProgress(rt)

		data := EncodeDetailedProgress(chainID, want)
		gotChainID, got, err := DecodeDetailedProgress(data)
		require.NoError(rt, err)
		require.Equal(rt, chainID, gotChainID)
		require.Equal(rt, want, got)
	})
}

func TestDecodeDetailedProgressRejectsWrongSize(t *testing.T) {
	_, _, err := DecodeDetailedProgress([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeDetailedProgressRejectsWrongVersion(t *testing.T) {
	data := EncodeDetailedProgress(7, DetailedProgress{})
	data[4] = 0xff // corrupt the version field
	_, _, err := DecodeDetailedProgress(data)
	require.Error(t, err)
}

func TestPersistAndLoadProgressRoundTrip(t *testing.T) {
	db := memorydb.New(0)
	c := &progressCounters{}
	c.restore(DetailedProgress{Saved: 123, SavedAccounts: 4})

	persistProgress(db, 9, c)

	loaded, ok := loadProgress(db, 9)
	require.True(t, ok)
	require.Equal(t, uint64(123), loaded.Saved)
	require.Equal(t, uint64(4), loaded.SavedAccounts)
}

func TestLoadProgressMissingKeyIsNotFound(t *testing.T) {
	db := memorydb.New(0)
	_, ok := loadProgress(db, 1)
	require.False(t, ok)
}

func TestLoadProgressWrongChainIDIsNotFound(t *testing.T) {
	db := memorydb.New(0)
	c := &progressCounters{}
	persistProgress(db, 1, c)
	_, ok := loadProgress(db, 2)
	require.False(t, ok)
}
