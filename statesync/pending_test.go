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
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingSyncItemsFIFOWithinStream(t *testing.T) {
	p := NewPendingSyncItems()
	for i := 0; i < 5; i++ {
		p.Push(SyncItem{Hash: hashOf(byte(i)), Kind: StateNode, Level: 0})
	}
	batch := p.TakeBatch(5)
	require.Len(t, batch, 5)
	for i, item := range batch {
		require.Equal(t, hashOf(byte(i)), item.Hash, "default (non closing-out) order must be FIFO")
	}
}

func TestPendingSyncItemsStreamPartitioning(t *testing.T) {
	p := NewPendingSyncItems()
	p.Push(SyncItem{Hash: hashOf(1), Kind: StateNode, Level: 0})     // shallow
	p.Push(SyncItem{Hash: hashOf(2), Kind: StateNode, Level: 10})    // deep
	p.Push(SyncItem{Hash: hashOf(3), Kind: StorageNode, Level: 0})   // storage
	p.Push(SyncItem{Hash: hashOf(4), Kind: Code, Level: 0})          // codes

	require.Equal(t, 4, p.Count())
	batch := p.TakeBatch(10)
	require.Len(t, batch, 4)
}

func TestPendingSyncItemsTakeBatchRespectsMax(t *testing.T) {
	p := NewPendingSyncItems()
	for i := 0; i < 10; i++ {
		p.Push(SyncItem{Hash: hashOf(byte(i)), Kind: StateNode, Level: 0})
	}
	batch := p.TakeBatch(3)
	require.Len(t, batch, 3)
	require.Equal(t, 7, p.Count())
}

func TestPendingSyncItemsMaxLevelTracking(t *testing.T) {
	p := NewPendingSyncItems()
	p.Push(SyncItem{Kind: StateNode, Level: 3})
	p.Push(SyncItem{Kind: StateNode, Level: 9})
	p.Push(SyncItem{Kind: StorageNode, Level: 2})
	require.Equal(t, 9, p.MaxStateLevel())
	require.Equal(t, 2, p.MaxStorageLevel())

	p.SetMaxStateLevel(64)
	require.Equal(t, 64, p.MaxStateLevel())
	p.SetMaxStateLevel(5) // must never decrease
	require.Equal(t, 64, p.MaxStateLevel())
}

func TestPendingSyncItemsClearResetsEverything(t *testing.T) {
	p := NewPendingSyncItems()
	p.Push(SyncItem{Kind: StateNode, Level: 5})
	p.Clear()
	require.Equal(t, 0, p.Count())
	require.Equal(t, 0, p.MaxStateLevel())
}

func TestPendingSyncItemsRecalculatePrioritiesGatesWithin60s(t *testing.T) {
	p := NewPendingSyncItems()
	now := time.Now()
	desc := p.RecalculatePriorities(now)
	require.NotEmpty(t, desc)

	desc = p.RecalculatePriorities(now.Add(30 * time.Second))
	require.Empty(t, desc, "second call within 60s must be a no-op")

	desc = p.RecalculatePriorities(now.Add(61 * time.Second))
	require.NotEmpty(t, desc)
}

func TestPendingSyncItemsStallingFlipsToRightnessOrder(t *testing.T) {
	p := NewPendingSyncItems()
	now := time.Now()
	p.RecalculatePriorities(now) // establish baseline

	// Simulate heavy requesting with almost nothing saved: stalling.
	for i := 0; i < 100; i++ {
		p.Push(SyncItem{Hash: hashOf(byte(i)), Kind: StateNode, Level: 0, Rightness: uint64(i)})
	}
	p.TakeBatch(100)

	desc := p.RecalculatePriorities(now.Add(61 * time.Second))
	require.Contains(t, desc, "closing-out")

	// After stalling, re-pushed items should drain highest-rightness first.
	for i := 0; i < 5; i++ {
		p.Push(SyncItem{Hash: hashOf(byte(i)), Kind: StateNode, Level: 0, Rightness: uint64(i)})
	}
	batch := p.TakeBatch(5)
	require.Len(t, batch, 5)
	require.Equal(t, uint64(4), batch[0].Rightness, "closing-out mode drains highest rightness first")
}

func TestPendingSyncItemsNoteSavedFeedsRecalculation(t *testing.T) {
	p := NewPendingSyncItems()
	now := time.Now()
	p.RecalculatePriorities(now)

	for i := 0; i < 10; i++ {
		p.Push(SyncItem{Kind: StateNode, Level: 0})
	}
	batch := p.TakeBatch(10)
	for _, item := range batch {
		p.NoteSaved(item.Kind, item.Level)
	}

	desc := p.RecalculatePriorities(now.Add(61 * time.Second))
	require.Contains(t, desc, "breadth-first", "high save ratio must not trigger stalling")
}
