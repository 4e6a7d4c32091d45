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
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethersync/statesync/common"
	"github.com/ethersync/statesync/crypto"
	"github.com/ethersync/statesync/ethdb"
	"github.com/ethersync/statesync/trie"
)

// Tunables from spec.md §6.
const (
	BatchSize               = 384
	EmptishRatioThreshold   = float64(BatchSize) / 1024 * 0.75 // ~0.281
	BadQualityResponseFloor = 64
	BadQualityRatio         = 0.5
	ResetRootHintThreshold  = 32
	ResponseTimeoutGrace    = 5 * time.Second
)

// Synchronizer wires together every component in spec.md §4 into the
// single object the Sync-Round Controller drives. It is safe for
// concurrent PrepareRequest/HandleResponse calls on distinct batches,
// per spec.md §5.
type Synchronizer struct {
	stateDB ethdb.KeyValueStore
	codeDB  ethdb.KeyValueStore
	parser  trie.Parser
	chainID uint32

	stateDBLock sync.Mutex
	codeDBLock  sync.Mutex

	pending         *PendingSyncItems
	recentlySaved   *RecentlySavedFilter
	dependencies    *DependencyTable
	branchProgress  *BranchProgress
	counters        *progressCounters

	codesSameAsNodesLock sync.Mutex
	codesSameAsNodes     map[common.Hash]struct{}

	// handleMu serializes the bookkeeping tail of HandleResponse
	// (progress counters, quality classification) so counters are
	// consistent, per spec.md §5.
	handleMu sync.Mutex

	inFlightMu sync.Mutex
	inFlight   map[uint64]StateSyncBatch
	nextBatch  uint64

	currentRoot   common.Hash
	rootSaved     atomic.Bool
	resetRootHint atomic.Int32
	roundStart    atomic.Int64 // unix nanos

	startedAt time.Time
}

// NewSynchronizer creates a Synchronizer over the given state/code
// stores and trie-node parser.
func NewSynchronizer(stateDB, codeDB ethdb.KeyValueStore, parser trie.Parser, chainID uint32) *Synchronizer {
	s := &Synchronizer{
		stateDB:          stateDB,
		codeDB:           codeDB,
		parser:           parser,
		chainID:          chainID,
		pending:          NewPendingSyncItems(),
		recentlySaved:    NewRecentlySavedFilter(DefaultRecentlySavedCapacity),
		dependencies:     NewDependencyTable(),
		branchProgress:   NewBranchProgress(),
		counters:         &progressCounters{},
		codesSameAsNodes: make(map[common.Hash]struct{}),
		inFlight:         make(map[uint64]StateSyncBatch),
		startedAt:        time.Now(),
	}
	if p, ok := loadProgress(codeDB, chainID); ok {
		s.counters.restore(p)
	}
	return s
}

// Progress returns a point-in-time snapshot of the detailed counters.
func (s *Synchronizer) Progress() DetailedProgress {
	p := s.counters.snapshot()
	p.LastReportTime = uint64(time.Now().Unix())
	return p
}

// BranchProgress exposes the top-of-trie completion map for
// observability.
func (s *Synchronizer) BranchProgress() *BranchProgress { return s.branchProgress }

// PendingCount returns the number of items still queued.
func (s *Synchronizer) PendingCount() int { return s.pending.Count() }

// DependencyTableLen returns the number of hashes the Dependency Table
// still tracks, for observability and tests.
func (s *Synchronizer) DependencyTableLen() int { return s.dependencies.Len() }

// CurrentRoot returns the root hash the current round is pursuing.
func (s *Synchronizer) CurrentRoot() common.Hash { return s.currentRoot }

func stateStoreFor(s *Synchronizer, kind NodeDataType) (ethdb.KeyValueStore, *sync.Mutex) {
	if kind == Code {
		return s.codeDB, &s.codeDBLock
	}
	return s.stateDB, &s.stateDBLock
}

// emptyTreeHash is the well-known empty-trie root constant
// (spec.md §8, scenario 1).
var emptyTreeHash = crypto.EmptyRootHash
