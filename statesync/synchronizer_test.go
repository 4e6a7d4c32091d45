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

	"github.com/ethersync/statesync/crypto"
	"github.com/ethersync/statesync/ethdb"
	"github.com/ethersync/statesync/ethdb/memorydb"
	"github.com/ethersync/statesync/trie"
)

func newTestHarness(t *testing.T) (*Synchronizer, *Controller) {
	t.Helper()
	stateDB := memorydb.New(0)
	codeDB := memorydb.New(0)
	s := NewSynchronizer(stateDB, codeDB, trie.DefaultParser{}, 1)
	c := NewController(s, nil, nil)
	return s, c
}

func sendResponse(t *testing.T, s *Synchronizer, batch StateSyncBatch, data map[int][]byte) HandleResult {
	t.Helper()
	responses := make([][]byte, len(batch.Requested))
	for i := range batch.Requested {
		if d, ok := data[i]; ok {
			responses[i] = d
		}
	}
	return s.HandleResponse(BatchResponse{Batch: batch, Responses: responses})
}

// Scenario 1 (spec.md §8): an empty trie completes with no requests.
func TestScenarioEmptyTrie(t *testing.T) {
	s, c := newTestHarness(t)
	require.NoError(t, c.ResetStateRoot(1, emptyTreeHash))
	c.Activate()

	batch, ended := s.PrepareRequest(ModeStateNodes)
	require.True(t, ended)
	require.Empty(t, batch.Requested)

	c.CheckRoundEnd(ended)
	require.Equal(t, Dormant, c.State())
	require.Equal(t, 0, s.DependencyTableLen())
}

// Scenario 2 (spec.md §8): a trie that is a single account leaf with
// no code and no storage.
func TestScenarioSingleLeaf(t *testing.T) {
	s, c := newTestHarness(t)

	value := trie.EncodeAccount([]byte{1}, []byte{0x01, 0x00}, emptyTreeHash, crypto.EmptyCodeHash)
	leafPath := []byte{1, 2, 3}
	rootBytes := trie.EncodeLeaf(leafPath, value)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	batch, ended := s.PrepareRequest(ModeStateNodes)
	require.False(t, ended)
	require.Len(t, batch.Requested, 1)
	require.Equal(t, rootHash, batch.Requested[0].Hash)
	require.True(t, batch.Requested[0].IsRoot)

	result := sendResponse(t, s, batch, map[int][]byte{0: rootBytes})
	require.Equal(t, OK, result)

	got, err := s.stateDB.Get(rootHash.Bytes())
	require.NoError(t, err)
	require.Equal(t, rootBytes, got)

	_, ended = s.PrepareRequest(ModeStateNodes)
	require.True(t, ended, "round must end once the root is saved")
	c.CheckRoundEnd(ended)
	require.Equal(t, 0, s.DependencyTableLen())
}

// Scenario 3 (spec.md §8): a branch node with two slots pointing at
// the identical child hash must only be fetched once.
func TestScenarioBranchWithDuplicateChildren(t *testing.T) {
	s, c := newTestHarness(t)

	leafValue := trie.EncodeAccount([]byte{1}, []byte{1}, emptyTreeHash, crypto.EmptyCodeHash)
	leafBytes := trie.EncodeLeaf([]byte{9}, leafValue)
	leafHash := crypto.Keccak256Hash(leafBytes)

	var children [16]trie.Child
	children[2] = trie.Child{Hash: leafHash}
	children[9] = trie.Child{Hash: leafHash}
	rootBytes := trie.EncodeBranch(children, nil)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	batch, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch.Requested, 1)

	sendResponse(t, s, batch, map[int][]byte{0: rootBytes})

	require.Equal(t, 1, s.PendingCount(), "duplicate child hash must be deduplicated into one fetch")
	require.Equal(t, 1, s.DependencyTableLen())

	batch2, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch2.Requested, 1)
	require.Equal(t, leafHash, batch2.Requested[0].Hash)

	result := sendResponse(t, s, batch2, map[int][]byte{0: leafBytes})
	require.Equal(t, OK, result)

	_, rootSavedRound := s.PrepareRequest(ModeStateNodes)
	require.True(t, rootSavedRound)
	c.CheckRoundEnd(rootSavedRound)
	require.Equal(t, 0, s.DependencyTableLen(), "dependency table must drain even though two branch slots shared one hash")
}

// Scenario 4 (spec.md §8): a peer returns data that doesn't hash to
// the requested item; it must be re-queued and counted invalid rather
// than silently accepted.
func TestScenarioPeerReturnsWrongData(t *testing.T) {
	s, c := newTestHarness(t)

	value := trie.EncodeAccount([]byte{1}, []byte{1}, emptyTreeHash, crypto.EmptyCodeHash)
	rootBytes := trie.EncodeLeaf([]byte{4}, value)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	batch, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch.Requested, 1)

	wrongBytes := trie.EncodeLeaf([]byte{5}, value) // different path -> different hash
	result := sendResponse(t, s, batch, map[int][]byte{0: wrongBytes})
	require.Equal(t, OK, result, "a response slot with bytes counts as non-empty regardless of hash validity; one bad item out of one isn't enough to cross the bad-quality count floor")

	require.Equal(t, 1, s.PendingCount(), "bad item must be re-queued, not dropped")

	_, err := s.stateDB.Get(rootHash.Bytes())
	require.ErrorIs(t, err, ethdb.ErrNotFound)

	batch2, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch2.Requested, 1)
	result = sendResponse(t, s, batch2, map[int][]byte{0: rootBytes})
	require.Equal(t, OK, result)
}

// spec.md §4.6 step 6: a peer that sends plenty of data that mostly
// fails verification must be classified LesserQuality, not NoProgress
// — nonEmpty counts "responded at all", so it doesn't collapse to
// zero just because the data was wrong.
func TestScenarioPeerReturnsMostlyWrongData(t *testing.T) {
	s, c := newTestHarness(t)
	require.NoError(t, c.ResetStateRoot(1, hashOf(1)))
	c.Activate()

	for i := 0; i < BatchSize; i++ {
		s.pending.Push(SyncItem{Hash: hashOf(byte(i % 256)), Kind: StateNode, Level: 0})
	}
	batch, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch.Requested, BatchSize)

	data := make(map[int][]byte, 250)
	for i := 0; i < 250; i++ {
		data[i] = []byte("definitely not the right preimage")
	}
	result := sendResponse(t, s, batch, data)
	require.Equal(t, LesserQuality, result)
}

// Scenario 5 (spec.md §8): an account leaf with both contract code
// and a non-empty storage trie must hold its parent until both
// resolve before persisting the account leaf itself.
func TestScenarioAccountWithCodeAndStorage(t *testing.T) {
	s, c := newTestHarness(t)

	codeBytes := []byte("contract bytecode")
	codeHash := crypto.Keccak256Hash(codeBytes)

	storageLeafValue := []byte("storage-slot-value")
	storageLeafBytes := trie.EncodeLeaf([]byte{1}, storageLeafValue)
	storageRoot := crypto.Keccak256Hash(storageLeafBytes)

	accountValue := trie.EncodeAccount([]byte{1}, []byte{1}, storageRoot, codeHash)
	rootBytes := trie.EncodeLeaf([]byte{7}, accountValue)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	batch, _ := s.PrepareRequest(ModeStateNodes)
	sendResponse(t, s, batch, map[int][]byte{0: rootBytes})

	batch2, _ := s.PrepareRequest(ModeStateNodes)
	require.Len(t, batch2.Requested, 2)

	responses := make(map[int][]byte, 2)
	for i, item := range batch2.Requested {
		switch item.Kind {
		case Code:
			responses[i] = codeBytes
		case StorageNode:
			responses[i] = storageLeafBytes
		}
	}
	result := sendResponse(t, s, batch2, responses)
	require.Equal(t, OK, result)

	require.Equal(t, 0, s.PendingCount(), "code and storage leaf both resolved with no further children")
	require.Equal(t, 0, s.DependencyTableLen(), "account leaf must have drained once both code and storage resolved")

	got, err := s.stateDB.Get(rootHash.Bytes())
	require.NoError(t, err)
	require.Equal(t, rootBytes, got)

	gotCode, err := s.codeDB.Get(codeHash.Bytes())
	require.NoError(t, err)
	require.Equal(t, codeBytes, gotCode)
}

// Scenario 6 (spec.md §8): once the pending queue has genuinely
// drained without the root being saved, and the response-timeout
// grace period has elapsed, PrepareRequest must force a round end via
// the reset-root hint threshold rather than spinning forever.
func TestScenarioStallAndReset(t *testing.T) {
	s, c := newTestHarness(t)

	value := trie.EncodeAccount([]byte{1}, []byte{1}, emptyTreeHash, crypto.EmptyCodeHash)
	rootBytes := trie.EncodeLeaf([]byte{4}, value)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	// Drain the one pending root item without resolving it, simulating
	// a stall where nothing is left to (re)request.
	s.pending.TakeBatch(BatchSize)
	s.resetRootHint.Store(ResetRootHintThreshold - 1)
	s.roundStart.Store(time.Now().Add(-2 * ResponseTimeoutGrace).UnixNano())

	_, ended := s.PrepareRequest(ModeStateNodes)
	require.True(t, ended, "crossing the reset-root hint threshold on an exhausted queue must end the round")
}

// An exhausted queue with plenty of grace-period headroom left must
// not end the round prematurely.
func TestScenarioStallNotYetPastGrace(t *testing.T) {
	s, c := newTestHarness(t)

	value := trie.EncodeAccount([]byte{1}, []byte{1}, emptyTreeHash, crypto.EmptyCodeHash)
	rootBytes := trie.EncodeLeaf([]byte{4}, value)
	rootHash := crypto.Keccak256Hash(rootBytes)

	require.NoError(t, c.ResetStateRoot(1, rootHash))
	c.Activate()

	s.pending.TakeBatch(BatchSize)
	_, ended := s.PrepareRequest(ModeStateNodes)
	require.False(t, ended, "an exhausted queue within the grace period must not yet end the round")
}
