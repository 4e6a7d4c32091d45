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
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethersync/statesync/common"
	"github.com/ethersync/statesync/crypto"
	"github.com/ethersync/statesync/log"
	"github.com/ethersync/statesync/trie"
)

// AddNodeToPending implements spec.md §4.6.3: given an item and
// (optionally) the DependentItem parent waiting on it, decide whether
// it's already saved, already requested, or needs to be added fresh.
func (s *Synchronizer) AddNodeToPending(item SyncItem, parent *DependentItem) AddResult {
	if s.recentlySaved.Get(item.Hash) {
		s.reportAlreadySaved(item)
		return AlreadySaved
	}

	store, lock := stateStoreFor(s, item.Kind)
	lock.Lock()
	s.counters.dbChecks.Add(1)
	has, _ := store.Has(item.Hash.Bytes())
	lock.Unlock()
	if has {
		s.recentlySaved.Set(item.Hash)
		s.reportAlreadySaved(item)
		return AlreadySaved
	}

	// Step (3)'s ordering matters: the parent edge is always recorded
	// before the "already requested" check, so a second parent
	// discovering the hash always becomes a dependent — never lost
	// (spec.md §4.6.3).
	alreadyRequested := s.dependencies.AddAndCheck(item.Hash, parent)
	if alreadyRequested {
		return AlreadyRequested
	}

	s.pending.Push(item)
	return Added
}

func (s *Synchronizer) reportAlreadySaved(item SyncItem) {
	if item.Level <= 1 {
		s.branchProgress.ReportSynced(item.Level, item.ParentBranchChildIndex, item.BranchChildIndex, item.Kind, AlreadySaved)
	}
}

// PossiblySaveDependentNodes implements spec.md §4.6.4: given a
// just-saved hash, resolve its Dependency Table entry, and for every
// dependent whose counter reached zero, save it — recursively
// invoking itself on that dependent's hash, so a whole chain of
// completed ancestors persists within a single call.
func (s *Synchronizer) PossiblySaveDependentNodes(hash common.Hash) {
	satisfied := s.dependencies.Resolve(hash)
	for _, dep := range satisfied {
		s.saveDependent(dep)
	}
}

func (s *Synchronizer) saveDependent(dep *DependentItem) {
	if dep.IsAccount {
		s.counters.savedAccounts.Add(1)
	}
	s.SaveNode(dep.Item, dep.Value)
}

// SaveNode writes the raw bytes to the appropriate store, handles the
// storage-trie/code coincidence case, marks progress, and — if this
// was the target root — flips the round-saved flag so the next
// Request Builder tick finalizes the round (spec.md §4.6.5).
func (s *Synchronizer) SaveNode(item SyncItem, value []byte) {
	store, lock := stateStoreFor(s, item.Kind)
	lock.Lock()
	_ = store.Put(item.Hash.Bytes(), value)
	lock.Unlock()

	s.recentlySaved.Set(item.Hash)
	s.counters.saved.Add(1)
	s.counters.dataSize.Add(uint64(len(value)))
	s.pending.NoteSaved(item.Kind, item.Level)

	switch item.Kind {
	case StateNode:
		s.counters.savedState.Add(1)
	case StorageNode:
		s.counters.savedStorage.Add(1)
		s.codesSameAsNodesLock.Lock()
		_, coincides := s.codesSameAsNodes[item.Hash]
		if coincides {
			delete(s.codesSameAsNodes, item.Hash)
		}
		s.codesSameAsNodesLock.Unlock()
		if coincides {
			s.codeDBLock.Lock()
			_ = s.codeDB.Put(item.Hash.Bytes(), value)
			s.codeDBLock.Unlock()
			s.counters.savedCode.Add(1)
		}
	case Code:
		s.counters.savedCode.Add(1)
	}

	if item.Level <= 1 {
		s.branchProgress.ReportSynced(item.Level, item.ParentBranchChildIndex, item.BranchChildIndex, item.Kind, Saved)
	}

	if item.IsRoot {
		s.rootSaved.Store(true)
	}

	s.PossiblySaveDependentNodes(item.Hash)
}

// HandleResponse implements spec.md §4.6: verify, parse, schedule
// children, save completed subtrees, and classify batch quality.
func (s *Synchronizer) HandleResponse(resp BatchResponse) HandleResult {
	batch, ok := s.deregisterInFlight(resp.Batch.ID)
	if !ok {
		return OK // already handled or cancelled; benign no-op.
	}

	if desc := s.pending.RecalculatePriorities(time.Now()); desc != "" {
		log.Debug(desc)
	}

	if batch.Requested == nil {
		s.handleMu.Lock()
		s.counters.okCount.Add(0) // no-op, keeps symmetry with other branches
		s.handleMu.Unlock()
		return InternalError
	}

	if resp.Responses == nil {
		for _, item := range batch.Requested {
			s.pending.Push(item)
		}
		s.handleMu.Lock()
		s.counters.notAssignedCount.Add(1)
		s.handleMu.Unlock()
		return NotAssigned
	}

	// nonEmpty counts response slots that had bytes at all, independent
	// of whether those bytes verified (spec.md §4.6 step 5); invalid
	// overlaps it rather than partitioning it, so a peer that returns
	// plenty of data that's mostly wrong is still caught by
	// isBadQuality below instead of being misread as NoProgress.
	var nonEmpty, invalid int
	for i, item := range batch.Requested {
		if i < len(resp.Responses) && resp.Responses[i] != nil {
			nonEmpty++
		}
		if s.processResponseItem(item, i, resp.Responses) == itemInvalid {
			invalid++
		}
	}

	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	s.counters.consumed.Add(uint64(len(batch.Requested)))
	persistProgress(s.codeDB, s.chainID, s.counters)

	requested := len(batch.Requested)
	isEmptish := float64(nonEmpty)/float64(max1(requested)) < EmptishRatioThreshold
	isBadQuality := nonEmpty > BadQualityResponseFloor && float64(invalid)/float64(max1(requested)) > BadQualityRatio
	isEmpty := nonEmpty == 0 && !isBadQuality

	if isEmptish {
		s.resetRootHint.Add(1)
		s.counters.emptishCount.Add(1)
	} else {
		s.resetRootHint.Store(0)
	}

	switch {
	case isBadQuality:
		s.counters.badQualityCount.Add(1)
		return LesserQuality
	case isEmpty:
		return NoProgress
	case isEmptish:
		return Emptish
	default:
		s.counters.okCount.Add(1)
		return OK
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// itemOutcome classifies a single requested item against its
// response slot for the quality tally in HandleResponse.
type itemOutcome int

const (
	itemMissing itemOutcome = iota // no response slot, or nil: re-queued, not counted either way
	itemInvalid                    // response present but hash-mismatched or unparseable
	itemOK                         // response present, hash-verified, and (if a trie node) parsed
)

// processResponseItem implements spec.md §4.6.1 for a single
// requested index.
func (s *Synchronizer) processResponseItem(item SyncItem, i int, responses [][]byte) itemOutcome {
	if i >= len(responses) || responses[i] == nil {
		s.pending.Push(item)
		return itemMissing
	}
	data := responses[i]

	if crypto.Keccak256Hash(data) != item.Hash {
		s.pending.Push(item)
		return itemInvalid
	}

	if item.Kind == Code {
		s.codeDBLock.Lock()
		_ = s.codeDB.Put(item.Hash.Bytes(), data)
		s.codeDBLock.Unlock()
		s.counters.savedCode.Add(1)
		s.recentlySaved.Set(item.Hash)
		s.PossiblySaveDependentNodes(item.Hash)
		return itemOK
	}

	return s.handleTrieNode(item, data)
}

// handleTrieNode implements spec.md §4.6.2.
func (s *Synchronizer) handleTrieNode(item SyncItem, data []byte) itemOutcome {
	node, err := s.parser.Parse(data)
	if err != nil || node.Kind == trie.Unknown {
		// Parse failure: count as invalid, leave the parent's
		// dependency counter as-is; the reset-root hint mechanism
		// will eventually force a round reset (spec.md §7).
		s.pending.Push(item)
		return itemInvalid
	}

	switch node.Kind {
	case trie.Branch:
		s.handleBranch(item, data, node)
	case trie.Extension:
		s.handleExtension(item, data, node)
	case trie.Leaf:
		if item.Kind == StateNode {
			s.handleAccountLeaf(item, data, node)
		} else {
			s.handleStorageLeaf(item, data)
		}
	}
	return itemOK
}

func (s *Synchronizer) handleBranch(item SyncItem, raw []byte, node trie.Node) {
	dep := &DependentItem{Item: item, Value: raw}

	seen := mapset.NewThreadUnsafeSet[common.Hash]()
	for i := 15; i >= 0; i-- {
		child := node.Children[i]
		if child.IsNull() {
			s.branchProgress.ReportSynced(item.Level+1, item.BranchChildIndex, i, item.Kind, Empty)
			continue
		}
		if child.Embedded {
			continue // embedded nodes carry no separate hash to fetch
		}
		if seen.Contains(child.Hash) {
			continue // dedup identical child hashes within one branch
		}
		seen.Add(child.Hash)

		childItem := SyncItem{
			Hash:                   child.Hash,
			Kind:                   item.Kind,
			Level:                  item.Level + 1,
			Rightness:              BranchChildRightness(item, i),
			ParentBranchChildIndex: item.BranchChildIndex,
			BranchChildIndex:       i,
		}
		switch s.AddNodeToPending(childItem, dep) {
		case Added, AlreadyRequested:
			dep.counter++
		case AlreadySaved:
			// already reported via reportAlreadySaved
		}
	}

	if dep.counter == 0 {
		s.SaveNode(item, raw)
	}
}

func (s *Synchronizer) handleExtension(item SyncItem, raw []byte, node trie.Node) {
	childLevel := item.Level + len(node.Path)
	if node.Child.Embedded {
		s.SaveNode(item, raw)
		return
	}

	dep := &DependentItem{Item: item, Value: raw, counter: 1}
	childItem := SyncItem{
		Hash:      node.Child.Hash,
		Kind:      item.Kind,
		Level:     childLevel,
		Rightness: ExtensionChildRightness(item),
	}
	if s.AddNodeToPending(childItem, dep) == AlreadySaved {
		s.SaveNode(item, raw)
	}
}

func (s *Synchronizer) handleAccountLeaf(item SyncItem, raw []byte, node trie.Node) {
	s.pending.SetMaxStateLevel(64)

	dep := &DependentItem{Item: item, Value: raw, IsAccount: true}
	codeHash, storageRoot, err := trie.DecodeAccount(node.Value)
	if err != nil {
		log.Warn("statesync: malformed account leaf, dropping", "hash", item.Hash, "err", err)
		return
	}

	switch {
	case codeHash == crypto.EmptyCodeHash:
		// no code dependency
	case codeHash == storageRoot:
		s.codesSameAsNodesLock.Lock()
		s.codesSameAsNodes[codeHash] = struct{}{}
		s.codesSameAsNodesLock.Unlock()
	default:
		codeItem := SyncItem{Hash: codeHash, Kind: Code, Level: 0}
		if s.AddNodeToPending(codeItem, dep) != AlreadySaved {
			dep.counter++
		}
	}

	if storageRoot != emptyTreeHash {
		storageItem := SyncItem{Hash: storageRoot, Kind: StorageNode, Level: 0}
		if s.AddNodeToPending(storageItem, dep) != AlreadySaved {
			dep.counter++
		}
	}

	if dep.counter == 0 {
		s.counters.savedAccounts.Add(1)
		s.SaveNode(item, raw)
	}
}

func (s *Synchronizer) handleStorageLeaf(item SyncItem, raw []byte) {
	s.pending.SetMaxStorageLevel(64)
	s.SaveNode(item, raw)
}

