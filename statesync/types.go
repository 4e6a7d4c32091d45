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

// Package statesync implements the Merkle-Patricia state-trie
// synchronizer: given a target state root known to exist on the
// network, it reconstructs the full world state into a state DB and a
// code DB, tolerating slow, malicious, or partially responsive peers.
package statesync

import "github.com/ethersync/statesync/common"

// NodeDataType determines which backing store a SyncItem's bytes
// belong in and how the response payload is interpreted.
type NodeDataType int

const (
	StateNode NodeDataType = iota
	StorageNode
	Code
)

func (k NodeDataType) String() string {
	switch k {
	case StateNode:
		return "state"
	case StorageNode:
		return "storage"
	case Code:
		return "code"
	default:
		return "unknown"
	}
}

// SyncItem is a single unit of fetch work. Two SyncItems with equal
// Hash and Kind are interchangeable for fetching purposes; Level,
// Rightness, and the branch-child indices affect only prioritization
// and progress reporting (spec.md §3).
type SyncItem struct {
	Hash  common.Hash
	Kind  NodeDataType
	Level int

	// Rightness is a monotonic "how far right in the trie" measure,
	// used for priority ordering and progress reporting.
	Rightness uint64

	// ParentBranchChildIndex/BranchChildIndex are bookkeeping for
	// branch-progress reporting; -1 when not applicable.
	ParentBranchChildIndex int
	BranchChildIndex       int

	// IsRoot is true iff this item's hash is the current round's
	// target root.
	IsRoot bool
}

// rightnessUnit returns 16^max(0, 7-level), the scaling factor the
// rightness formula in spec.md §3 uses at a given parent level.
func rightnessUnit(level int) uint64 {
	exp := 7 - level
	if exp < 0 {
		exp = 0
	}
	u := uint64(1)
	for i := 0; i < exp; i++ {
		u *= 16
	}
	return u
}

// BranchChildRightness computes the rightness of a branch's child at
// slot index i, per spec.md §3:
//
//	parent.rightness + 16^max(0, 7-parent.level) * i
func BranchChildRightness(parent SyncItem, index int) uint64 {
	return parent.Rightness + rightnessUnit(parent.Level)*uint64(index)
}

// ExtensionChildRightness computes the rightness of an extension's
// single child, per spec.md §3:
//
//	parent.rightness + 16^max(0, 7-parent.level) * 16 - 1
func ExtensionChildRightness(parent SyncItem) uint64 {
	return parent.Rightness + rightnessUnit(parent.Level)*16 - 1
}

// DependentItem is a parent node held in memory because it has
// unsaved descendants (spec.md §3). Equality is by item.Hash alone: a
// parent appears at most once regardless of how many children
// blocked it.
type DependentItem struct {
	Item  SyncItem
	Value []byte

	// counter is the number of descendants not yet persisted. It must
	// only be mutated while holding the Dependency Table lock.
	counter int

	// IsAccount is true iff this parent is an account leaf; on
	// satisfaction it also increments the saved-accounts counter.
	IsAccount bool
}

// Counter returns the current unresolved-descendant count.
func (d *DependentItem) Counter() int { return d.counter }
