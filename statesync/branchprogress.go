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

import "sync"

// ProgressState is the completion status of a single top-of-trie
// cell (spec.md §4.4).
type ProgressState int

const (
	Unknown ProgressState = iota
	Requested
	Empty
	AlreadySaved
	Saved
)

func (s ProgressState) String() string {
	switch s {
	case Requested:
		return "requested"
	case Empty:
		return "empty"
	case AlreadySaved:
		return "already-saved"
	case Saved:
		return "saved"
	default:
		return "unknown"
	}
}

// branchCell identifies a single top-two-levels position: level 0 has
// one cell (the root itself, parentIdx/childIdx both -1); level 1 has
// 16 cells, one per root branch-child index.
type branchCell struct {
	level    int
	parentIx int
	childIx  int
}

// BranchProgress records completion status at the top two levels
// (0, 1) of the state trie, purely for observability — sync
// correctness never depends on it (spec.md §4.4).
type BranchProgress struct {
	mu    sync.Mutex
	cells map[branchCell]ProgressState
}

// NewBranchProgress creates a fresh, all-Unknown progress map.
func NewBranchProgress() *BranchProgress {
	return &BranchProgress{cells: make(map[branchCell]ProgressState)}
}

// ReportSynced updates one cell's state. kind is accepted for
// interface symmetry with the spec's signature but branch progress is
// only tracked for state-trie positions in levels 0 and 1; reports for
// other kinds or deeper levels are ignored.
func (b *BranchProgress) ReportSynced(level, parentIdx, childIdx int, kind NodeDataType, state ProgressState) {
	if kind != StateNode || level > 1 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cells[branchCell{level, parentIdx, childIdx}] = state
}

// Reset clears all recorded cells, used when a new root is adopted.
func (b *BranchProgress) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cells = make(map[branchCell]ProgressState)
}

// Level1States returns the completion state of each of the 16
// root branch-children, for progress display.
func (b *BranchProgress) Level1States() [16]ProgressState {
	b.mu.Lock()
	defer b.mu.Unlock()

	var states [16]ProgressState
	for i := 0; i < 16; i++ {
		states[i] = b.cells[branchCell{1, -1, i}]
	}
	return states
}

// PercentComplete weights each completed (Saved or AlreadySaved or
// Empty) level-1 branch child by 1/16 and returns a 0-100 estimate.
func (b *BranchProgress) PercentComplete() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var done float64
	for i := 0; i < 16; i++ {
		switch b.cells[branchCell{1, -1, i}] {
		case Saved, AlreadySaved, Empty:
			done++
		}
	}
	return done / 16 * 100
}
