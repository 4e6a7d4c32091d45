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

	"github.com/ethersync/statesync/common"
)

// DependencyTable maps a not-yet-persisted hash to the set of parent
// DependentItems blocked on it (spec.md §4.3). The DAG of trie nodes
// is content-addressed and therefore acyclic; the table is keyed by
// child hash so a parent completing is a decrement and a list drain,
// never a graph walk (spec.md §9).
type DependencyTable struct {
	mu   sync.Mutex
	deps map[common.Hash][]*DependentItem
}

// NewDependencyTable creates an empty table.
func NewDependencyTable() *DependencyTable {
	return &DependencyTable{deps: make(map[common.Hash][]*DependentItem)}
}

// Add registers that dependent needs depHash resolved before it can
// be saved.
func (t *DependencyTable) Add(depHash common.Hash, dependent *DependentItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addLocked(depHash, dependent)
}

func (t *DependencyTable) addLocked(depHash common.Hash, dependent *DependentItem) {
	for _, d := range t.deps[depHash] {
		if d.Item.Hash == dependent.Item.Hash {
			return // already registered, set-equality by parent hash
		}
	}
	t.deps[depHash] = append(t.deps[depHash], dependent)
}

// Contains reports whether hash already has a dependency entry — used
// by the insertion path to detect "already requested".
func (t *DependencyTable) Contains(hash common.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.deps[hash]
	return ok
}

// AddAndCheck records the dependency edge hash -> dependent (if
// dependent is non-nil) and reports whether an entry for hash already
// existed before this call. Recording happens before the check is
// observed by the caller so a second parent discovering hash always
// becomes a dependent, never lost (spec.md §4.6.3 step 3).
func (t *DependencyTable) AddAndCheck(hash common.Hash, dependent *DependentItem) (alreadyRequested bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, alreadyRequested = t.deps[hash]
	if dependent != nil {
		t.addLocked(hash, dependent)
	} else if !alreadyRequested {
		// Seed an empty entry so Contains/AddAndCheck observe this hash
		// as in-flight even though no dependent is waiting on it yet
		// (the root item itself has no parent).
		t.deps[hash] = nil
	}
	return alreadyRequested
}

// Resolve removes the entry keyed by hash, decrements each of its
// DependentItems' counters, and returns those that reached zero.
func (t *DependencyTable) Resolve(hash common.Hash) []*DependentItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	dependents := t.deps[hash]
	delete(t.deps, hash)

	var satisfied []*DependentItem
	for _, d := range dependents {
		d.counter--
		if d.counter == 0 {
			satisfied = append(satisfied, d)
		}
	}
	return satisfied
}

// Len reports the number of distinct hashes currently tracked. A
// non-zero value after a round ends cleanly signals corruption
// (spec.md §4.3 invariant).
func (t *DependencyTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.deps)
}

// Clear empties the table. Used between rounds and on new roots
// (spec.md §3, "fully cleared only between rounds and on new roots").
func (t *DependencyTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deps = make(map[common.Hash][]*DependentItem)
}
