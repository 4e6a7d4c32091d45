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

// InMemoryModeWatcher is a default ModeWatcher implementation for
// tests and cmd/statesync: a channel fed by explicit Set calls.
type InMemoryModeWatcher struct {
	mu      sync.Mutex
	current SyncMode
	ch      chan ModeChange
	closed  bool
}

// NewInMemoryModeWatcher creates a watcher starting at mode current.
func NewInMemoryModeWatcher(current SyncMode) *InMemoryModeWatcher {
	return &InMemoryModeWatcher{current: current, ch: make(chan ModeChange, 8)}
}

// Set updates the current mode and emits a ModeChange if it differs
// from the previous one.
func (w *InMemoryModeWatcher) Set(newMode SyncMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || newMode == w.current {
		return
	}
	old := w.current
	w.current = newMode
	select {
	case w.ch <- ModeChange{Old: old, New: newMode}:
	default:
	}
}

func (w *InMemoryModeWatcher) Changes() <-chan ModeChange { return w.ch }

func (w *InMemoryModeWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// StaticBlockTree is a default BlockTree implementation that always
// reports the same fixed header — used in tests and as a stand-in
// until the real block-tree collaborator is wired.
type StaticBlockTree struct {
	Ref   BlockRef
	Valid bool
}

func (t StaticBlockTree) BestSuggestedHeader() (BlockRef, bool) { return t.Ref, t.Valid }
