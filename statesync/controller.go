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
	"time"

	"github.com/ethersync/statesync/common"
	"github.com/ethersync/statesync/log"
)

// RoundState is the Sync-Round Controller's lifecycle state
// (spec.md §4.7).
type RoundState int

const (
	Dormant RoundState = iota
	Active
)

func (r RoundState) String() string {
	if r == Active {
		return "active"
	}
	return "dormant"
}

// Controller owns the feed lifecycle: activation, root selection,
// exhaustion, stall detection, and resume (spec.md §4.7).
type Controller struct {
	sync *Synchronizer
	tree BlockTree
	mode ModeWatcher

	mu    sync.Mutex
	state RoundState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewController creates a Controller wired to the given
// Synchronizer, block tree, and sync-mode watcher.
func NewController(sync *Synchronizer, tree BlockTree, mode ModeWatcher) *Controller {
	return &Controller{
		sync:  sync,
		tree:  tree,
		mode:  mode,
		state: Dormant,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() RoundState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run subscribes to mode changes and activates/deactivates the feed
// accordingly until Stop is called. It is meant to be run in its own
// goroutine by the outer driver.
func (c *Controller) Run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case change, ok := <-c.mode.Changes():
			if !ok {
				return
			}
			c.onModeChange(change)
		}
	}
}

// Stop unregisters from the mode watcher and waits for Run to return.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.mode.Close()
	})
	<-c.done
}

func (c *Controller) onModeChange(change ModeChange) {
	if change.New.Includes(ModeStateNodes) && !change.Old.Includes(ModeStateNodes) {
		ref, ok := c.tree.BestSuggestedHeader()
		if !ok || ref.Number < 1 {
			return
		}
		if err := c.ResetStateRoot(ref.Number, ref.StateRoot); err != nil {
			log.Warn("statesync: reset on activation failed", "err", err)
			return
		}
		c.Activate()
	}
}

// Activate transitions Dormant -> Active.
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Active
	c.sync.roundStart.Store(time.Now().UnixNano())
	log.Info("statesync: round activated", "root", c.sync.currentRoot)
}

// CheckRoundEnd must be called after every PrepareRequest; when
// PrepareRequest reports the round has ended, this performs the exit
// path described in spec.md §4.7: verify the Dependency Table is
// empty, fall dormant, and perform the same-root reset (re-queue all
// in-flight work) ahead of the next activation.
func (c *Controller) CheckRoundEnd(roundEnded bool) {
	if !roundEnded {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return
	}
	c.verifyPostSyncCleanupLocked()
	c.state = Dormant
	// Same-root reset: re-queue every in-flight batch's items and
	// clear the in-flight set, as ResetStateRoot does for an unchanged
	// root (c.mu is already held, so it is not called directly).
	for _, item := range c.sync.inFlightItems() {
		c.sync.pending.Push(item)
	}
	log.Info("statesync: round ended", "root", c.sync.currentRoot,
		"elapsed", time.Since(time.Unix(0, c.sync.roundStart.Load())),
		"savedState", c.sync.counters.savedState.Load(),
		"savedStorage", c.sync.counters.savedStorage.Load(),
		"savedCode", c.sync.counters.savedCode.Load(),
		"percentComplete", c.sync.branchProgress.PercentComplete())
}

// VerifyPostSyncCleanUp asserts the Dependency Table is empty and
// logs a corruption warning (without failing the round) if not —
// spec.md §4.3's invariant and §7's error-handling contract.
func (c *Controller) VerifyPostSyncCleanUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifyPostSyncCleanupLocked()
}

func (c *Controller) verifyPostSyncCleanupLocked() {
	if n := c.sync.dependencies.Len(); n != 0 {
		log.Warn("statesync: dependency table not empty at round end, corruption suspected", "entries", n)
		c.sync.dependencies.Clear()
	}
}

// ResetStateRoot implements spec.md §4.7. It must not be called while
// the controller is Active.
func (c *Controller) ResetStateRoot(blockNumber uint64, newRoot common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Active {
		return ErrResetWhileActive
	}

	if newRoot == c.sync.currentRoot {
		for _, item := range c.sync.inFlightItems() {
			c.sync.pending.Push(item)
		}
		return nil
	}

	c.sync.dependencies.Clear()
	c.sync.codesSameAsNodesLock.Lock()
	c.sync.codesSameAsNodes = make(map[common.Hash]struct{})
	c.sync.codesSameAsNodesLock.Unlock()
	c.sync.pending.Clear()
	c.sync.rootSaved.Store(false)
	c.sync.resetRootHint.Store(0)
	c.sync.branchProgress.Reset()
	c.sync.inFlightItems() // clear unconditionally

	c.sync.currentRoot = newRoot

	if newRoot != emptyTreeHash && c.sync.pending.Count() == 0 {
		c.sync.pending.Push(SyncItem{Hash: newRoot, Kind: StateNode, Level: 0, IsRoot: true,
			ParentBranchChildIndex: -1, BranchChildIndex: -1})
	}
	return nil
}
