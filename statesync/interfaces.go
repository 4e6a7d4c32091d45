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
	"context"

	"github.com/ethersync/statesync/common"
)

// SyncMode is a bitmask of active sync feeds, as emitted by the
// external sync-mode controller (spec.md §6).
type SyncMode uint32

const (
	// ModeStateNodes, when set, means the state synchronizer should be
	// active.
	ModeStateNodes SyncMode = 1 << iota
)

// Includes reports whether m has every bit of other set.
func (m SyncMode) Includes(other SyncMode) bool { return m&other == other }

// ModeChange is the event the sync-mode controller emits when its
// active mode bitmask changes (spec.md §6).
type ModeChange struct {
	Old, New SyncMode
}

// ModeWatcher is the narrow channel-based subscription to sync-mode
// changes, per the design note in spec.md §9 ("model as an injected
// callback or channel rather than an observer pattern — the
// controller must be able to unregister on teardown").
type ModeWatcher interface {
	// Changes returns a channel of mode-change events. Close(),
	// called at teardown, unregisters the subscription and closes
	// the channel.
	Changes() <-chan ModeChange
	Close()
}

// BlockRef is the minimal header info the block-tree contract
// exposes (spec.md §6).
type BlockRef struct {
	Number     uint64
	StateRoot  common.Hash
}

// BlockTree is the external collaborator that announces the best
// known header to sync state for (spec.md §6).
type BlockTree interface {
	BestSuggestedHeader() (BlockRef, bool)
}

// StateSyncBatch is a bounded group of SyncItems requested together
// from a single peer (spec.md §6).
type StateSyncBatch struct {
	ID        uint64
	Requested []SyncItem
}

// BatchResponse pairs a dispatched batch with the peer's reply.
// Responses is nil if no peer was assigned; otherwise it is one entry
// per requested item (shorter if the peer truncated), each either the
// raw node/code bytes or nil if the peer didn't have it.
type BatchResponse struct {
	Batch     StateSyncBatch
	Responses [][]byte
}

// BatchDispatcher is the external wire-protocol collaborator: it
// accepts a StateSyncBatch and eventually feeds a BatchResponse back
// through HandleResponse (spec.md §6). Dispatch itself is expected to
// be asynchronous — callers should not block substantial time in it.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batch StateSyncBatch) error
}
