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

import "time"

// PrepareRequest implements spec.md §4.5. It returns a batch to
// dispatch (possibly empty) and reports whether the round has ended
// (either because the root turned out trivial/already-present, or
// because the reset-root hint threshold was crossed).
func (s *Synchronizer) PrepareRequest(mode SyncMode) (batch StateSyncBatch, roundEnded bool) {
	if !mode.Includes(ModeStateNodes) {
		return StateSyncBatch{}, false
	}
	if s.currentRoot == emptyTreeHash {
		return StateSyncBatch{}, true
	}
	if has, _ := s.stateDB.Has(s.currentRoot.Bytes()); has {
		return StateSyncBatch{}, true
	}
	if s.rootSaved.Load() {
		return StateSyncBatch{}, true
	}

	items := s.pending.TakeBatch(BatchSize)
	if len(items) == 0 {
		start := s.roundStart.Load()
		if start != 0 && time.Since(time.Unix(0, start)) > ResponseTimeoutGrace {
			if s.resetRootHint.Add(1) >= ResetRootHintThreshold {
				return StateSyncBatch{}, true
			}
		}
		return StateSyncBatch{}, false
	}

	s.counters.requested.Add(uint64(len(items)))
	b := s.registerInFlight(items)
	return b, false
}

func (s *Synchronizer) registerInFlight(items []SyncItem) StateSyncBatch {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	s.nextBatch++
	b := StateSyncBatch{ID: s.nextBatch, Requested: items}
	s.inFlight[b.ID] = b
	return b
}

func (s *Synchronizer) deregisterInFlight(id uint64) (StateSyncBatch, bool) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	b, ok := s.inFlight[id]
	if ok {
		delete(s.inFlight, id)
	}
	return b, ok
}

// inFlightCount reports how many batches are currently outstanding.
func (s *Synchronizer) inFlightCount() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

// inFlightItems drains and returns every currently in-flight batch's
// items, clearing the in-flight set. Used by ResetStateRoot.
func (s *Synchronizer) inFlightItems() []SyncItem {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	var items []SyncItem
	for _, b := range s.inFlight {
		items = append(items, b.Requested...)
	}
	s.inFlight = make(map[uint64]StateSyncBatch)
	return items
}
