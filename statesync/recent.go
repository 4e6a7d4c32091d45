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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethersync/statesync/common"
)

// DefaultRecentlySavedCapacity is the default capacity of the
// Recently-Saved Filter (spec.md §4.2, §6 tunables).
const DefaultRecentlySavedCapacity = 1_048_576

// RecentlySavedFilter is a bounded LRU set of hashes known to be
// already persisted, used to short-circuit DB existence checks.
//
// False negatives are allowed (they just force a DB check); false
// positives are forbidden, since they would silently drop work.
// Eviction must be strictly by recency, so this is backed by
// hashicorp/golang-lru rather than a hand-rolled approximation.
type RecentlySavedFilter struct {
	cache *lru.Cache[common.Hash, struct{}]
}

// NewRecentlySavedFilter creates a filter with the given capacity.
func NewRecentlySavedFilter(capacity int) *RecentlySavedFilter {
	c, err := lru.New[common.Hash, struct{}](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0.
		panic(err)
	}
	return &RecentlySavedFilter{cache: c}
}

// Get reports membership and refreshes recency.
func (f *RecentlySavedFilter) Get(h common.Hash) bool {
	_, ok := f.cache.Get(h)
	return ok
}

// Set inserts h, evicting the least-recently-used entry on overflow.
func (f *RecentlySavedFilter) Set(h common.Hash) {
	f.cache.Add(h, struct{}{})
}

// Len returns the number of hashes currently tracked.
func (f *RecentlySavedFilter) Len() int { return f.cache.Len() }
