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
	"container/heap"
	"fmt"
	"sync"
	"time"
)

// streamKind identifies one of the four work streams the Pending-Items
// Store partitions items into (spec.md §4.1).
type streamKind int

const (
	streamStateShallow streamKind = iota
	streamStateDeep
	streamStorage
	streamCodes
	numStreams
)

// shallowDeepBoundary is the state-trie level at or above which items
// go into the "shallow" stream; items deeper than this go into
// "deep". Shallow-first biases discovery of breadth early.
const shallowDeepBoundary = 4

func (k streamKind) String() string {
	switch k {
	case streamStateShallow:
		return "state-shallow"
	case streamStateDeep:
		return "state-deep"
	case streamStorage:
		return "storage"
	case streamCodes:
		return "codes"
	default:
		return "unknown"
	}
}

// streamFor chooses a stream for an item by kind and level.
func streamFor(it SyncItem) streamKind {
	switch it.Kind {
	case Code:
		return streamCodes
	case StorageNode:
		return streamStorage
	default: // StateNode
		if it.Level <= shallowDeepBoundary {
			return streamStateShallow
		}
		return streamStateDeep
	}
}

// pendingEntry wraps a SyncItem with the sequence number it was
// pushed with, so FIFO order is preserved when the store isn't in
// closing-out mode.
type pendingEntry struct {
	item SyncItem
	seq  uint64
}

// stream is a heap.Interface over pendingEntry whose ordering flips
// between FIFO (by seq) and rightness-first depending on the owning
// store's closingOut flag — the two orderings spec.md §4.1 names
// ("Tie-breaking... items with higher rightness are preferred when
// recalculate_priorities() was last invoked with a closing-out
// signal; otherwise FIFO").
type stream struct {
	entries    []pendingEntry
	closingOut *bool
}

func (s *stream) Len() int { return len(s.entries) }
func (s *stream) Less(i, j int) bool {
	if *s.closingOut {
		return s.entries[i].item.Rightness > s.entries[j].item.Rightness
	}
	return s.entries[i].seq < s.entries[j].seq
}
func (s *stream) Swap(i, j int) { s.entries[i], s.entries[j] = s.entries[j], s.entries[i] }
func (s *stream) Push(x any)    { s.entries = append(s.entries, x.(pendingEntry)) }
func (s *stream) Pop() any {
	old := s.entries
	n := len(old)
	e := old[n-1]
	s.entries = old[:n-1]
	return e
}

// PendingSyncItems is the prioritized, multi-stream work queue
// described in spec.md §4.1. It guarantees total-order consistency
// under concurrent push/take via a single mutex (spec.md §4.1
// "Failure semantics").
type PendingSyncItems struct {
	mu sync.Mutex

	streams    [numStreams]*stream
	closingOut bool
	nextSeq    uint64

	maxStateLevel   int
	maxStorageLevel int

	// streamOrder is the current drain priority, highest-priority
	// stream first. recalculateStreamOrder rebuilds it.
	streamOrder [numStreams]streamKind

	lastRecalc time.Time

	// requestedSinceRecalc/savedSinceRecalc feed RecalculatePriorities:
	// a rolling view of how many items per stream were saved vs.
	// requested since the last recalculation.
	requestedSinceRecalc [numStreams]int
	savedSinceRecalc     [numStreams]int
}

// NewPendingSyncItems creates an empty store with the default
// breadth-first stream order.
func NewPendingSyncItems() *PendingSyncItems {
	p := &PendingSyncItems{
		streamOrder: [numStreams]streamKind{streamStateShallow, streamStateDeep, streamStorage, streamCodes},
	}
	for i := range p.streams {
		p.streams[i] = &stream{closingOut: &p.closingOut}
		heap.Init(p.streams[i])
	}
	return p
}

// Push inserts an item into the stream selected by its kind and
// level. It takes no progress snapshot: stream choice depends only on
// the item's kind and level.
func (p *PendingSyncItems) Push(item SyncItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushLocked(item)
}

func (p *PendingSyncItems) pushLocked(item SyncItem) {
	s := streamFor(item)
	heap.Push(p.streams[s], pendingEntry{item: item, seq: p.nextSeq})
	p.nextSeq++
	if item.Kind == StateNode && item.Level > p.maxStateLevel {
		p.maxStateLevel = item.Level
	}
	if item.Kind == StorageNode && item.Level > p.maxStorageLevel {
		p.maxStorageLevel = item.Level
	}
}

// TakeBatch pops up to max items, drawing predominantly from the
// highest-priority non-empty stream but interleaving so slow streams
// still advance: in each pass the highest-priority non-empty stream
// contributes up to three items and every other non-empty stream one,
// so no stream starves outright.
func (p *PendingSyncItems) TakeBatch(max int) []SyncItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]SyncItem, 0, max)
	const interleaveEvery = 3
	for len(out) < max {
		progressed := false
		first := true
		for _, sk := range p.streamOrder {
			if len(out) >= max {
				break
			}
			s := p.streams[sk]
			if s.Len() == 0 {
				continue
			}
			take := 1
			if first {
				take = interleaveEvery
				first = false
			}
			for i := 0; i < take && s.Len() > 0 && len(out) < max; i++ {
				e := heap.Pop(s).(pendingEntry)
				out = append(out, e.item)
				p.requestedSinceRecalc[sk]++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// NoteSaved records that an item from the given stream was saved,
// feeding recalculatePriorities' view of per-stream progress.
func (p *PendingSyncItems) NoteSaved(kind NodeDataType, level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.savedSinceRecalc[streamFor(SyncItem{Kind: kind, Level: level})]++
}

// PeekState returns, without removing, up to n pending StateNode
// items — used by diagnostics.
func (p *PendingSyncItems) PeekState(n int) []SyncItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []SyncItem
	for _, sk := range [2]streamKind{streamStateShallow, streamStateDeep} {
		for _, e := range p.streams[sk].entries {
			if len(out) >= n {
				return out
			}
			out = append(out, e.item)
		}
	}
	return out
}

// Count returns the total number of pending items across all streams.
func (p *PendingSyncItems) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.streams {
		n += s.Len()
	}
	return n
}

// Clear discards all pending items and resets level-tracking state.
func (p *PendingSyncItems) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.streams {
		p.streams[i].entries = nil
	}
	p.maxStateLevel = 0
	p.maxStorageLevel = 0
	p.closingOut = false
	p.requestedSinceRecalc = [numStreams]int{}
	p.savedSinceRecalc = [numStreams]int{}
}

// MaxStateLevel returns the deepest StateNode level ever pushed.
func (p *PendingSyncItems) MaxStateLevel() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxStateLevel
}

// MaxStorageLevel returns the deepest StorageNode level ever pushed.
func (p *PendingSyncItems) MaxStorageLevel() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxStorageLevel
}

// SetMaxStateLevel forces the tracked max state level, used by the
// response handler's "we've reached the bottom" hint when an account
// leaf is parsed (spec.md §4.6.2).
func (p *PendingSyncItems) SetMaxStateLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level > p.maxStateLevel {
		p.maxStateLevel = level
	}
}

// SetMaxStorageLevel forces the tracked max storage level.
func (p *PendingSyncItems) SetMaxStorageLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level > p.maxStorageLevel {
		p.maxStorageLevel = level
	}
}

// RecalculatePriorities re-weights streams based on observed
// save/request ratios and returns a human-readable description for
// logging. It is a no-op (returning the empty string) if called
// within 60 seconds of the previous invocation (spec.md §4.1).
func (p *PendingSyncItems) RecalculatePriorities(now time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastRecalc.IsZero() && now.Sub(p.lastRecalc) < 60*time.Second {
		return ""
	}
	p.lastRecalc = now

	var totalRequested, totalSaved int
	for i := 0; i < int(numStreams); i++ {
		totalRequested += p.requestedSinceRecalc[i]
		totalSaved += p.savedSinceRecalc[i]
	}

	// Stalling: little of what we requested came back as saved
	// progress. Bias toward closing out trailing subtrees by
	// rightness. Otherwise keep exploring breadth-first.
	stalling := totalRequested > 0 && float64(totalSaved)/float64(totalRequested) < 0.1
	p.closingOut = stalling

	if stalling {
		// Put the deep state stream first and the shallow state stream
		// last; the order is fixed, not derived from observed levels.
		p.streamOrder = [numStreams]streamKind{streamStateDeep, streamStorage, streamCodes, streamStateShallow}
	} else {
		p.streamOrder = [numStreams]streamKind{streamStateShallow, streamStateDeep, streamStorage, streamCodes}
	}

	p.requestedSinceRecalc = [numStreams]int{}
	p.savedSinceRecalc = [numStreams]int{}

	mode := "breadth-first"
	if stalling {
		mode = "closing-out"
	}
	return fmt.Sprintf("pending-items: mode=%s requested=%d saved=%d maxStateLevel=%d maxStorageLevel=%d",
		mode, totalRequested, totalSaved, p.maxStateLevel, p.maxStorageLevel)
}
