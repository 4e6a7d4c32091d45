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
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/ethersync/statesync/common"
	"github.com/ethersync/statesync/ethdb"
	"github.com/ethersync/statesync/log"
)

// progressFormatVersion is bumped whenever the serialized layout of
// DetailedProgress changes.
const progressFormatVersion uint32 = 1

// ProgressKey is the fixed all-zero-hash sentinel key the serialized
// DetailedProgress is stored under in the code DB (spec.md §4.8, §6).
var ProgressKey = common.Hash{}

// DetailedProgress is a flat record of counters describing sync
// progress, serializable to a fixed byte layout for checkpointing
// (spec.md §3).
type DetailedProgress struct {
	Requested        uint64
	Consumed         uint64
	Saved            uint64
	SavedAccounts    uint64
	SavedState       uint64
	SavedStorage     uint64
	SavedCode        uint64
	DBChecks         uint64
	CacheHits        uint64
	StateWasThere    uint64
	StateWasNotThere uint64
	EmptishCount     uint64
	BadQualityCount  uint64
	InvalidFormat    uint64
	NotAssignedCount uint64
	OKCount          uint64
	SecondsInSync    uint64
	DataSize         uint64
	LastReportTime   uint64
}

// progressCounters is the atomic-counter-backed live twin of
// DetailedProgress; every HandleResponse call updates it with
// atomic add/increment so concurrent handlers never lose counts
// (spec.md §5, "Atomic counters").
type progressCounters struct {
	requested        atomic.Uint64
	consumed         atomic.Uint64
	saved            atomic.Uint64
	savedAccounts    atomic.Uint64
	savedState       atomic.Uint64
	savedStorage     atomic.Uint64
	savedCode        atomic.Uint64
	dbChecks         atomic.Uint64
	cacheHits        atomic.Uint64
	stateWasThere    atomic.Uint64
	stateWasNotThere atomic.Uint64
	emptishCount     atomic.Uint64
	badQualityCount  atomic.Uint64
	invalidFormat    atomic.Uint64
	notAssignedCount atomic.Uint64
	okCount          atomic.Uint64
	secondsInSync    atomic.Uint64
	dataSize         atomic.Uint64
	lastReportTime   atomic.Uint64
}

func (c *progressCounters) snapshot() DetailedProgress {
	return DetailedProgress{
		Requested:        c.requested.Load(),
		Consumed:         c.consumed.Load(),
		Saved:            c.saved.Load(),
		SavedAccounts:    c.savedAccounts.Load(),
		SavedState:       c.savedState.Load(),
		SavedStorage:     c.savedStorage.Load(),
		SavedCode:        c.savedCode.Load(),
		DBChecks:         c.dbChecks.Load(),
		CacheHits:        c.cacheHits.Load(),
		StateWasThere:    c.stateWasThere.Load(),
		StateWasNotThere: c.stateWasNotThere.Load(),
		EmptishCount:     c.emptishCount.Load(),
		BadQualityCount:  c.badQualityCount.Load(),
		InvalidFormat:    c.invalidFormat.Load(),
		NotAssignedCount: c.notAssignedCount.Load(),
		OKCount:          c.okCount.Load(),
		SecondsInSync:    c.secondsInSync.Load(),
		DataSize:         c.dataSize.Load(),
		LastReportTime:   c.lastReportTime.Load(),
	}
}

func (c *progressCounters) restore(p DetailedProgress) {
	c.requested.Store(p.Requested)
	c.consumed.Store(p.Consumed)
	c.saved.Store(p.Saved)
	c.savedAccounts.Store(p.SavedAccounts)
	c.savedState.Store(p.SavedState)
	c.savedStorage.Store(p.SavedStorage)
	c.savedCode.Store(p.SavedCode)
	c.dbChecks.Store(p.DBChecks)
	c.cacheHits.Store(p.CacheHits)
	c.stateWasThere.Store(p.StateWasThere)
	c.stateWasNotThere.Store(p.StateWasNotThere)
	c.emptishCount.Store(p.EmptishCount)
	c.badQualityCount.Store(p.BadQualityCount)
	c.invalidFormat.Store(p.InvalidFormat)
	c.notAssignedCount.Store(p.NotAssignedCount)
	c.okCount.Store(p.OKCount)
	c.secondsInSync.Store(p.SecondsInSync)
	c.dataSize.Store(p.DataSize)
	c.lastReportTime.Store(p.LastReportTime)
}

// numProgressFields is the count of uint64 fields serialized after
// the chain-id/version prefix.
const numProgressFields = 19

// EncodeDetailedProgress serializes p into the stable, versioned byte
// layout spec.md §4.8 requires: a 4-byte chain-id prefix, a 4-byte
// format version, then the fixed-width little-endian counters in
// struct-declaration order. Every counter field round-trips byte-for-
// byte, including LastReportTime — spec.md §8's round-trip invariant
// makes no exception for it, so a restart simply replays whatever
// instant was last persisted until the next report overwrites it.
//
// encoding/binary is used directly rather than a generic
// serialization library: the corpus has no library targeting a
// hand-specified fixed binary layout like this one (see DESIGN.md).
func EncodeDetailedProgress(chainID uint32, p DetailedProgress) []byte {
	buf := make([]byte, 8+numProgressFields*8)
	binary.LittleEndian.PutUint32(buf[0:4], chainID)
	binary.LittleEndian.PutUint32(buf[4:8], progressFormatVersion)

	fields := [numProgressFields]uint64{
		p.Requested, p.Consumed, p.Saved, p.SavedAccounts, p.SavedState,
		p.SavedStorage, p.SavedCode, p.DBChecks, p.CacheHits, p.StateWasThere,
		p.StateWasNotThere, p.EmptishCount, p.BadQualityCount, p.InvalidFormat,
		p.NotAssignedCount, p.OKCount, p.SecondsInSync, p.DataSize, p.LastReportTime,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint64(buf[8+i*8:16+i*8], f)
	}
	return buf
}

// DecodeDetailedProgress is the inverse of EncodeDetailedProgress.
func DecodeDetailedProgress(data []byte) (chainID uint32, p DetailedProgress, err error) {
	if len(data) != 8+numProgressFields*8 {
		return 0, DetailedProgress{}, fmt.Errorf("statesync: progress record wrong size: got %d", len(data))
	}
	chainID = binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != progressFormatVersion {
		return 0, DetailedProgress{}, fmt.Errorf("statesync: unsupported progress format version %d", version)
	}
	var fields [numProgressFields]uint64
	for i := range fields {
		fields[i] = binary.LittleEndian.Uint64(data[8+i*8 : 16+i*8])
	}
	p = DetailedProgress{
		Requested: fields[0], Consumed: fields[1], Saved: fields[2],
		SavedAccounts: fields[3], SavedState: fields[4], SavedStorage: fields[5],
		SavedCode: fields[6], DBChecks: fields[7], CacheHits: fields[8],
		StateWasThere: fields[9], StateWasNotThere: fields[10], EmptishCount: fields[11],
		BadQualityCount: fields[12], InvalidFormat: fields[13], NotAssignedCount: fields[14],
		OKCount: fields[15], SecondsInSync: fields[16], DataSize: fields[17],
		LastReportTime: fields[18],
	}
	return chainID, p, nil
}

// persistProgress writes the serialized counters to the code DB under
// ProgressKey. Per spec.md §7, exceptions during this write must be
// logged but never crash the handler.
func persistProgress(codeDB ethdb.KeyValueStore, chainID uint32, c *progressCounters) {
	data := EncodeDetailedProgress(chainID, c.snapshot())
	if err := codeDB.Put(ProgressKey.Bytes(), data); err != nil {
		log.Error("statesync: failed to persist progress", "err", err)
	}
}

// loadProgress reads a previously persisted DetailedProgress from the
// code DB, if any. A missing key is not an error — it just means this
// is the first run.
func loadProgress(codeDB ethdb.KeyValueStore, chainID uint32) (DetailedProgress, bool) {
	data, err := codeDB.Get(ProgressKey.Bytes())
	if err != nil {
		return DetailedProgress{}, false
	}
	gotChainID, p, err := DecodeDetailedProgress(data)
	if err != nil || gotChainID != chainID {
		return DetailedProgress{}, false
	}
	return p, true
}
