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

// Package memorydb implements an in-memory ethdb.KeyValueStore fronted
// by a fastcache byte cache, used for tests and as the default demo
// backing store in cmd/statesync.
package memorydb

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/ethersync/statesync/ethdb"
)

// Database is a mutex-guarded map-backed KeyValueStore with a
// fastcache read-through layer in front of it, mirroring go-ethereum's
// long-standing use of fastcache to keep hot trie nodes off the Go
// heap's GC radar.
type Database struct {
	mu    sync.RWMutex
	data  map[string][]byte
	cache *fastcache.Cache
}

// New creates an empty in-memory database. cacheSizeBytes sizes the
// fastcache front; 0 disables the cache.
func New(cacheSizeBytes int) *Database {
	var c *fastcache.Cache
	if cacheSizeBytes > 0 {
		c = fastcache.New(cacheSizeBytes)
	}
	return &Database{data: make(map[string][]byte), cache: c}
}

var _ ethdb.KeyValueStore = (*Database)(nil)

func (db *Database) Has(key []byte) (bool, error) {
	if db.cache != nil && db.cache.Has(key) {
		return true, nil
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	if db.cache != nil {
		if v, ok := db.cache.HasGet(nil, key); ok {
			return v, nil
		}
	}
	db.mu.RLock()
	v, ok := db.data[string(key)]
	db.mu.RUnlock()
	if !ok {
		return nil, ethdb.ErrNotFound
	}
	cp := append([]byte(nil), v...)
	if db.cache != nil {
		db.cache.Set(key, cp)
	}
	return cp, nil
}

func (db *Database) Put(key, value []byte) error {
	cp := append([]byte(nil), value...)
	db.mu.Lock()
	db.data[string(key)] = cp
	db.mu.Unlock()
	if db.cache != nil {
		db.cache.Set(key, cp)
	}
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.mu.Lock()
	delete(db.data, string(key))
	db.mu.Unlock()
	if db.cache != nil {
		db.cache.Del(key)
	}
	return nil
}

func (db *Database) Close() error { return nil }

// Len returns the number of keys currently stored, for tests.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}
