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

package main

import (
	"fmt"
	"path/filepath"

	"github.com/ethersync/statesync/ethdb"
	"github.com/ethersync/statesync/ethdb/leveldbdb"
	"github.com/ethersync/statesync/ethdb/memorydb"
)

// openStores opens the local state/code stores: leveldb under
// cfg.DataDir when set (the persistent, restart-surviving path), or
// plain in-memory stores for a throwaway demo run.
func openStores(cfg config) (stateDB, codeDB ethdb.KeyValueStore, closeAll func(), err error) {
	if cfg.DataDir == "" {
		stateDB = memorydb.New(cfg.PeerCacheSize)
		codeDB = memorydb.New(cfg.PeerCacheSize)
		return stateDB, codeDB, func() {}, nil
	}

	lvlState, err := leveldbdb.Open(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("statesync: opening state store: %w", err)
	}
	lvlCode, err := leveldbdb.Open(filepath.Join(cfg.DataDir, "code"))
	if err != nil {
		_ = lvlState.Close()
		return nil, nil, nil, fmt.Errorf("statesync: opening code store: %w", err)
	}
	return lvlState, lvlCode, func() {
		_ = lvlState.Close()
		_ = lvlCode.Close()
	}, nil
}
