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

// Package ethdb defines the narrow byte-keyed, byte-valued store
// contract the synchronizer writes trie nodes and contract code
// through (spec.md §6, "State DB / Code DB").
package ethdb

import "io"

// KeyValueStore is the external persistent-store contract. No
// transactions are required; single-key operations must be
// linearizable, per spec.md §6.
type KeyValueStore interface {
	// Has reports whether key exists in the store.
	Has(key []byte) (bool, error)
	// Get retrieves the value for key, or an error if it is absent.
	Get(key []byte) ([]byte, error)
	// Put stores value under key, overwriting any existing value.
	Put(key, value []byte) error
	// Delete removes key from the store, if present.
	Delete(key []byte) error

	io.Closer
}

// ErrNotFound is returned by Get when the requested key is absent.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "ethdb: key not found" }
