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

// Package common holds the small shared types used throughout the
// synchronizer: content-addressed hashes and hex formatting helpers.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a Keccak-256 content address.
const HashLength = 32

// Hash is a fixed 32-byte content address. Equality and map-keying are
// by raw bytes, so Hash is comparable and may be used directly as a
// map key.
type Hash [HashLength]byte

// BytesToHash converts a byte slice to a Hash, left-padding or
// truncating from the left if the input isn't exactly HashLength
// bytes (mirrors go-ethereum's common.BytesToHash).
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the all-zero sentinel.
func (h Hash) IsZero() bool { return h == Hash{} }

// Format implements fmt.Formatter so Hash prints sensibly with %v/%x/%s.
func (h Hash) Format(s fmt.State, c rune) {
	switch c {
	case 'x', 'X':
		fmt.Fprintf(s, "%"+string(c), h[:])
	default:
		fmt.Fprint(s, h.Hex())
	}
}

// HexToHash decodes a 0x-prefixed (or bare) hex string into a Hash.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}
