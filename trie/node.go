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

// Package trie implements the narrow trie-node-parser and
// account-decoder contracts spec.md §6 describes as external
// collaborators. The synchronizer depends only on the Kind/Branch/
// Extension/Leaf shapes below, not on any particular encoding; Parse
// is a default RLP-based implementation a production deployment may
// swap out.
package trie

import "github.com/ethersync/statesync/common"

// Kind identifies the shape a parsed trie node turned out to have.
type Kind int

const (
	// Unknown means the bytes could not be parsed as any recognized
	// node shape.
	Unknown Kind = iota
	Branch
	Extension
	Leaf
)

// Child is a single child reference: either a 32-byte hash (Embedded
// false) or a marker for an embedded node too small to warrant its own
// hash (Embedded true, per the Merkle-Patricia "short node" rule). An
// embedded child carries no bytes; Hash is zero for it.
type Child struct {
	Hash     common.Hash
	Embedded bool
}

// IsNull reports whether this slot has no child at all (a nil slot in
// a branch, or an extension with no following node — never valid, but
// modeled for completeness).
func (c Child) IsNull() bool {
	return !c.Embedded && c.Hash.IsZero()
}

// Node is the result of parsing a single trie node's raw bytes.
type Node struct {
	Kind Kind

	// Branch: 16 children, indexed 0-15, plus an optional value in the
	// 17th slot (not a child reference).
	Children [16]Child
	Value    []byte // branch's 17th-slot value, or a leaf's value

	// Extension: hex-nibble path fragment and a single child.
	Path  []byte
	Child Child
}

// Parser turns raw node bytes into a Node. Implementations must not
// retain the input slice.
type Parser interface {
	Parse(data []byte) (Node, error)
}
