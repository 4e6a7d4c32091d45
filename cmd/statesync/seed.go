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
	"github.com/ethersync/statesync/common"
	"github.com/ethersync/statesync/crypto"
	"github.com/ethersync/statesync/ethdb"
	"github.com/ethersync/statesync/trie"
)

// seedDemoState builds a small, genuinely valid two-account
// Merkle-Patricia state trie straight into peerState/peerCode and
// returns its root hash. It stands in for the remote state a real
// peer would serve, since wire networking is out of scope.
func seedDemoState(peerState, peerCode ethdb.KeyValueStore) common.Hash {
	storageLeaf := trie.EncodeLeaf([]byte{0xa, 0xb, 0xc}, []byte{0x2a})
	storageRoot := crypto.Keccak256Hash(storageLeaf)
	mustPut(peerState, storageRoot, storageLeaf)

	code := []byte("demo contract bytecode, not real EVM code")
	codeHash := crypto.Keccak256Hash(code)
	mustPut(peerCode, codeHash, code)

	accountA := trie.EncodeAccount([]byte{0x01}, []byte{0x10}, storageRoot, codeHash)
	leafA := trie.EncodeLeaf([]byte{2, 3, 4}, accountA)
	hashA := crypto.Keccak256Hash(leafA)
	mustPut(peerState, hashA, leafA)

	accountB := trie.EncodeAccount([]byte{0x02}, []byte{0x05}, crypto.EmptyRootHash, crypto.EmptyCodeHash)
	leafB := trie.EncodeLeaf([]byte{6, 7, 8}, accountB)
	hashB := crypto.Keccak256Hash(leafB)
	mustPut(peerState, hashB, leafB)

	var children [16]trie.Child
	children[1] = trie.Child{Hash: hashA}
	children[5] = trie.Child{Hash: hashB}
	branch := trie.EncodeBranch(children, nil)
	root := crypto.Keccak256Hash(branch)
	mustPut(peerState, root, branch)

	return root
}

func mustPut(store ethdb.KeyValueStore, hash common.Hash, value []byte) {
	if err := store.Put(hash.Bytes(), value); err != nil {
		// Seeding an in-memory store cannot fail; a non-nil error here
		// means memorydb itself is broken.
		panic(err)
	}
}
