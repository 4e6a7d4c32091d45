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

package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ethersync/statesync/common"
)

func hashOf(b byte) common.Hash {
	var h common.Hash
	h[31] = b
	return h
}

func TestParseBranchRoundTrip(t *testing.T) {
	var children [16]Child
	children[2] = Child{Hash: hashOf(2)}
	children[9] = Child{Hash: hashOf(9)}
	raw := EncodeBranch(children, []byte("branch-value"))

	node, err := DefaultParser{}.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, Branch, node.Kind)
	require.Equal(t, []byte("branch-value"), node.Value)
	require.Equal(t, hashOf(2), node.Children[2].Hash)
	require.Equal(t, hashOf(9), node.Children[9].Hash)
	for i, c := range node.Children {
		if i != 2 && i != 9 {
			require.True(t, c.IsNull(), "slot %d should be null", i)
		}
	}
}

func TestParseLeafRoundTrip(t *testing.T) {
	path := []byte{1, 2, 3, 4, 5}
	raw := EncodeLeaf(path, []byte("leaf-value"))

	node, err := DefaultParser{}.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, Leaf, node.Kind)
	require.Equal(t, path, node.Path)
	require.Equal(t, []byte("leaf-value"), node.Value)
}

func TestParseExtensionRoundTrip(t *testing.T) {
	path := []byte{0xa, 0xb, 0xc}
	raw := EncodeExtension(path, Child{Hash: hashOf(7)})

	node, err := DefaultParser{}.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, Extension, node.Kind)
	require.Equal(t, path, node.Path)
	require.Equal(t, hashOf(7), node.Child.Hash)
}

func TestParseUnknownOnGarbage(t *testing.T) {
	node, err := DefaultParser{}.Parse([]byte{0xff, 0xff, 0xff})
	require.NoError(t, err, "parse failures are reported via Kind, not error")
	require.Equal(t, Unknown, node.Kind)
}

func TestParseUnknownOnWrongListLength(t *testing.T) {
	raw := encodeRLPList([][]byte{encodeRLPBytes([]byte("a")), encodeRLPBytes([]byte("b")), encodeRLPBytes([]byte("c"))})
	node, err := DefaultParser{}.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, Unknown, node.Kind)
}

func TestHexPrefixRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		nibbles := make([]byte, n)
		for i := range nibbles {
			nibbles[i] = byte(rapid.IntRange(0, 15).Draw(rt, "nibble"))
		}
		isLeaf := rapid.Bool().Draw(rt, "isLeaf")

		encoded := encodeHexPrefix(nibbles, isLeaf)
		gotNibbles, gotLeaf := decodeHexPrefix(encoded)

		require.Equal(rt, isLeaf, gotLeaf)
		if n == 0 {
			require.Empty(rt, gotNibbles)
		} else {
			require.Equal(rt, nibbles, gotNibbles)
		}
	})
}

func TestEmbeddedChildHasNoHash(t *testing.T) {
	raw := EncodeExtension([]byte{1, 2}, Child{Embedded: true})
	node, err := DefaultParser{}.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, Extension, node.Kind)
	require.True(t, node.Child.Embedded)
}
