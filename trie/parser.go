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

import "github.com/ethersync/statesync/common"

// DefaultParser is the reference Merkle-Patricia node parser: a
// 2-item RLP list is an extension or a leaf (distinguished by the
// hex-prefix flag), a 17-item list is a branch, anything else is
// Unknown.
type DefaultParser struct{}

var _ Parser = DefaultParser{}

func (DefaultParser) Parse(data []byte) (Node, error) {
	// Decode a private copy so the returned Node never aliases data.
	data = append([]byte(nil), data...)
	item, err := decodeRLP(data)
	if err != nil || item.List == nil {
		return Node{Kind: Unknown}, nil
	}
	switch len(item.List) {
	case 2:
		return parseShortNode(item.List[0], item.List[1])
	case 17:
		return parseBranchNode(item.List)
	default:
		return Node{Kind: Unknown}, nil
	}
}

func parseShortNode(encodedPath, valueOrChild rlpItem) (Node, error) {
	if encodedPath.List != nil {
		return Node{Kind: Unknown}, nil
	}
	nibbles, isLeaf := decodeHexPrefix(encodedPath.Str)
	if isLeaf {
		if valueOrChild.List != nil {
			return Node{Kind: Unknown}, nil
		}
		return Node{Kind: Leaf, Path: nibbles, Value: valueOrChild.Str}, nil
	}
	return Node{Kind: Extension, Path: nibbles, Child: itemToChild(valueOrChild)}, nil
}

func parseBranchNode(items []rlpItem) (Node, error) {
	var n Node
	n.Kind = Branch
	for i := 0; i < 16; i++ {
		n.Children[i] = itemToChild(items[i])
	}
	n.Value = items[16].Str
	return n, nil
}

// itemToChild interprets an RLP item found in a child slot: empty
// string means no child, a 32-byte string is a hash reference,
// anything else (a short string, or a nested list) is an embedded
// node inlined rather than addressed by hash — the Merkle-Patricia
// "small node" optimization. For an embedded node only the Embedded
// flag is returned; its bytes are not kept.
func itemToChild(item rlpItem) Child {
	if item.List != nil {
		return Child{Embedded: true}
	}
	if len(item.Str) == 0 {
		return Child{}
	}
	if len(item.Str) == 32 {
		return Child{Hash: common.BytesToHash(item.Str)}
	}
	return Child{Embedded: true}
}

// decodeHexPrefix decodes the compact hex-prefix encoding used for
// extension and leaf node paths (Ethereum Yellow Paper App. C). The
// returned nibbles are the decompacted path; isLeaf reports the
// leaf-node terminator flag.
func decodeHexPrefix(encoded []byte) (nibbles []byte, isLeaf bool) {
	if len(encoded) == 0 {
		return nil, false
	}
	first := encoded[0]
	isLeaf = first&0x20 != 0
	oddLen := first&0x10 != 0

	var out []byte
	if oddLen {
		out = append(out, first&0x0f)
	}
	for _, b := range encoded[1:] {
		out = append(out, b>>4, b&0x0f)
	}
	return out, isLeaf
}
