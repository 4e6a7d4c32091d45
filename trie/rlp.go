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
	"errors"
)

// rlpItem is either a byte string (List == nil) or a list of rlpItems.
type rlpItem struct {
	Str  []byte
	List []rlpItem
}

var errRLPMalformed = errors.New("trie: malformed rlp")

// decodeRLP decodes the single top-level RLP item encoded in data. It
// does not support trailing bytes: data must be exactly one item.
//
// This is a small hand-written decoder: RLP has no third-party Go
// implementation anywhere in the retrieved corpus other than the
// client this module supersedes, so it is implemented directly
// against the (simple, stable) RLP specification.
func decodeRLP(data []byte) (rlpItem, error) {
	item, rest, err := decodeRLPItem(data)
	if err != nil {
		return rlpItem{}, err
	}
	if len(rest) != 0 {
		return rlpItem{}, errRLPMalformed
	}
	return item, nil
}

func decodeRLPItem(data []byte) (rlpItem, []byte, error) {
	if len(data) == 0 {
		return rlpItem{}, nil, errRLPMalformed
	}
	b0 := data[0]
	switch {
	case b0 < 0x80:
		return rlpItem{Str: data[0:1]}, data[1:], nil

	case b0 < 0xb8:
		size := int(b0 - 0x80)
		if len(data) < 1+size {
			return rlpItem{}, nil, errRLPMalformed
		}
		return rlpItem{Str: data[1 : 1+size]}, data[1+size:], nil

	case b0 < 0xc0:
		lenOfLen := int(b0 - 0xb7)
		if len(data) < 1+lenOfLen {
			return rlpItem{}, nil, errRLPMalformed
		}
		size, err := decodeLength(data[1 : 1+lenOfLen])
		if err != nil {
			return rlpItem{}, nil, err
		}
		start := 1 + lenOfLen
		if len(data) < start+size {
			return rlpItem{}, nil, errRLPMalformed
		}
		return rlpItem{Str: data[start : start+size]}, data[start+size:], nil

	case b0 < 0xf8:
		size := int(b0 - 0xc0)
		if len(data) < 1+size {
			return rlpItem{}, nil, errRLPMalformed
		}
		items, err := decodeRLPList(data[1 : 1+size])
		if err != nil {
			return rlpItem{}, nil, err
		}
		return rlpItem{List: items}, data[1+size:], nil

	default:
		lenOfLen := int(b0 - 0xf7)
		if len(data) < 1+lenOfLen {
			return rlpItem{}, nil, errRLPMalformed
		}
		size, err := decodeLength(data[1 : 1+lenOfLen])
		if err != nil {
			return rlpItem{}, nil, err
		}
		start := 1 + lenOfLen
		if len(data) < start+size {
			return rlpItem{}, nil, errRLPMalformed
		}
		items, err := decodeRLPList(data[start : start+size])
		if err != nil {
			return rlpItem{}, nil, err
		}
		return rlpItem{List: items}, data[start+size:], nil
	}
}

func decodeRLPList(data []byte) ([]rlpItem, error) {
	var items []rlpItem
	for len(data) > 0 {
		item, rest, err := decodeRLPItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		data = rest
	}
	return items, nil
}

func decodeLength(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		n = n<<8 | int(c)
	}
	if n < 0 {
		return 0, errRLPMalformed
	}
	return n, nil
}
