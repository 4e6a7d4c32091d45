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

	"github.com/ethersync/statesync/common"
)

// ErrMalformedAccount is returned by DecodeAccount when the leaf value
// is not a well-formed 4-tuple account.
var ErrMalformedAccount = errors.New("trie: malformed account leaf")

// DecodeAccount decodes an account leaf's RLP value
// [nonce, balance, storageRoot, codeHash] and returns the two fields
// the synchronizer cares about: the account's storage-trie root and
// its contract-code hash (spec.md §4.6.2).
func DecodeAccount(value []byte) (codeHash, storageRoot common.Hash, err error) {
	item, err := decodeRLP(value)
	if err != nil || item.List == nil || len(item.List) != 4 {
		return common.Hash{}, common.Hash{}, ErrMalformedAccount
	}
	root, code := item.List[2], item.List[3]
	if root.List != nil || code.List != nil {
		return common.Hash{}, common.Hash{}, ErrMalformedAccount
	}
	return common.BytesToHash(code.Str), common.BytesToHash(root.Str), nil
}
