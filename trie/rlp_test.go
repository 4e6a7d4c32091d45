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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRLPSingleByte(t *testing.T) {
	item, err := decodeRLP([]byte{0x42})
	require.NoError(t, err)
	require.Nil(t, item.List)
	require.Equal(t, []byte{0x42}, item.Str)
}

func TestDecodeRLPShortString(t *testing.T) {
	raw := encodeRLPBytes([]byte("hello"))
	item, err := decodeRLP(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), item.Str)
}

func TestDecodeRLPLongString(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 100)
	raw := encodeRLPBytes(long)
	item, err := decodeRLP(raw)
	require.NoError(t, err)
	require.Equal(t, long, item.Str)
}

func TestDecodeRLPLongList(t *testing.T) {
	var items [][]byte
	for i := 0; i < 40; i++ {
		items = append(items, encodeRLPBytes(bytes.Repeat([]byte("y"), 5)))
	}
	raw := encodeRLPList(items)
	item, err := decodeRLP(raw)
	require.NoError(t, err)
	require.Len(t, item.List, 40)
}

func TestDecodeRLPRejectsTrailingBytes(t *testing.T) {
	raw := append(encodeRLPBytes([]byte("a")), 0xff)
	_, err := decodeRLP(raw)
	require.ErrorIs(t, err, errRLPMalformed)
}

func TestDecodeRLPRejectsTruncatedInput(t *testing.T) {
	raw := encodeRLPBytes([]byte("hello"))
	_, err := decodeRLP(raw[:len(raw)-2])
	require.ErrorIs(t, err, errRLPMalformed)
}

func TestDecodeRLPRejectsEmptyInput(t *testing.T) {
	_, err := decodeRLP(nil)
	require.ErrorIs(t, err, errRLPMalformed)
}

func TestRLPNestedListRoundTrip(t *testing.T) {
	inner := encodeRLPList([][]byte{encodeRLPBytes([]byte("a")), encodeRLPBytes([]byte("b"))})
	outer := encodeRLPList([][]byte{inner, encodeRLPBytes([]byte("c"))})

	item, err := decodeRLP(outer)
	require.NoError(t, err)
	require.Len(t, item.List, 2)
	require.NotNil(t, item.List[0].List)
	require.Len(t, item.List[0].List, 2)
	require.Equal(t, []byte("c"), item.List[1].Str)
}
