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

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToHashPadsShortInput(t *testing.T) {
	h := BytesToHash([]byte{1, 2, 3})
	require.Equal(t, byte(1), h[29])
	require.Equal(t, byte(2), h[30])
	require.Equal(t, byte(3), h[31])
	require.Equal(t, byte(0), h[0])
}

func TestBytesToHashTruncatesLongInput(t *testing.T) {
	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i)
	}
	h := BytesToHash(long)
	require.Equal(t, long[8:], h.Bytes())
}

func TestHexRoundTrip(t *testing.T) {
	h := BytesToHash([]byte{0xde, 0xad, 0xbe, 0xef})
	h2 := HexToHash(h.Hex())
	require.Equal(t, h, h2)
}

func TestHexToHashAcceptsBareHex(t *testing.T) {
	h1 := HexToHash("0x01")
	h2 := HexToHash("01")
	require.Equal(t, h1, h2)
}

func TestIsZero(t *testing.T) {
	require.True(t, Hash{}.IsZero())
	require.False(t, BytesToHash([]byte{1}).IsZero())
}
