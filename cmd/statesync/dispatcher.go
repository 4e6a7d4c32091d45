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
	"context"
	"sync"

	"github.com/ethersync/statesync"
	"github.com/ethersync/statesync/ethdb"
)

// peerDispatcher is the demo in-process stand-in for a real
// wire-protocol peer: it answers a StateSyncBatch straight out of a
// pre-seeded pair of KeyValueStores instead of talking to the
// network. Dispatch answers asynchronously, as the BatchDispatcher
// contract requires, so the driver genuinely overlaps request
// preparation with response handling.
type peerDispatcher struct {
	peerState ethdb.KeyValueStore
	peerCode  ethdb.KeyValueStore
	out       chan statesync.BatchResponse

	wg sync.WaitGroup
}

func newPeerDispatcher(peerState, peerCode ethdb.KeyValueStore, buffer int) *peerDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &peerDispatcher{
		peerState: peerState,
		peerCode:  peerCode,
		out:       make(chan statesync.BatchResponse, buffer),
	}
}

var _ statesync.BatchDispatcher = (*peerDispatcher)(nil)

func (d *peerDispatcher) Dispatch(ctx context.Context, batch statesync.StateSyncBatch) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		resp := statesync.BatchResponse{
			Batch:     batch,
			Responses: make([][]byte, len(batch.Requested)),
		}
		for i, item := range batch.Requested {
			store := d.peerState
			if item.Kind == statesync.Code {
				store = d.peerCode
			}
			if v, err := store.Get(item.Hash.Bytes()); err == nil {
				resp.Responses[i] = v
			}
		}
		select {
		case d.out <- resp:
		case <-ctx.Done():
		}
	}()
	return nil
}

// responses is the channel HandleResponse consumers read from.
func (d *peerDispatcher) responses() <-chan statesync.BatchResponse { return d.out }

// waitAndClose blocks until every dispatched-but-undelivered response
// has been sent, then closes the response channel so consumers drain
// and exit cleanly.
func (d *peerDispatcher) waitAndClose() {
	d.wg.Wait()
	close(d.out)
}
