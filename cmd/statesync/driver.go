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
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ethersync/statesync"
	"github.com/ethersync/statesync/ethdb/memorydb"
	"github.com/ethersync/statesync/log"
	"github.com/ethersync/statesync/trie"
)

// run wires the whole demo pipeline together: seed a synthetic peer
// state, activate the controller, and drive PrepareRequest/Dispatch/
// HandleResponse with an errgroup exactly as spec.md §5 describes,
// using olekukonko/tablewriter to report progress until the round
// ends or the process is interrupted.
func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	reportEvery, err := time.ParseDuration(cfg.ReportEvery)
	if err != nil {
		return fmt.Errorf("statesync: bad report-every duration %q: %w", cfg.ReportEvery, err)
	}

	stateDB, codeDB, closeDBs, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeDBs()

	peerState := memorydb.New(cfg.PeerCacheSize)
	peerCode := memorydb.New(cfg.PeerCacheSize)
	root := seedDemoState(peerState, peerCode)
	log.Info("statesync: seeded demo peer state", "root", root)

	s := statesync.NewSynchronizer(stateDB, codeDB, trie.DefaultParser{}, cfg.ChainID)
	tree := statesync.StaticBlockTree{Ref: statesync.BlockRef{Number: 1, StateRoot: root}, Valid: true}
	watcher := statesync.NewInMemoryModeWatcher(0)
	controller := statesync.NewController(s, tree, watcher)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go controller.Run()
	watcher.Set(statesync.ModeStateNodes)

	dispatcher := newPeerDispatcher(peerState, peerCode, cfg.Consumers*statesync.BatchSize)
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return driveRounds(gctx, s, controller, dispatcher)
	})
	for i := 0; i < cfg.Consumers; i++ {
		g.Go(func() error {
			return consumeResponses(gctx, s, dispatcher)
		})
	}
	g.Go(func() error {
		return reportProgress(gctx, s, done, reportEvery)
	})

	runErr := g.Wait()
	controller.Stop()
	renderProgress(s)

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	log.Info("statesync: round finished", "percentComplete", s.BranchProgress().PercentComplete())
	return nil
}

// driveRounds is the PrepareRequest producer: spec.md §4.5's loop,
// waiting for the controller to go Active, dispatching whatever batch
// comes back, and reporting round-end to the controller.
func driveRounds(ctx context.Context, s *statesync.Synchronizer, c *statesync.Controller, d *peerDispatcher) error {
	defer d.waitAndClose()

	idle := time.NewTicker(10 * time.Millisecond)
	defer idle.Stop()

	for {
		if c.State() != statesync.Active {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-idle.C:
				continue
			}
		}

		batch, ended := s.PrepareRequest(statesync.ModeStateNodes)
		c.CheckRoundEnd(ended)
		if ended {
			return nil
		}
		if len(batch.Requested) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-idle.C:
				continue
			}
		}
		if err := d.Dispatch(ctx, batch); err != nil {
			return err
		}
	}
}

// consumeResponses is one of the N HandleResponse consumers spec.md
// §5 calls for: it drains dispatcher responses until the channel
// closes (meaning the round ended and every in-flight batch has been
// delivered).
func consumeResponses(ctx context.Context, s *statesync.Synchronizer, d *peerDispatcher) error {
	for {
		select {
		case resp, ok := <-d.responses():
			if !ok {
				return nil
			}
			s.HandleResponse(resp)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reportProgress renders a status snapshot on a fixed tick until the
// round ends or the context is cancelled.
func reportProgress(ctx context.Context, s *statesync.Synchronizer, done <-chan struct{}, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
			renderProgress(s)
		}
	}
}
