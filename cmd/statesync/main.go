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

// Command statesync is a demo driver for the state-trie synchronizer:
// it seeds a small synthetic state trie into an in-process "peer"
// store, then runs a real sync round against it end to end, printing
// progress as it goes. There is no real networking — the wire
// protocol is explicitly out of scope for the library itself.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethersync/statesync/log"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "load settings from this TOML file before applying other flags",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory for the local leveldb state/code stores (memory-only if unset)",
	}
	consumersFlag = &cli.IntFlag{
		Name:  "consumers",
		Usage: "number of concurrent HandleResponse consumer goroutines",
		Value: defaultConfig.Consumers,
	}
	chainIDFlag = &cli.UintFlag{
		Name:  "chainid",
		Usage: "chain id tag stored alongside persisted progress",
		Value: uint64(defaultConfig.ChainID),
	}
)

func main() {
	app := &cli.App{
		Name:   "statesync",
		Usage:  "run a demo Merkle-Patricia state-trie sync round",
		Flags:  []cli.Flag{configFlag, dataDirFlag, consumersFlag, chainIDFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildConfig(c *cli.Context) (config, error) {
	cfg := defaultConfig
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := loadConfig(path)
		if err != nil {
			return config{}, err
		}
		cfg = loaded
	}
	if c.IsSet(dataDirFlag.Name) {
		cfg.DataDir = c.String(dataDirFlag.Name)
	}
	if c.IsSet(consumersFlag.Name) {
		cfg.Consumers = c.Int(consumersFlag.Name)
	}
	if c.IsSet(chainIDFlag.Name) {
		cfg.ChainID = uint32(c.Uint(chainIDFlag.Name))
	}
	if cfg.Consumers < 1 {
		cfg.Consumers = 1
	}
	log.Info("statesync: starting", "datadir", cfg.DataDir, "consumers", cfg.Consumers, "chainid", cfg.ChainID)
	return cfg, nil
}
