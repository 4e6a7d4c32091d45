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
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ethersync/statesync/log"
)

// config is the demo driver's full knob set: a TOML file loaded first,
// then overridden by any CLI flag the user actually set.
type config struct {
	DataDir       string `toml:"datadir"`
	ChainID       uint32 `toml:"chainid"`
	Consumers     int    `toml:"consumers"`
	ReportEvery   string `toml:"reportevery"`
	PeerCacheSize int    `toml:"peercachesize"`
}

var defaultConfig = config{
	DataDir:       "",
	ChainID:       1,
	Consumers:     4,
	ReportEvery:   "500ms",
	PeerCacheSize: 0,
}

// loadConfig decodes a TOML file into a copy of defaultConfig, warning
// (not failing) about any keys the config struct doesn't recognize —
// the same tolerant-but-noisy posture go-ethereum's own config loader
// takes toward stale config files.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, fmt.Errorf("statesync: reading config %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn("statesync: unknown config key, ignoring", "key", key.String())
	}
	return cfg, nil
}
