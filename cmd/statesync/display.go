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
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/ethersync/statesync"
)

// renderProgress prints a two-table status snapshot: the top-level
// branch-completion map and the detailed counters, the way geth's CLI
// tools render tabular status during long-running operations.
func renderProgress(s *statesync.Synchronizer) {
	fmt.Println()
	renderBranchTable(s.BranchProgress())
	renderCounterTable(s)
}

func renderBranchTable(bp *statesync.BranchProgress) {
	states := bp.Level1States()

	table := tablewriter.NewWriter(os.Stdout)
	header := make([]string, 16)
	row := make([]string, 16)
	for i := 0; i < 16; i++ {
		header[i] = fmt.Sprintf("%x", i)
		row[i] = states[i].String()
	}
	table.SetHeader(header)
	table.Append(row)
	table.SetCaption(true, fmt.Sprintf("branch completion (%.1f%% of level 1)", bp.PercentComplete()))
	table.Render()
}

func renderCounterTable(s *statesync.Synchronizer) {
	p := s.Progress()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"counter", "value"})
	rows := [][2]string{
		{"pending", fmt.Sprintf("%d", s.PendingCount())},
		{"requested", fmt.Sprintf("%d", p.Requested)},
		{"consumed", fmt.Sprintf("%d", p.Consumed)},
		{"saved", fmt.Sprintf("%d", p.Saved)},
		{"saved accounts", fmt.Sprintf("%d", p.SavedAccounts)},
		{"saved state nodes", fmt.Sprintf("%d", p.SavedState)},
		{"saved storage nodes", fmt.Sprintf("%d", p.SavedStorage)},
		{"saved code", fmt.Sprintf("%d", p.SavedCode)},
		{"emptish responses", fmt.Sprintf("%d", p.EmptishCount)},
		{"bad-quality responses", fmt.Sprintf("%d", p.BadQualityCount)},
		{"not-assigned responses", fmt.Sprintf("%d", p.NotAssignedCount)},
		{"ok responses", fmt.Sprintf("%d", p.OKCount)},
	}
	for _, r := range rows {
		table.Append([]string{r[0], r[1]})
	}
	table.Render()
}
