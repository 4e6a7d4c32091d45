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

package statesync

import "errors"

// HandleResult is the outcome of a HandleResponse call (spec.md §7).
type HandleResult int

const (
	// OK means the batch was processed without quality concerns.
	OK HandleResult = iota
	// Emptish means some data came back but below the quality threshold.
	Emptish
	// LesserQuality means much of what came back failed verification.
	LesserQuality
	// NoProgress means the batch was empty but not bad-quality.
	NoProgress
	// NotAssigned means no peer ever picked up the batch.
	NotAssigned
	// InternalError means the batch header itself was malformed.
	InternalError
)

func (r HandleResult) String() string {
	switch r {
	case OK:
		return "OK"
	case Emptish:
		return "Emptish"
	case LesserQuality:
		return "LesserQuality"
	case NoProgress:
		return "NoProgress"
	case NotAssigned:
		return "NotAssigned"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ErrResetWhileActive is returned by ResetStateRoot when called while
// the controller is Active (spec.md §4.7, "forbidden while Active").
var ErrResetWhileActive = errors.New("statesync: ResetStateRoot called while round is active")

// AddResult is the outcome of AddNodeToPending (spec.md §4.6.3).
type AddResult int

const (
	Added AddResult = iota
	AlreadyRequested
	AlreadySaved
)
