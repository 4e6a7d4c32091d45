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

// Package log is a thin structured-logging wrapper around slog, styled
// after go-ethereum's log package: a colorized terminal handler when
// stderr is a TTY, plain key=value output otherwise.
package log

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/exp/slog"
)

var root = newRootLogger()

func newRootLogger() *slog.Logger {
	var w io.Writer = os.Stderr
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		handler = newTerminalHandler(colorable.NewColorable(f))
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler)
}

// SetOutput redirects the root logger to w in plain text mode, useful
// for tests that want to inspect log output.
func SetOutput(w io.Writer) {
	root = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Root returns the package-level root logger.
func Root() *slog.Logger { return root }

func Debug(msg string, args ...any) { root.Debug(msg, args...) }
func Info(msg string, args ...any)  { root.Info(msg, args...) }
func Warn(msg string, args ...any)  { root.Warn(msg, args...) }
func Error(msg string, args ...any) { root.Error(msg, args...) }

// Crit logs at error level with a caller frame appended, then exits the
// process — reserved for unrecoverable startup failures, mirroring
// go-ethereum's log.Crit.
func Crit(msg string, args ...any) {
	args = append(args, "caller", callerFrame())
	root.Error(msg, args...)
	os.Exit(1)
}

// New returns a child logger with the given static key/value pairs
// attached to every record it emits.
func New(ctx ...any) *slog.Logger {
	return root.With(ctx...)
}

var disableColor = color.NoColor
