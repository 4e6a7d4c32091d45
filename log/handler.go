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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"golang.org/x/exp/slog"
)

// terminalHandler renders records as "LVL[time] msg key=val ..." with
// level-colored prefixes, the format go-ethereum's terminal log
// handler has used for years.
type terminalHandler struct {
	mu  sync.Mutex
	out io.Writer
	lvl slog.Level
	ctx []slog.Attr
}

func newTerminalHandler(w io.Writer) *terminalHandler {
	return &terminalHandler{out: w, lvl: slog.LevelInfo}
}

func (h *terminalHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.lvl
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prefix := levelColor(r.Level)(levelLabel(r.Level))
	fmt.Fprintf(h.out, "%s[%s] %s", prefix, r.Time.Format(time.RFC3339), r.Message)
	for _, a := range h.ctx {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	if r.Level >= slog.LevelError {
		fmt.Fprintf(h.out, " stack=%v", stack.Trace().TrimBelow(stack.Caller(4)))
	}
	fmt.Fprintln(h.out)
	return nil
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &terminalHandler{out: h.out, lvl: h.lvl, ctx: append(append([]slog.Attr{}, h.ctx...), attrs...)}
	return nh
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler { return h }

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERRO"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DBUG"
	}
}

func levelColor(l slog.Level) func(format string, a ...interface{}) string {
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed).SprintfFunc()
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow).SprintfFunc()
	case l >= slog.LevelInfo:
		return color.New(color.FgGreen).SprintfFunc()
	default:
		return color.New(color.FgHiBlack).SprintfFunc()
	}
}

func callerFrame() stack.Call {
	return stack.Caller(2)
}
