// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package glrt

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards all records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() { loggerPtr.Store(slog.New(nopHandler{})) }

// SetLogger configures the logger used by glrt and all
// its sub-packages. By default nothing is logged.
// Passing nil restores the silent default.
//
// Levels:
//   - [slog.LevelDebug]: uploads, handle creation, rebuilds
//   - [slog.LevelInfo]: driver selection, context restoration
//   - [slog.LevelWarn]: software fallbacks, non-power-of-two
//     compressed textures, per-resource rebuild failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
// It is safe for concurrent use.
func Logger() *slog.Logger { return loggerPtr.Load() }
