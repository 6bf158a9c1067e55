// Package logging provides a per-subsystem structured logger factory
// used by the GC, dispatcher, eval server and LSP server, writing to stderr so
// stdout stays reserved for interpreted program output.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	loggers = make(map[string]*slog.Logger)
	level   = new(slog.LevelVar)
	handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
)

// SetLevel adjusts the minimum level for every logger returned by For,
// past and future. The CLI's -v flag uses it to enable Debug output.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// For returns the logger for the named subsystem (e.g. "gc", "dispatch",
// "vm", "server"), creating and caching it on first use.
func For(subsystem string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[subsystem]; ok {
		return l
	}
	l := slog.New(handler).With("subsystem", subsystem)
	loggers[subsystem] = l
	return l
}
