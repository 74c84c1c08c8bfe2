// Package logger holds the process-wide slog logger shared by the CLI and the
// catalog loaders.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	shared *slog.Logger
	debug  bool
)

// Init installs the shared logger writing to stderr at Info level, or Debug
// when enabled.
func Init(debugEnabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = debugEnabled
	shared = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFor(debugEnabled),
	}))
}

// Get returns the shared logger, installing a default one if Init was never
// called.
func Get() *slog.Logger {
	mu.RLock()
	if shared != nil {
		defer mu.RUnlock()
		return shared
	}
	mu.RUnlock()
	Init(false)
	return Get()
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}

func levelFor(debugEnabled bool) slog.Level {
	if debugEnabled {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
