//go:build !linux

package dispatch

import (
	"log/slog"
	"runtime"
)

// lowerPriority pins the calling goroutine to its OS thread. Thread
// priority is left unchanged on this platform.
func lowerPriority(*slog.Logger) {
	runtime.LockOSThread()
}
