//go:build linux

package dispatch

import (
	"log/slog"
	"runtime"

	"golang.org/x/sys/unix"
)

// backgroundNice matches the conventional background thread priority.
const backgroundNice = 10

// lowerPriority pins the calling goroutine to its OS thread and raises
// that thread's nice value. The thread is never unlocked, so the runtime
// discards it when the goroutine exits instead of reusing it at reduced
// priority.
func lowerPriority(logger *slog.Logger) {
	runtime.LockOSThread()

	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), backgroundNice); err != nil {
		logger.Debug("lowering thread priority", "error", err)
	}
}
