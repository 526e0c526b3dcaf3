//go:build unix

package supervisor

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// DismissSignal tells a supervisor to exit without touching the message.
var DismissSignal os.Signal = unix.SIGUSR1

// TerminationSignals make a supervisor finalize the message before exiting.
var TerminationSignals = []os.Signal{unix.SIGTERM, unix.SIGINT}

// ProcessAlive probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ParentAlive reports whether pid is still this process's parent and still exists.
// Once the parent dies the process is re-parented, so a reused pid is not mistaken for it.
func ParentAlive(pid int) bool {
	return os.Getppid() == pid && ProcessAlive(pid)
}

// detachedAttrs starts the child in its own session so it outlives the launcher
// and does not receive signals sent to the launcher's process group.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
