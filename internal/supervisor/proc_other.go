//go:build !unix

package supervisor

import (
	"os"
	"syscall"
)

// DismissSignal tells a supervisor to exit. Only Kill can be delivered on this platform.
var DismissSignal os.Signal = os.Kill

// TerminationSignals make a supervisor finalize the message before exiting.
var TerminationSignals = []os.Signal{os.Interrupt}

// ProcessAlive reports whether pid refers to a running process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}

// ParentAlive reports whether pid is still this process's parent and still exists.
func ParentAlive(pid int) bool {
	return os.Getppid() == pid && ProcessAlive(pid)
}

func detachedAttrs() *syscall.SysProcAttr {
	return nil
}
