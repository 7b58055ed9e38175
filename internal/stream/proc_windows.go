//go:build windows

package stream

import (
	"os"
	"syscall"
)

func detachedProcAttr() *syscall.SysProcAttr {
	// DETACHED_PROCESS | CREATE_NEW_PROCESS_GROUP
	return &syscall.SysProcAttr{CreationFlags: 0x00000008 | 0x00000200}
}

// Windows has no graceful signal for a detached console-less process; both
// paths resolve to TerminateProcess.
func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(pid int) error {
	return terminate(pid)
}
