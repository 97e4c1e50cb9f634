//go:build windows

package process

import (
	"os/exec"

	"github.com/nativebridge/kernel/kernelerr"
)

// setProcessGroup is a no-op on Windows: there is no POSIX process
// group, so killGroup instead walks the process tree.
func setProcessGroup(cmd *exec.Cmd) {}

// killGroup terminates cmd's process tree. Every signal value maps to
// the same hard termination on Windows, which has no signal delivery
// model of its own.
func killGroup(cmd *exec.Cmd, signal Signal) error {
	if cmd.Process == nil {
		return nil
	}
	if err := killProcessTree(cmd.Process.Pid); err != nil {
		return kernelerr.Transport("ESRCH", err)
	}
	return nil
}
