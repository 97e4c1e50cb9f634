//go:build unix

package process

import (
	"os/exec"
	"syscall"

	"github.com/nativebridge/kernel/kernelerr"
)

// setProcessGroup makes cmd the leader of a new process group so
// killGroup can signal the whole group at once.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killGroup sends signal to cmd's whole process group (-pid).
func killGroup(cmd *exec.Cmd, signal Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.Signal(signal))
	if err != nil {
		return kernelerr.Transport("ESRCH", err)
	}
	return nil
}
