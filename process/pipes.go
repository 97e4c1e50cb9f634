package process

import (
	"io"
	"os/exec"
)

// attachPipes wires cmd.Stdout/Stderr to pipes when requested, returning
// the read ends for Spawn's streaming goroutines. A stream not allowed
// is left nil so Spawn skips it entirely.
func attachPipes(cmd *exec.Cmd, allowStdout, allowStderr bool) (stdout, stderr io.ReadCloser, err error) {
	if allowStdout {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, nil, err
		}
	}
	if allowStderr {
		stderr, err = cmd.StderrPipe()
		if err != nil {
			return nil, nil, err
		}
	}
	return stdout, stderr, nil
}
