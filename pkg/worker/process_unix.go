//go:build unix

package worker

import (
	"os/exec"
	"syscall"
)

// killProcessGroup makes cancellation kill the shell and everything it
// started, so no child keeps the output pipe open
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
