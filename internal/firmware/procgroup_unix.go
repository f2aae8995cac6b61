//go:build unix

package firmware

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup puts the tool in its own process group and makes
// cancellation kill the whole group, so helpers it spawned die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
