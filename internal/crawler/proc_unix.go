//go:build unix

package crawler

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel starts the crawler in its own process group and kills
// the whole group when the command's context is done, so browser or worker
// children don't outlive a timed-out crawl.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
