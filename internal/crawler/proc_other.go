//go:build !unix

package crawler

import "os/exec"

// killGroupOnCancel falls back to killing the direct child.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
