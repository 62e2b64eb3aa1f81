//go:build !unix

package rsync

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(*exec.Cmd) {}

func signalGroup(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
