//go:build linux

package audio

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the capture process in its own group so a terminal
// Ctrl+C only reaches us, and asks the kernel to interrupt it if we die so
// the tool still finalizes its WAV header.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pgid:      0,
		Pdeathsig: syscall.SIGINT,
	}
}

// signalGroup delivers sig to the whole process group of the command.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Signal(sig)
	}
	return unix.Kill(-pgid, sig)
}
