package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Handle is a running capture process. One goroutine waits on the process
// and closes done when it exits, so every method is safe to call
// concurrently.
type Handle struct {
	Source string
	Path   string
	Tool   string

	cmd  *exec.Cmd
	log  *os.File
	done chan struct{}
	err  error
}

// spawn starts name with args in its own process group. stderr goes to
// logFile when one is given and is discarded otherwise; nothing is piped,
// so Wait cannot block on an unread pipe.
func spawn(source, toolName, binary string, args []string, path string, logFile *os.File) (*Handle, error) {
	cmd := exec.Command(binary, args...)
	setProcessGroup(cmd)
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrSpawnFailure, toolName, source, err)
	}

	h := &Handle{
		Source: source,
		Path:   path,
		Tool:   toolName,
		cmd:    cmd,
		log:    logFile,
		done:   make(chan struct{}),
	}
	go h.wait()
	return h, nil
}

func (h *Handle) wait() {
	h.err = h.cmd.Wait()
	if h.log != nil {
		h.log.Close()
	}
	close(h.done)
}

func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Alive reports whether the process has not exited yet.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Signal sends sig to the process group. Signalling an exited process is
// a no-op.
func (h *Handle) Signal(sig syscall.Signal) error {
	if !h.Alive() {
		return nil
	}
	err := signalGroup(h.cmd, sig)
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// WaitTimeout waits up to d for the process to exit and reports whether it did.
func (h *Handle) WaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

func (h *Handle) Kill() error {
	return h.Signal(syscall.SIGKILL)
}

// Wait blocks until the process exits and returns its exit error. Capture
// tools interrupted by a signal usually report a non-nil error here.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
