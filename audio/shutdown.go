package audio

import (
	"syscall"
	"time"

	"github.com/micha/meeting-notes/logging"
)

var stopLog = logging.L("shutdown")

// Escalation holds how long StopProcess waits after each polite signal.
type Escalation struct {
	Interrupt time.Duration
	Terminate time.Duration
}

// DefaultEscalation gives capture tools time to finalize their WAV headers.
var DefaultEscalation = Escalation{
	Interrupt: 5 * time.Second,
	Terminate: 2 * time.Second,
}

// StopProcess stops h with SIGINT, then SIGTERM, then SIGKILL, and returns
// once the process has exited. forced is true when SIGKILL was needed; the
// file it was writing may lack a valid header in that case.
func StopProcess(h *Handle, esc Escalation) (forced bool) {
	log := stopLog.With(logging.KeyPid, h.Pid(), "source", h.Source)

	if !h.Alive() {
		log.Debug("capture process already exited")
		return false
	}

	if err := h.Signal(syscall.SIGINT); err != nil {
		log.Debugw("interrupt failed", logging.KeyError, err)
	}
	if h.WaitTimeout(esc.Interrupt) {
		log.Debug("capture process stopped on interrupt")
		return false
	}

	log.Warnw("capture process ignored interrupt, terminating", "waited", esc.Interrupt)
	if err := h.Signal(syscall.SIGTERM); err != nil {
		log.Debugw("terminate failed", logging.KeyError, err)
	}
	if h.WaitTimeout(esc.Terminate) {
		return false
	}

	log.Warnw("shutdown timeout, killing capture process", "waited", esc.Interrupt+esc.Terminate)
	if err := h.Kill(); err != nil {
		log.Debugw("kill failed", logging.KeyError, err)
	}
	_ = h.Wait()
	return true
}
