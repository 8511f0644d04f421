package filesem

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Workload is the protected executable run while a semaphore slot is held.
//
// Its stdio is inherited from the parent so output and interactivity pass
// through untouched, and its exit status is surfaced verbatim; the
// semaphore layer never interprets it. Whether the workload succeeds or
// fails has no effect on slot accounting.
type Workload struct {
	// Cmd is the underlying command.
	Cmd *exec.Cmd

	logger *zap.Logger
}

// NewWorkload builds a Workload running name with args, inheriting the
// parent's stdio and environment. A nil logger disables logging.
func NewWorkload(name string, args []string, logger *zap.Logger) *Workload {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return &Workload{Cmd: cmd, logger: logger}
}

// Run starts the workload and blocks until it exits, forwarding SIGINT and
// SIGTERM to the child while it runs.
//
// The returned code is the workload's own exit code. err is non-nil only
// when the workload could not be started or was killed before it could
// report a status; a non-zero exit is not an error here.
func (w *Workload) Run() (int, error) {
	if err := w.Cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting workload: %w", err)
	}
	w.logger.Debug("workload started", zap.Int("pid", w.Cmd.Process.Pid))

	signalChan := make(chan os.Signal, 1)
	setSignalsForChannel(signalChan)
	defer signal.Stop(signalChan)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case sig := <-signalChan:
				w.logger.Debug("forwarding signal to workload", zap.String("signal", sig.String()))
				w.Cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := w.Cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == -1 {
				// The child process was killed
				return -1, errors.New("workload was killed")
			}
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// Terminate gracefully stops the workload by sending SIGTERM. If the
// process doesn't exit within 5 seconds, it is forcefully killed.
// Returns nil if the workload wasn't running or has already finished.
// Terminate must not be combined with a concurrent Run or Wait.
func (w *Workload) Terminate() error {
	if w.Cmd.Process == nil {
		return nil // Process hasn't started or has already finished
	}

	if err := terminateProcess(w.Cmd.Process); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- w.Cmd.Wait()
	}()

	var err error
	select {
	case <-time.After(5 * time.Second):
		// Force kill if it doesn't exit within 5 seconds
		if err = w.Cmd.Process.Kill(); err != nil {
			return err
		}
		<-done // Wait for the process to be killed
	case err = <-done:
		// Process exited before timeout
	}

	return err
}
