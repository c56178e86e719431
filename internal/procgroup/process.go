// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup runs decoder processes as leaders of their own process
// group, so stopping a decoder also reaches any helper it forked.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/metrics"
)

// Process is a started command that leads its own process group.
//
// Exactly one goroutine reaps it with Wait, typically after draining the
// command's pipes. Stop and Kill only signal and observe Done.
type Process struct {
	cmd  *exec.Cmd
	pid  int
	reap sync.Once
	done chan struct{}
	err  error
}

// Start isolates cmd into a new process group and starts it.
func Start(cmd *exec.Cmd) (*Process, error) {
	isolate(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Process{cmd: cmd, pid: cmd.Process.Pid, done: make(chan struct{})}, nil
}

// Pid is the group leader's process id.
func (p *Process) Pid() int { return p.pid }

// Wait reaps the process and returns its exit error. Later calls return the
// same result.
func (p *Process) Wait() error {
	p.reap.Do(func() {
		p.err = p.cmd.Wait()
		close(p.done)
	})
	<-p.done
	return p.err
}

// Done is closed once Wait has reaped the process.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err is the exit error. Only meaningful after Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *Process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Signal delivers sig to every member of the group. Signalling a group that
// is already gone is not an error.
func (p *Process) Signal(sig syscall.Signal) error {
	if p.exited() {
		return nil
	}
	err := signalGroup(p.cmd.Process, sig)
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Kill ends the group immediately without waiting for it to be reaped.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Stop asks the group to terminate and escalates to SIGKILL when it is still
// running after grace. It blocks until the reaping goroutine has called Wait
// and returns the exit error.
func (p *Process) Stop(grace time.Duration) error {
	if p.exited() {
		return p.err
	}
	metrics.IncProcTerminate("SIGTERM", signalOutcome(p.Signal(syscall.SIGTERM)))

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		metrics.IncProcWait(waitOutcome("", p.err))
		return p.err
	case <-timer.C:
	}

	log.L().Warn().
		Int(log.FieldPID, p.pid).
		Dur("grace", grace).
		Msg("decoder ignored SIGTERM, killing its process group")
	metrics.IncProcTerminate("SIGKILL", signalOutcome(p.Kill()))
	<-p.done
	metrics.IncProcWait(waitOutcome("forced_", p.err))
	return p.err
}

func waitOutcome(prefix string, err error) string {
	if err == nil {
		return prefix + "exit0"
	}
	return prefix + "error"
}

func signalOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "sent"
}
