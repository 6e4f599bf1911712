// Package exec runs external tools for issuerunner.
// Every child gets its own process group so a timeout or interrupt
// terminates the whole tree, not just the direct child.
package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	osexec "os/exec"
	"syscall"
	"time"
)

// GracePeriod is the default wait between SIGINT and SIGKILL when
// terminating a process group on timeout or cancellation.
const GracePeriod = 3 * time.Second

// RunOpts configures a single command invocation.
type RunOpts struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the parent environment.
	Env []string

	// Timeout bounds the command. Zero means no timeout beyond ctx.
	Timeout time.Duration
}

// CmdResult is the outcome of a command that was started.
type CmdResult struct {
	ExitCode  int // -1 when the process was killed or never produced a status
	Stdout    string
	Stderr    string
	TimedOut  bool
	Cancelled bool
	Duration  time.Duration
}

// OK reports a clean zero exit.
func (r CmdResult) OK() bool {
	return r.ExitCode == 0 && !r.TimedOut && !r.Cancelled
}

// CommandRunner runs external commands.
// An error is returned only when the command could not be started.
// Non-zero exits, timeouts and cancellation are reported in CmdResult.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// RealRunner executes commands on the host.
type RealRunner struct {
	Grace time.Duration
}

// NewRealRunner returns a RealRunner using the default grace period.
func NewRealRunner() *RealRunner {
	return &RealRunner{Grace: GracePeriod}
}

// Run implements CommandRunner.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	runCtx := ctx
	cancelTimeout := func() {}
	if opts.Timeout > 0 {
		runCtx, cancelTimeout = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancelTimeout()

	var stdout, stderr bytes.Buffer
	cmd := osexec.Command(name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return CmdResult{ExitCode: -1}, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer func() { _ = devnull.Close() }()
	cmd.Stdin = devnull

	if ctx.Err() != nil {
		return CmdResult{ExitCode: -1, Cancelled: true}, nil
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return CmdResult{ExitCode: -1}, fmt.Errorf("start %s: %w", name, err)
	}
	pgid := cmd.Process.Pid

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	var runErr error
	var timedOut, cancelled bool

	select {
	case runErr = <-waitDone:
	case <-runCtx.Done():
		if ctx.Err() != nil {
			cancelled = true
		} else {
			timedOut = true
		}
		r.killProcessGroup(pgid, waitDone)
		runErr = <-waitDone
	}

	res := CmdResult{
		ExitCode:  exitCodeOf(runErr),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		TimedOut:  timedOut,
		Cancelled: cancelled,
		Duration:  time.Since(start),
	}
	if timedOut || cancelled {
		res.ExitCode = -1
	}
	if timedOut {
		if res.Stderr != "" && res.Stderr[len(res.Stderr)-1] != '\n' {
			res.Stderr += "\n"
		}
		res.Stderr += "Process timed out"
	}
	return res, nil
}

// killProcessGroup sends SIGINT to the group, waits for the grace period or
// an early exit, then sends SIGKILL. The wait result is pushed back onto
// waitDone for the caller.
func (r *RealRunner) killProcessGroup(pgid int, waitDone chan error) {
	_ = syscall.Kill(-pgid, syscall.SIGINT)

	select {
	case err := <-waitDone:
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		waitDone <- err
	case <-time.After(r.Grace):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *osexec.ExitError
	if stderrors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return -1
		}
		return exitErr.ExitCode()
	}
	return -1
}
