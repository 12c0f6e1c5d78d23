package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// FailurePrefix starts the report text of every failed execution.
const FailurePrefix = "*****> "

// Default configuration values.
const (
	DefaultWorkDir     = "/tmp"
	DefaultGracePeriod = 5 * time.Second
)

// Config configures an Executor.
type Config struct {
	// WorkDir is the directory every command runs in.
	WorkDir string

	// Timeout bounds a single execution. Zero disables the limit and a hung
	// command blocks until it exits on its own.
	Timeout time.Duration

	// GracePeriod is how long a terminated process group gets between
	// SIGTERM and SIGKILL. It also bounds how long output is collected from
	// background children after the command itself has exited.
	GracePeriod time.Duration
}

// Result describes one execution.
type Result struct {
	// Output is the report text. Never empty for a failure.
	Output string

	// Success is true when the command exited with status 0.
	Success bool

	// ExitCode is the child's exit status, or -1 if it never started or
	// was killed by a signal.
	ExitCode int

	// Duration is the wall time from start to exit.
	Duration time.Duration

	// Err describes the failure. Nil on success.
	Err error
}

// Logger defines the logging interface used by the executor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Executor runs commands as child processes.
//
// Thread Safety: Execute may be called concurrently; each call owns its child.
type Executor struct {
	config Config

	mu     sync.RWMutex
	logger Logger
}

// New creates an executor, filling in defaults for zero fields.
func New(cfg Config) *Executor {
	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultWorkDir
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Executor{
		config: cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

func (e *Executor) log() Logger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.logger
}

// Execute runs argv and waits for it to finish.
//
// The call makes exactly one attempt. Failures never surface as a Go error;
// they are folded into the Result so the caller always has a report payload.
func (e *Executor) Execute(ctx context.Context, argv []string) Result {
	if len(argv) == 0 {
		return failed(ErrEmptyCommand, -1, 0)
	}

	var out bytes.Buffer

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // argv comes from the operator's topic list, never a shell
	cmd.Dir = e.config.WorkDir
	cmd.Stdin = nil
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = e.config.GracePeriod
	// Own process group so the whole tree can be signalled on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return failed(fmt.Errorf("%w: %w", ErrStartFailed, err), -1, time.Since(started))
	}

	pid := cmd.Process.Pid
	e.log().Debug("command started", "pid", pid, "command", strings.Join(argv, " "))

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if e.config.Timeout > 0 {
		timer := time.NewTimer(e.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var waitErr, stopErr error
	select {
	case waitErr = <-done:
	case <-timeout:
		stopErr = fmt.Errorf("%w after %s", ErrTimeout, e.config.Timeout)
		waitErr = e.terminate(pid, done)
	case <-ctx.Done():
		stopErr = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		waitErr = e.terminate(pid, done)
	}
	elapsed := time.Since(started)

	if stopErr != nil {
		e.log().Warn("command stopped", "pid", pid, "error", stopErr, "output", out.String())
		return failed(stopErr, -1, elapsed)
	}

	// A clean exit whose output pipe was held open by a background child.
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil
	}

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		e.log().Debug("command failed", "pid", pid, "exit_code", code, "output", out.String())
		return failed(fmt.Errorf("%w: command %q: %w", ErrNonZeroExit, strings.Join(argv, " "), waitErr), code, elapsed)
	}

	return Result{
		Output:   strings.TrimRight(out.String(), "\n"),
		Success:  true,
		ExitCode: 0,
		Duration: elapsed,
	}
}

// terminate signals the child's process group with SIGTERM, escalating to
// SIGKILL after the grace period, and waits for the child to be reaped.
func (e *Executor) terminate(pid int, done <-chan error) error {
	// Negative PID addresses the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		e.log().Warn("failed to send SIGTERM to process group", "pid", pid, "error", err)
	}

	grace := time.NewTimer(e.config.GracePeriod)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
		e.log().Warn("grace period expired, sending SIGKILL", "pid", pid, "grace", e.config.GracePeriod)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		e.log().Warn("failed to send SIGKILL to process group", "pid", pid, "error", err)
	}
	return <-done
}

func failed(err error, code int, elapsed time.Duration) Result {
	return Result{
		Output:   FailurePrefix + err.Error(),
		Success:  false,
		ExitCode: code,
		Duration: elapsed,
		Err:      err,
	}
}
