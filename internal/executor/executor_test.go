package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New(Config{WorkDir: t.TempDir(), GracePeriod: 200 * time.Millisecond})
}

// ============================================================================
// Successful execution
// ============================================================================

func TestExecute_TrimsTrailingNewline(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/bin/echo", "hello"})

	if !res.Success {
		t.Fatalf("Success = false, Err = %v", res.Err)
	}
	if res.Output != "hello" {
		t.Errorf("Output = %q, want %q", res.Output, "hello")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestExecute_OnlyTrailingNewlinesRemoved(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/bin/sh", "-c", `printf '  one\n\ntwo  \n\n\n'`})

	if !res.Success {
		t.Fatalf("Success = false, Err = %v", res.Err)
	}
	if want := "  one\n\ntwo  "; res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
}

func TestExecute_MergesStderr(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/bin/sh", "-c", "echo out; echo err >&2"})

	if !res.Success {
		t.Fatalf("Success = false, Err = %v", res.Err)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("Output = %q, want both stdout and stderr", res.Output)
	}
}

func TestExecute_RunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{WorkDir: dir})

	res := e.Execute(context.Background(), []string{"pwd"})
	if !res.Success {
		t.Fatalf("Success = false, Err = %v", res.Err)
	}

	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	got, err := filepath.EvalSymlinks(res.Output)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", res.Output, err)
	}
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestExecute_NoShellInterpretation(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/bin/echo", "$HOME; echo injected"})

	if res.Output != "$HOME; echo injected" {
		t.Errorf("Output = %q, argument was interpreted", res.Output)
	}
}

func TestExecute_NoStdin(t *testing.T) {
	e := newTestExecutor(t)

	// cat with no stdin attached reads EOF immediately.
	res := e.Execute(context.Background(), []string{"cat"})

	if !res.Success {
		t.Fatalf("Success = false, Err = %v", res.Err)
	}
	if res.Output != "" {
		t.Errorf("Output = %q, want empty", res.Output)
	}
}

// ============================================================================
// Failures
// ============================================================================

func TestExecute_NonZeroExit(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/bin/sh", "-c", "echo partial; exit 3"})

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if !errors.Is(res.Err, ErrNonZeroExit) {
		t.Errorf("Err = %v, want ErrNonZeroExit", res.Err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.HasPrefix(res.Output, FailurePrefix) || len(res.Output) <= len(FailurePrefix) {
		t.Errorf("Output = %q, want non-empty diagnostic", res.Output)
	}
}

func TestExecute_False(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"false"})

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if res.Output == "" {
		t.Error("Output is empty, want diagnostic")
	}
}

func TestExecute_MissingExecutable(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), []string{"/nonexistent/binary-xyz"})

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if !errors.Is(res.Err, ErrStartFailed) {
		t.Errorf("Err = %v, want ErrStartFailed", res.Err)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if !strings.HasPrefix(res.Output, FailurePrefix) {
		t.Errorf("Output = %q, want diagnostic", res.Output)
	}
}

func TestExecute_MissingWorkDir(t *testing.T) {
	e := New(Config{WorkDir: "/nonexistent/workdir"})

	res := e.Execute(context.Background(), []string{"/bin/echo", "hi"})

	if !errors.Is(res.Err, ErrStartFailed) {
		t.Errorf("Err = %v, want ErrStartFailed", res.Err)
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), nil)

	if !errors.Is(res.Err, ErrEmptyCommand) {
		t.Errorf("Err = %v, want ErrEmptyCommand", res.Err)
	}
	if res.Output == "" {
		t.Error("Output is empty, want diagnostic")
	}
}

// ============================================================================
// Timeout and cancellation
// ============================================================================

func TestExecute_Timeout(t *testing.T) {
	e := New(Config{
		WorkDir:     t.TempDir(),
		Timeout:     100 * time.Millisecond,
		GracePeriod: 200 * time.Millisecond,
	})

	start := time.Now()
	res := e.Execute(context.Background(), []string{"sleep", "10"})

	if !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Execute took %v, want prompt return after timeout", elapsed)
	}
}

func TestExecute_TimeoutEscalatesToKill(t *testing.T) {
	e := New(Config{
		WorkDir:     t.TempDir(),
		Timeout:     100 * time.Millisecond,
		GracePeriod: 200 * time.Millisecond,
	})

	start := time.Now()
	res := e.Execute(context.Background(), []string{"/bin/sh", "-c", `trap "" TERM; sleep 10`})

	if !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", res.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Execute took %v, SIGKILL escalation did not happen", elapsed)
	}
}

func TestExecute_ContextCanceled(t *testing.T) {
	e := newTestExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, []string{"sleep", "10"})

	if !errors.Is(res.Err, ErrCanceled) {
		t.Errorf("Err = %v, want ErrCanceled", res.Err)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want wrapped context.Canceled", res.Err)
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New(Config{})

	if e.config.WorkDir != DefaultWorkDir {
		t.Errorf("WorkDir = %q, want %q", e.config.WorkDir, DefaultWorkDir)
	}
	if e.config.GracePeriod != DefaultGracePeriod {
		t.Errorf("GracePeriod = %v, want %v", e.config.GracePeriod, DefaultGracePeriod)
	}
	if e.config.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", e.config.Timeout)
	}
}

func TestSetLogger_Nil(t *testing.T) {
	e := newTestExecutor(t)
	e.SetLogger(nil)

	res := e.Execute(context.Background(), []string{"true"})
	if !res.Success {
		t.Errorf("Success = false, Err = %v", res.Err)
	}
}
