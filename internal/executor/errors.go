package executor

import "errors"

// Domain errors for the executor package.
//
// They are carried in Result.Err and can be checked with errors.Is.
var (
	// ErrEmptyCommand is returned for a command with no arguments.
	ErrEmptyCommand = errors.New("executor: empty command")

	// ErrStartFailed is returned when the child could not be started
	// (missing executable, bad working directory, permissions).
	ErrStartFailed = errors.New("executor: start failed")

	// ErrNonZeroExit is returned when the child exits with a non-zero status
	// or is killed by a signal.
	ErrNonZeroExit = errors.New("executor: non-zero exit")

	// ErrTimeout is returned when the child outlives the execution timeout.
	ErrTimeout = errors.New("executor: timed out")

	// ErrCanceled is returned when the context is cancelled mid-execution.
	ErrCanceled = errors.New("executor: canceled")
)
