// Package executor runs routed commands as child processes.
//
// Each command is started directly from its argument vector; no shell ever
// sees it. The child runs in the configured scratch directory with no stdin,
// and its stderr is merged into stdout.
//
// Every execution produces a Result with a non-empty report text:
//   - success: the combined output with trailing newlines removed
//   - failure: FailurePrefix followed by the error description
//
// Children are started in their own process group. When an execution
// timeout is configured, or the context is cancelled, the whole group gets
// SIGTERM, then SIGKILL once the grace period has passed.
//
// Example usage:
//
//	exec := executor.New(executor.Config{WorkDir: "/tmp", Timeout: 30 * time.Second})
//	res := exec.Execute(ctx, routes.Command{"/bin/ls", "-l"})
//	fmt.Println(res.Output)
package executor
