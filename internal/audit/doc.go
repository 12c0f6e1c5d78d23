// Package audit keeps a queryable history of every command the launcher ran.
//
// Records are written to the executions table created by the embedded
// migrations. SQLiteRepository implements dispatch.Recorder so it can be
// handed straight to the dispatcher.
package audit
