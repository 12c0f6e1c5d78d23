// Package lifecycle keeps the launcher connected to its broker.
//
// Manager runs the connection state machine:
//
//	Disconnected ──connect──▶ Connecting ──ok──▶ Connected
//	     ▲                        │                  │
//	     └──── RetryDelay ◀──error┘                  │
//	     └──── ReconnectDelay ◀──── connection lost ─┘
//
// On every successful connect the full topic list is subscribed in one
// batch. While connected, the session is health checked every
// HealthInterval; a failed check counts as a lost connection.
//
// Inbound messages, including any the broker replays before the first
// subscription, are appended to an unbounded queue drained by a single
// worker goroutine that hands them to the Handler one at a time. Command
// executions never overlap, and the transport's callback goroutine never
// waits on a command.
//
// The loop has no retry limit. It ends only when the context is cancelled,
// at which point the session is disconnected and Run returns nil.
package lifecycle
