// Package dispatch turns inbound MQTT messages into command executions.
//
// For each message the Dispatcher:
//
//  1. Rejects a parameter containing anything outside printable ASCII
//     (logged at debug level).
//  2. Ignores topics missing from the routing table (info level).
//  3. Resolves the command: exact parameter match first, then the default
//     variant with placeholder substitution; no match is logged at info level.
//  4. Runs the command and publishes the result text to "<topic>/report"
//     at the configured QoS, not retained.
//
// Only executed messages produce a report. Rejections and routing misses are
// silent on the broker side.
//
// After each execution an Execution record is handed to every configured
// Recorder (audit trail, metrics). Recorder errors are logged and otherwise
// ignored.
//
// Thread Safety: Dispatch serialises executions, so commands never overlap
// even when called from several goroutines.
package dispatch
