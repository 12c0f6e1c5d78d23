// Package routes holds the launcher's routing table.
//
// The table maps an MQTT topic to a Route, and a Route maps an optional
// parameter (the message payload) to a Command. It is built once from the
// topiclist configuration and never changes afterwards, so lookups are safe
// from any number of goroutines without locking.
//
// Selection rules for Route.Resolve:
//
//  1. A parameter with an exact-match variant gets that command verbatim.
//  2. Otherwise the default variant is used, with every occurrence of the
//     placeholder "@!@" in every argument replaced by the parameter. With
//     no parameter the arguments are left as configured.
//  3. Otherwise nothing matches.
//
// Substitution happens inside argument tokens only. A parameter containing
// spaces stays a single argument; nothing is ever handed to a shell.
package routes
