// Package subscription tracks value-change subscriptions by path and
// dispatches provider updates to their handlers.
//
// The registry holds at most one entry per canonical path. Adding a path
// that is already present replaces its handler and change state.
//
// # Dispatch
//
// For each update the dispatcher:
//
//  1. extracts the value from the update envelope (a value field if the
//     envelope has one, otherwise the whole envelope)
//  2. looks up the entry for the path and drops the update if there is none
//  3. with OnlyOnChange set, drops updates structurally equal to the last
//     dispatched value, except for the first update of an entry
//  4. invokes the handler, then records the value as the last one
//
// Handler panics are recovered and logged so one faulty handler cannot
// stop delivery for other paths.
//
// # Connection Loss
//
// Entries do not survive connection loss as live bindings. Unbind marks
// every entry pending; pending entries stay listed but receive no updates
// until they are added again.
package subscription
