// Package rate implements per-key sliding-window rate limiting for the
// signup, verification, resend, login and password-reset endpoints.
//
// # Window semantics
//
// A key admits a request when fewer than Limit.Max requests were recorded in
// the trailing Limit.Window; an admitted request is recorded, a rejected one
// is not. Keys have the form "identity:class".
//
// # Stores
//
//   - [MemoryStore]: process-local, one mutex per key. Default. State is
//     lost on restart and is not shared between instances.
//   - [RedisStore]: sorted-set window evaluated by a Lua script, for
//     deployments that run several instances behind one limit. Opt-in.
//
// # What this package must NOT do
//
//   - Decide which identity a request is keyed on (the Engine does).
//   - Be imported outside the goGate module.
package rate
