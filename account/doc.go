// Package account holds the persisted account model and its lifecycle rules.
//
// # States
//
// An account's state is derived from its fields at a given instant, never
// stored: [StateAt] evaluates deactivation, activation, lock and expiry in
// that order. Locks release lazily; nothing sweeps them in the background.
//
// # Mutators
//
// The functions in lifecycle.go are the only code that moves an account
// between states. They mutate the *Account in place and leave persistence to
// the caller, which writes the result through [Repository.Save] under the
// optimistic Version check.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Read the wall clock (callers pass now).
//   - Import goGate or any internal package.
package account
