// Package verification issues and checks short numeric one-time codes.
//
// The engine is stateless: callers store the code, its expiry and the
// attempt counter on the account and pass them back to [Engine.Validate].
// On a mismatch the caller must persist the incremented counter before
// responding; on success it must clear all three in the same write that
// activates the account.
//
// # What this package must NOT do
//
//   - Persist anything.
//   - Import goGate or any sibling internal package.
package verification
