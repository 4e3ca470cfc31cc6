// Package fingerprint derives a network identity and a coarse device identity
// from an inbound HTTP request.
//
// The device fingerprint is a truncated digest of stable request headers. It
// collides by construction (two stock browsers on the same OS produce the
// same value) and is only ever used as a weak risk signal.
package fingerprint
