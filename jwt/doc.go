// Package jwt mints short-lived access tokens after a successful
// Authenticate and verifies them with strict algorithm, issuer, audience
// and kid checks. HS256 and Ed25519 are supported.
package jwt
