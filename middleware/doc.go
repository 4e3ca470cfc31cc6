// Package middleware adapts goGate.Engine to net/http and gin.
//
//   - [Identity] and [GinIdentity] put the client IP and device fingerprint
//     on the request context.
//   - [Guard] verifies a bearer access token via Engine.ValidateAccessToken.
//   - [RequireSuperuser] is Guard plus the superuser claim.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Make authorization decisions beyond pass/reject on the verified claims.
package middleware
