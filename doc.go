// Package goGate is an account-creation gate: risk-scored signup, email
// verification codes, password authentication with lockout, and password
// reset over a pluggable account repository.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (SignupResult, CodeResult, MetricsSnapshot, etc.). Scoring
// lives in risk, state rules in account, and code handling, rate limiting
// and audit dispatch under internal/.
//
// # Error surface
//
// Callers branch on sentinels with errors.Is. Verification failures collapse
// to [ErrInvalidOrExpiredCode], unknown logins to [ErrInvalidCredentials],
// and backend failures to [ErrRepository]; detail goes to the logger only.
// ResendCode and RequestPasswordReset answer the same way for known and
// unknown emails.
//
// # What this package must NOT do
//
//   - Return risk scores, indicators or internal errors to end users.
//   - Send mail before the state change it announces has committed.
//   - Import any sub-package that re-imports goGate (no import cycles).
package goGate
