// Package memory provides in-process implementations of account.Repository
// and auditlog.Log for tests, examples and single-node tooling.
package memory
