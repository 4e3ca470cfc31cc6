// Package postgres implements account.Repository and auditlog.Log on
// PostgreSQL through database/sql and the pgx stdlib driver.
//
// Schema lives in the embedded goose migrations; call [Migrate] before use.
// Save is a conditional UPDATE on the version column, so concurrent writers
// to one account serialize without row locks.
package postgres
