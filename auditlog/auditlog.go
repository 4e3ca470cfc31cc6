// Package auditlog defines the append-only record of signup attempts.
//
// Entries are written once per attempt, after the risk decision, and are
// never updated or deleted. The risk scorer reads them back to measure
// global signup volume.
package auditlog

import (
	"context"
	"time"
)

// Entry records one signup attempt. Email is empty when the attempt failed
// before an address could be validated.
type Entry struct {
	ID                int64
	Email             string
	IP                string
	DeviceFingerprint string
	Success           bool
	RiskScore         int
	Action            string
	Indicators        []string
	CreatedAt         time.Time
}

// Log is an append-only store of entries.
type Log interface {
	Append(ctx context.Context, e Entry) error
	// CountSuccessfulSince counts entries with Success set and CreatedAt at
	// or after since.
	CountSuccessfulSince(ctx context.Context, since time.Time) (int, error)
}
