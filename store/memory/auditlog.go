package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goGate/auditlog"
)

// AuditLog is an in-memory auditlog.Log.
type AuditLog struct {
	mu      sync.RWMutex
	entries []auditlog.Entry
	nextID  int64
}

// NewAuditLog creates an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

var _ auditlog.Log = (*AuditLog)(nil)

func (l *AuditLog) Append(_ context.Context, e auditlog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	e.ID = l.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Indicators = append([]string(nil), e.Indicators...)
	l.entries = append(l.entries, e)
	return nil
}

func (l *AuditLog) CountSuccessfulSince(_ context.Context, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.Success && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Entries returns a copy of every entry in append order.
func (l *AuditLog) Entries() []auditlog.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]auditlog.Entry(nil), l.entries...)
}
