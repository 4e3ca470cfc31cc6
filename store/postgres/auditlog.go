package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/auditlog"
)

// AuditLog is an auditlog.Log backed by the signup_audit table. Indicator
// names are stored comma-joined.
type AuditLog struct {
	db DBTX
}

// NewAuditLog wraps db.
func NewAuditLog(db DBTX) *AuditLog {
	return &AuditLog{db: db}
}

var _ auditlog.Log = (*AuditLog)(nil)

func (l *AuditLog) Append(ctx context.Context, e auditlog.Entry) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO signup_audit
		(email, ip, device_fingerprint, success, risk_score, action, indicators, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		nullString(e.Email), e.IP, e.DeviceFingerprint, e.Success,
		e.RiskScore, e.Action, strings.Join(e.Indicators, ","), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (l *AuditLog) CountSuccessfulSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signup_audit WHERE success AND created_at >= $1`, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
