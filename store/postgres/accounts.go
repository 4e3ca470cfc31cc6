package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/goGate/account"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, normalized_email, password_hash,
	is_superuser, is_active, email_verified,
	verification_code, verification_code_expires_at, verification_attempts,
	reset_code, reset_code_expires_at, reset_attempts,
	failed_login_attempts, locked_until, last_login_ip, last_login_at,
	password_changed_at, signup_ip, device_fingerprint, expires_at,
	deactivated_at, created_at, updated_at, version`

// Accounts is an account.Repository backed by the accounts table.
type Accounts struct {
	db DBTX
}

// NewAccounts wraps db.
func NewAccounts(db DBTX) *Accounts {
	return &Accounts{db: db}
}

var _ account.Repository = (*Accounts)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a                                   account.Account
		verificationCode, resetCode, lastIP sql.NullString
		verificationExp, resetExp, lockedAt sql.NullTime
		lastLogin, pwChanged, expires, deac sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.NormalizedEmail, &a.PasswordHash,
		&a.IsSuperuser, &a.IsActive, &a.EmailVerified,
		&verificationCode, &verificationExp, &a.VerificationAttempts,
		&resetCode, &resetExp, &a.ResetAttempts,
		&a.FailedLoginAttempts, &lockedAt, &lastIP, &lastLogin,
		&pwChanged, &a.SignupIP, &a.DeviceFingerprint, &expires,
		&deac, &a.CreatedAt, &a.UpdatedAt, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	a.VerificationCode = verificationCode.String
	a.VerificationCodeExpiresAt = fromNullTime(verificationExp)
	a.ResetCode = resetCode.String
	a.ResetCodeExpiresAt = fromNullTime(resetExp)
	a.LockedUntil = fromNullTime(lockedAt)
	a.LastLoginIP = lastIP.String
	a.LastLoginAt = fromNullTime(lastLogin)
	a.PasswordChangedAt = fromNullTime(pwChanged)
	a.ExpiresAt = fromNullTime(expires)
	a.DeactivatedAt = fromNullTime(deac)
	return &a, nil
}

func (r *Accounts) findOne(ctx context.Context, where string, arg any) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *Accounts) findMany(ctx context.Context, where string, args ...any) ([]account.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *Accounts) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *Accounts) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.findOne(ctx, `lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *Accounts) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	return r.findOne(ctx, `lower(username) = $1`, strings.ToLower(strings.TrimSpace(username)))
}

// FindEmailVariants matches normalized_email against "local%@domain" with
// the LIKE wildcards of both parts escaped.
func (r *Accounts) FindEmailVariants(ctx context.Context, normalized string) ([]account.Account, error) {
	at := strings.LastIndexByte(normalized, '@')
	if at <= 0 || at == len(normalized)-1 {
		return nil, nil
	}
	pattern := escapeLike(normalized[:at]) + "%@" + escapeLike(normalized[at+1:])
	return r.findMany(ctx, `normalized_email LIKE $1 ESCAPE '\'`, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *Accounts) FindBySignupIP(ctx context.Context, ip string, since time.Time) ([]account.Account, error) {
	return r.findMany(ctx, `signup_ip = $1 AND created_at >= $2`, ip, since)
}

func (r *Accounts) FindByDeviceFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]account.Account, error) {
	return r.findMany(ctx, `device_fingerprint = $1 AND created_at >= $2`, fingerprint, since)
}

// Create inserts a with version 1. A unique violation on email or username
// maps to account.ErrExists.
func (r *Accounts) Create(ctx context.Context, a *account.Account) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, 1)`,
		a.ID, a.Username, a.Email, a.NormalizedEmail, a.PasswordHash,
		a.IsSuperuser, a.IsActive, a.EmailVerified,
		nullString(a.VerificationCode), nullTime(a.VerificationCodeExpiresAt), a.VerificationAttempts,
		nullString(a.ResetCode), nullTime(a.ResetCodeExpiresAt), a.ResetAttempts,
		a.FailedLoginAttempts, nullTime(a.LockedUntil), nullString(a.LastLoginIP), nullTime(a.LastLoginAt),
		nullTime(a.PasswordChangedAt), a.SignupIP, a.DeviceFingerprint, nullTime(a.ExpiresAt),
		nullTime(a.DeactivatedAt), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	a.Version = 1
	return nil
}

// Save writes the mutable columns when the stored version still equals
// a.Version. Email, username and signup metadata are never rewritten.
func (r *Accounts) Save(ctx context.Context, a *account.Account) error {
	var next int64
	err := r.db.QueryRowContext(ctx, `UPDATE accounts SET
			password_hash = $3, is_superuser = $4, is_active = $5, email_verified = $6,
			verification_code = $7, verification_code_expires_at = $8, verification_attempts = $9,
			reset_code = $10, reset_code_expires_at = $11, reset_attempts = $12,
			failed_login_attempts = $13, locked_until = $14, last_login_ip = $15, last_login_at = $16,
			password_changed_at = $17, expires_at = $18, deactivated_at = $19, updated_at = $20,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`,
		a.ID, a.Version,
		a.PasswordHash, a.IsSuperuser, a.IsActive, a.EmailVerified,
		nullString(a.VerificationCode), nullTime(a.VerificationCodeExpiresAt), a.VerificationAttempts,
		nullString(a.ResetCode), nullTime(a.ResetCodeExpiresAt), a.ResetAttempts,
		a.FailedLoginAttempts, nullTime(a.LockedUntil), nullString(a.LastLoginIP), nullTime(a.LastLoginAt),
		nullTime(a.PasswordChangedAt), nullTime(a.ExpiresAt), nullTime(a.DeactivatedAt), a.UpdatedAt,
	).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missOrConflict(ctx, a.ID)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	a.Version = next
	return nil
}

func (r *Accounts) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return account.ErrNotFound
	}
	return account.ErrVersionConflict
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
