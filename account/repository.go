package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by lookups that match no account.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by Create when the email or username is taken.
	ErrExists = errors.New("account already exists")
	// ErrVersionConflict is returned by Save when the stored Version no
	// longer matches the one the caller loaded.
	ErrVersionConflict = errors.New("account version conflict")
)

// Repository persists accounts.
//
// Save is a compare-and-swap on Version: it writes only when the stored
// version equals a.Version, then increments a.Version. Lookups by email and
// username are case-insensitive. FindEmailVariants returns every account
// whose NormalizedEmail satisfies IsEmailVariant for normalized. The slice
// lookups return copies.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindEmailVariants(ctx context.Context, normalized string) ([]Account, error)
	FindBySignupIP(ctx context.Context, ip string, since time.Time) ([]Account, error)
	FindByDeviceFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]Account, error)
	Create(ctx context.Context, a *Account) error
	Save(ctx context.Context, a *Account) error
}
