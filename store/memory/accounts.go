package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goGate/account"
)

// Accounts is a mutex-guarded account.Repository. Stored values are copied
// on the way in and out.
type Accounts struct {
	mu      sync.RWMutex
	byID    map[string]*account.Account
	byEmail map[string]string
	byName  map[string]string
}

// NewAccounts creates an empty repository.
func NewAccounts() *Accounts {
	return &Accounts{
		byID:    make(map[string]*account.Account),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
	}
}

var _ account.Repository = (*Accounts)(nil)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *Accounts) FindByID(_ context.Context, id string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *Accounts) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[fold(email)]
	if !ok {
		return nil, account.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *Accounts) FindByUsername(_ context.Context, username string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[fold(username)]
	if !ok {
		return nil, account.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *Accounts) FindEmailVariants(_ context.Context, normalized string) ([]account.Account, error) {
	return r.filter(func(a *account.Account) bool {
		return account.IsEmailVariant(a.NormalizedEmail, normalized)
	}), nil
}

func (r *Accounts) FindBySignupIP(_ context.Context, ip string, since time.Time) ([]account.Account, error) {
	return r.filter(func(a *account.Account) bool {
		return a.SignupIP == ip && !a.CreatedAt.Before(since)
	}), nil
}

func (r *Accounts) FindByDeviceFingerprint(_ context.Context, fingerprint string, since time.Time) ([]account.Account, error) {
	return r.filter(func(a *account.Account) bool {
		return a.DeviceFingerprint == fingerprint && !a.CreatedAt.Before(since)
	}), nil
}

func (r *Accounts) filter(match func(*account.Account) bool) []account.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []account.Account
	for _, a := range r.byID {
		if match(a) {
			out = append(out, *a.Clone())
		}
	}
	return out
}

// Create stores a new account. Version is set to 1.
func (r *Accounts) Create(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, name := fold(a.Email), fold(a.Username)
	if _, ok := r.byID[a.ID]; ok {
		return account.ErrExists
	}
	if _, ok := r.byEmail[email]; ok {
		return account.ErrExists
	}
	if _, ok := r.byName[name]; ok && name != "" {
		return account.ErrExists
	}

	a.Version = 1
	r.byID[a.ID] = a.Clone()
	r.byEmail[email] = a.ID
	if name != "" {
		r.byName[name] = a.ID
	}
	return nil
}

// Save writes a when its Version matches the stored one, then bumps it.
// Email and username are immutable through Save.
func (r *Accounts) Save(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[a.ID]
	if !ok {
		return account.ErrNotFound
	}
	if current.Version != a.Version {
		return account.ErrVersionConflict
	}

	next := a.Clone()
	next.Email = current.Email
	next.Username = current.Username
	next.Version = current.Version + 1
	r.byID[a.ID] = next
	a.Version = next.Version
	return nil
}

// Len returns the number of stored accounts.
func (r *Accounts) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
