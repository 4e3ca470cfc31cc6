package password

import (
	"errors"
	"fmt"
	"strings"
)

// Hard bounds on any Policy, in bytes. BcryptMaxLength is the most bcrypt
// reads before it truncates.
const (
	MinLength       = 10
	MaxLength       = 1024
	BcryptMaxLength = 72
)

var (
	// ErrLength is returned by Hash for passwords outside the policy bounds.
	ErrLength = errors.New("password length out of bounds")
	// ErrMalformedHash is returned for stored hashes that cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnknownFormat is returned by Auto.Verify for hashes no configured
	// hasher recognizes.
	ErrUnknownFormat = errors.New("unrecognized password hash format")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Auto)(nil)
)

// Policy bounds plaintext length in bytes. Zero fields, and values outside
// [MinLength, MaxLength], fall back to the hard bounds.
type Policy struct {
	MinLength int
	MaxLength int
}

func (p Policy) bounds() (lo, hi int) {
	lo, hi = p.MinLength, p.MaxLength
	if lo < MinLength {
		lo = MinLength
	}
	if hi <= 0 || hi > MaxLength {
		hi = MaxLength
	}
	return lo, hi
}

// capped returns p with its upper bound lowered to limit.
func (p Policy) capped(limit int) Policy {
	if _, hi := p.bounds(); hi > limit {
		p.MaxLength = limit
	}
	return p
}

// Check returns an error wrapping ErrLength when password is out of bounds.
func (p Policy) Check(password string) error {
	lo, hi := p.bounds()
	if n := len(password); n < lo || n > hi {
		return fmt.Errorf("%w: must be %d-%d bytes", ErrLength, lo, hi)
	}
	return nil
}

// tooLong lets Verify answer a mismatch without deriving a key.
func (p Policy) tooLong(password string) bool {
	_, hi := p.bounds()
	return len(password) > hi
}

// Auto hashes with Argon2id and verifies both Argon2id and bcrypt hashes,
// selecting by the encoded prefix. It lets imported bcrypt hashes keep
// working while new hashes use Argon2id.
type Auto struct {
	argon  *Argon2
	bcrypt *Bcrypt
}

// NewAuto pairs the two hashers. bcrypt may be nil, in which case bcrypt
// hashes are rejected with ErrUnknownFormat.
func NewAuto(argon *Argon2, bcrypt *Bcrypt) *Auto {
	return &Auto{argon: argon, bcrypt: bcrypt}
}

func (h *Auto) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

func (h *Auto) Verify(password, encodedHash string) (bool, error) {
	switch {
	case isArgon2(encodedHash):
		return h.argon.Verify(password, encodedHash)
	case isBcrypt(encodedHash) && h.bcrypt != nil:
		return h.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrUnknownFormat
	}
}

// NeedsRehash reports true for any bcrypt hash and defers Argon2id hashes
// to the Argon2 hasher's current parameters.
func (h *Auto) NeedsRehash(encodedHash string) (bool, error) {
	switch {
	case isBcrypt(encodedHash):
		return true, nil
	case isArgon2(encodedHash):
		return h.argon.NeedsRehash(encodedHash)
	default:
		return false, ErrUnknownFormat
	}
}

func isArgon2(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, phcPrefix)
}
