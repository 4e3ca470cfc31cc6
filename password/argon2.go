package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	phcPrefix    = "$argon2id$v="
	paramsFormat = "m=%d,t=%d,p=%d"
)

// Config holds Argon2id cost parameters and the length policy applied to
// plaintexts. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	Policy      Policy
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		Policy:      Policy{MinLength: MinLength, MaxLength: MaxLength},
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("argon2 time must be >= %d", minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("argon2 parallelism must be >= %d", minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}

// costs is the tunable part of an Argon2id derivation, shared by the
// configured hasher and every decoded hash.
type costs struct {
	memory      uint32
	time        uint32
	parallelism uint8
	keyLength   uint32
}

// below reports whether c is cheaper than target on any cost or derives a
// key of a different length.
func (c costs) below(target costs) bool {
	return c.memory < target.memory ||
		c.time < target.time ||
		c.parallelism < target.parallelism ||
		c.keyLength != target.keyLength
}

func (c costs) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.time, c.memory, c.parallelism, c.keyLength)
}

// phcHash is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$sum string.
type phcHash struct {
	costs
	salt []byte
	sum  []byte
}

// String encodes h with unpadded base64, the PHC convention.
func (h phcHash) String() string {
	var b strings.Builder
	b.WriteString(phcPrefix)
	b.WriteString(strconv.Itoa(argon2.Version))
	b.WriteByte('$')
	fmt.Fprintf(&b, paramsFormat, h.memory, h.time, h.parallelism)
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(h.salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(h.sum))
	return b.String()
}

func malformed(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, detail)
}

// decodePHC parses an Argon2id PHC string. Padded base64 is accepted so
// hashes written by older encoders still verify.
func decodePHC(encoded string) (phcHash, error) {
	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return phcHash{}, malformed("not an argon2id PHC string")
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phcHash{}, malformed("wrong field count")
	}

	version, err := strconv.Atoi(fields[0])
	if err != nil || version != argon2.Version {
		return phcHash{}, malformed("unsupported argon2 version " + fields[0])
	}

	var h phcHash
	if _, err := fmt.Sscanf(fields[1], paramsFormat, &h.memory, &h.time, &h.parallelism); err != nil ||
		fmt.Sprintf(paramsFormat, h.memory, h.time, h.parallelism) != fields[1] {
		return phcHash{}, malformed("invalid parameters")
	}
	if h.memory < minMemoryKB || h.time < minTimeCost || h.parallelism < minParallelism {
		return phcHash{}, malformed("parameters below minimum")
	}

	if h.salt, err = decodeB64(fields[2]); err != nil || len(h.salt) < int(minSaltLength) {
		return phcHash{}, malformed("invalid salt")
	}
	if h.sum, err = decodeB64(fields[3]); err != nil || len(h.sum) == 0 {
		return phcHash{}, malformed("invalid digest")
	}
	h.keyLength = uint32(len(h.sum))
	return h, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Argon2 hashes with Argon2id and encodes results as PHC strings.
type Argon2 struct {
	costs      costs
	saltLength uint32
	policy     Policy
}

// NewArgon2 validates cfg against the package minimums.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{
		costs: costs{
			memory:      cfg.Memory,
			time:        cfg.Time,
			parallelism: cfg.Parallelism,
			keyLength:   cfg.KeyLength,
		},
		saltLength: cfg.SaltLength,
		policy:     cfg.Policy,
	}, nil
}

// Hash derives a new salted hash. Password bytes are used as given, with no
// Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.policy.Check(password); err != nil {
		return "", err
	}
	salt := make([]byte, a.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}
	return phcHash{costs: a.costs, salt: salt, sum: a.costs.derive(password, salt)}.String(), nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash and
// compares in constant time. A malformed hash is an error, not a mismatch.
// Passwords longer than the policy allows never match.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	if a.policy.tooLong(password) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(h.costs.derive(password, h.salt), h.sum) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with weaker
// parameters, or a shorter salt, than the hasher's current config.
func (a *Argon2) NeedsRehash(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return h.costs.below(a.costs) || uint32(len(h.salt)) < a.saltLength, nil
}
