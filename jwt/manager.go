package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const maxLeeway = 2 * time.Minute

var (
	ErrMissingKeyID = errors.New("jwt: token carries no kid")
	ErrUnknownKeyID = errors.New("jwt: unknown kid")
	ErrNoSubject    = errors.New("jwt: token has no subject")
	ErrVerifyOnly   = errors.New("jwt: manager holds no signing key")
)

// Config configures a Manager. For HS256 PrivateKey is the shared secret.
// For Ed25519 PrivateKey may be omitted on verify-only instances, and
// PublicKey defaults to the private key's public half.
//
// VerifyKeys maps kid to verification key for rotation. When set, every
// token must carry a kid found in the map.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// Subject identifies the account a token is minted for.
type Subject struct {
	AccountID string
	Username  string
	Superuser bool
}

// Token is a signed access token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// AccessClaims is the token payload. Subject carries the account ID.
type AccessClaims struct {
	Username  string `json:"usr"`
	Superuser bool   `json:"su,omitempty"`
	jwt.RegisteredClaims
}

// scheme decodes raw key material for one signing method.
type scheme struct {
	method jwt.SigningMethod
	signer func([]byte) (any, error)
	verify func([]byte) (any, error)
	public func(signer any) any
}

var schemes = map[SigningMethod]scheme{
	MethodHS256: {
		method: jwt.SigningMethodHS256,
		signer: hmacSecret,
		verify: hmacSecret,
		public: func(k any) any { return k },
	},
	MethodEd25519: {
		method: jwt.SigningMethodEdDSA,
		signer: func(b []byte) (any, error) { return parseEdPrivateKey(b) },
		verify: func(b []byte) (any, error) { return parseEdPublicKey(b) },
		public: func(k any) any { return k.(ed25519.PrivateKey).Public() },
	},
}

// Manager mints and verifies access tokens for authenticated accounts. Keys
// are decoded once at construction.
type Manager struct {
	ttl       time.Duration
	issuer    string
	audience  string
	now       func() time.Time
	method    jwt.SigningMethod
	keyID     string
	signKey   any
	verifyKey any
	keysByID  map[string]any
	parser    *jwt.Parser
}

// NewManager validates cfg and decodes any configured keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: access TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("jwt: leeway must be within [0, %s]", maxLeeway)
	}
	s, ok := schemes[cfg.SigningMethod]
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	m := &Manager{
		ttl:      cfg.AccessTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
		method:   s.method,
		keyID:    strings.TrimSpace(cfg.KeyID),
	}
	if m.now == nil {
		m.now = time.Now
	}

	var err error
	if len(cfg.PrivateKey) > 0 {
		if m.signKey, err = s.signer(cfg.PrivateKey); err != nil {
			return nil, err
		}
	}
	switch {
	case cfg.SigningMethod == MethodHS256:
		if m.signKey == nil {
			return nil, errors.New("jwt: hs256 requires a shared secret")
		}
		m.verifyKey = m.signKey
	case len(cfg.PublicKey) > 0:
		if m.verifyKey, err = s.verify(cfg.PublicKey); err != nil {
			return nil, err
		}
	case m.signKey != nil:
		m.verifyKey = s.public(m.signKey)
	}

	if len(cfg.VerifyKeys) > 0 {
		m.keysByID = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("jwt: verify key set contains an empty kid")
			}
			key, err := s.verify(raw)
			if err != nil {
				return nil, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			m.keysByID[kid] = key
		}
		if _, ok := m.keysByID[m.keyID]; m.keyID != "" && !ok {
			return nil, fmt.Errorf("jwt: KeyID %q is not in VerifyKeys", m.keyID)
		}
	}
	if m.verifyKey == nil && m.keysByID == nil {
		return nil, errors.New("jwt: no verification key configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	m.parser = jwt.NewParser(opts...)
	return m, nil
}

// Mint signs a token for s.
func (m *Manager) Mint(s Subject) (Token, error) {
	if m.signKey == nil {
		return Token{}, ErrVerifyOnly
	}
	now := m.now()
	out := Token{ID: uuid.NewString(), ExpiresAt: now.Add(m.ttl)}

	claims := AccessClaims{
		Username:  s.Username,
		Superuser: s.Superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.AccountID,
			ID:        out.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	t := jwt.NewWithClaims(m.method, claims)
	if m.keyID != "" {
		t.Header["kid"] = m.keyID
	}
	var err error
	if out.Value, err = t.SignedString(m.signKey); err != nil {
		return Token{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return out, nil
}

// Verify checks signature, algorithm, kid and the registered claims of a
// token minted by Mint.
func (m *Manager) Verify(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := m.parser.ParseWithClaims(token, claims, m.keyFor); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}

func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	switch {
	case m.keysByID != nil:
		if kid == "" {
			return nil, ErrMissingKeyID
		}
		key, ok := m.keysByID[kid]
		if !ok {
			return nil, ErrUnknownKeyID
		}
		return key, nil
	case m.keyID == "":
		return m.verifyKey, nil
	case kid == "":
		return nil, ErrMissingKeyID
	case kid != m.keyID:
		return nil, ErrUnknownKeyID
	default:
		return m.verifyKey, nil
	}
}

func hmacSecret(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, errors.New("jwt: empty hmac secret")
	}
	return append([]byte(nil), b...), nil
}

// parseEdPrivateKey accepts a raw 64-byte key or PEM.
func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return edKey, nil
}

// parseEdPublicKey accepts a raw 32-byte key or PEM.
func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return edKey, nil
}
