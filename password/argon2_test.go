package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func secureConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if strings.Contains(hash, "=$") || strings.HasSuffix(hash, "=") {
		t.Fatalf("expected unpadded base64 fields: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyPaddedLegacyEncoding(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	salt := []byte("0123456789abcdef")
	sum := argon2.IDKey([]byte("legacy-password"), salt, 1, 8*1024, 1, 32)
	padded := "$argon2id$v=19$m=8192,t=1,p=1$" +
		base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(sum)

	ok, err := hasher.Verify("legacy-password", padded)
	if err != nil || !ok {
		t.Fatalf("expected padded hash to verify, got ok=%v err=%v", ok, err)
	}
}

func TestNeedsRehash(t *testing.T) {
	current, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"same parameters", func(*Config) {}, false},
		{"lower memory", func(c *Config) { c.Memory = 32768 }, true},
		{"lower time", func(c *Config) { c.Time = 2 }, true},
		{"lower parallelism", func(c *Config) { c.Parallelism = 1 }, true},
		{"different key length", func(c *Config) { c.KeyLength = 64 }, true},
		{"stronger time", func(c *Config) { c.Time = 4 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := secureConfig()
			tc.mutate(&cfg)
			old, err := NewArgon2(cfg)
			if err != nil {
				t.Fatalf("NewArgon2 error: %v", err)
			}
			hash, err := old.Hash("rehash-password")
			if err != nil {
				t.Fatalf("Hash error: %v", err)
			}
			got, err := current.NeedsRehash(hash)
			if err != nil {
				t.Fatalf("NeedsRehash error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NeedsRehash = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNeedsRehashShorterSalt(t *testing.T) {
	cfg := fastConfig()
	cfg.SaltLength = 32
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	short, _ := NewArgon2(fastConfig())
	hash, err := short.Hash("salt-length-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if got, err := hasher.NeedsRehash(hash); err != nil || !got {
		t.Fatalf("expected rehash for 16-byte salt, got %v err=%v", got, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	good, err := hasher.Hash("malformed-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	fields := strings.Split(good, "$")

	cases := map[string]string{
		"not phc":          "not-a-phc-hash",
		"wrong algorithm":  strings.Replace(good, "argon2id", "argon2i", 1),
		"wrong version":    strings.Replace(good, "$v=19$", "$v=18$", 1),
		"params reordered": strings.Replace(good, "m=8192,t=1,p=1", "t=1,m=8192,p=1", 1),
		"trailing param":   strings.Replace(good, "p=1$", "p=1x$", 1),
		"memory too low":   strings.Replace(good, "m=8192", "m=1024", 1),
		"short salt":       strings.Join(append(fields[:4:4], "c2hvcnQ", fields[5]), "$"),
		"empty digest":     strings.Join(append(fields[:5:5], ""), "$"),
		"extra field":      good + "$extra",
	}
	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := hasher.Verify("malformed-password", hash); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, got %v", err)
			}
			if _, err := hasher.NeedsRehash(hash); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("NeedsRehash: expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 4096 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, mutate := range cases {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected config error", name)
		}
	}
}

func TestArgon2AppliesPolicy(t *testing.T) {
	cfg := fastConfig()
	cfg.Policy = Policy{MinLength: 12, MaxLength: 64}
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	for _, pwd := range []string{"", "eleven-char", strings.Repeat("a", 65)} {
		if _, err := hasher.Hash(pwd); !errors.Is(err, ErrLength) {
			t.Fatalf("Hash(%d bytes): expected ErrLength, got %v", len(pwd), err)
		}
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected %d-byte password to be accepted: %v", len(exact), err)
	}
	if ok, err := hasher.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("Verify failed at max length: ok=%v err=%v", ok, err)
	}

	// Over-long input is a mismatch, not a decode failure.
	if ok, err := hasher.Verify(strings.Repeat("c", 65), hash); err != nil || ok {
		t.Fatalf("expected over-long password to mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestZeroPolicyUsesHardBounds(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("d", MaxLength+1)); !errors.Is(err, ErrLength) {
		t.Fatalf("expected ErrLength above %d bytes, got %v", MaxLength, err)
	}
	if _, err := hasher.Hash(strings.Repeat("e", MaxLength)); err != nil {
		t.Fatalf("expected %d bytes to be accepted: %v", MaxLength, err)
	}
	if _, err := hasher.Hash(strings.Repeat("f", MinLength-1)); !errors.Is(err, ErrLength) {
		t.Fatalf("expected ErrLength below %d bytes, got %v", MinLength, err)
	}
}
