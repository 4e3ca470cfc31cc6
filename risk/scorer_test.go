package risk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/account"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fakeLookup struct {
	accounts []account.Account
	err      error
}

func (f *fakeLookup) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.accounts {
		if strings.EqualFold(f.accounts[i].Email, email) {
			a := f.accounts[i]
			return &a, nil
		}
	}
	return nil, account.ErrNotFound
}

func (f *fakeLookup) FindEmailVariants(_ context.Context, normalized string) ([]account.Account, error) {
	var out []account.Account
	for _, a := range f.accounts {
		if account.IsEmailVariant(a.NormalizedEmail, normalized) {
			out = append(out, a)
		}
	}
	return out, f.err
}

func (f *fakeLookup) FindBySignupIP(_ context.Context, ip string, since time.Time) ([]account.Account, error) {
	var out []account.Account
	for _, a := range f.accounts {
		if a.SignupIP == ip && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, f.err
}

func (f *fakeLookup) FindByDeviceFingerprint(_ context.Context, fp string, since time.Time) ([]account.Account, error) {
	var out []account.Account
	for _, a := range f.accounts {
		if a.DeviceFingerprint == fp && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, f.err
}

type fixedVolume int

func (v fixedVolume) CountSuccessfulSince(context.Context, time.Time) (int, error) {
	return int(v), nil
}

func stored(email, ip, fp string, age time.Duration) account.Account {
	return account.Account{
		Email:             email,
		NormalizedEmail:   NormalizeEmail(email),
		SignupIP:          ip,
		DeviceFingerprint: fp,
		CreatedAt:         now.Add(-age),
	}
}

func newTestScorer(accounts []account.Account, volume VolumeCounter) *Scorer {
	return NewScorer(DefaultConfig(), &fakeLookup{accounts: accounts}, volume, func() time.Time { return now })
}

func hasIndicator(a Assessment, name string) bool {
	for _, n := range a.IndicatorNames() {
		if n == name {
			return true
		}
	}
	return false
}

func TestDecideBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		score    int
		action   Action
		severity Severity
	}{
		{0, ActionAllow, SeverityNone},
		{49, ActionAllow, SeverityNone},
		{50, ActionWarn, SeverityLow},
		{74, ActionWarn, SeverityLow},
		{75, ActionWarn, SeverityHigh},
		{99, ActionWarn, SeverityHigh},
		{100, ActionBlock, SeverityElevated},
		{149, ActionBlock, SeverityElevated},
		{150, ActionBlock, SeverityCritical},
		{400, ActionBlock, SeverityCritical},
	}
	for _, tc := range cases {
		action, severity, msg := cfg.Decide(tc.score)
		if action != tc.action || severity != tc.severity {
			t.Fatalf("Decide(%d) = %s/%s, want %s/%s", tc.score, action, severity, tc.action, tc.severity)
		}
		if action == ActionBlock && msg == "" {
			t.Fatalf("Decide(%d) returned block without message", tc.score)
		}
	}
	if _, _, msg := cfg.Decide(100); msg != MessageBlockSoft {
		t.Fatalf("expected soft message at 100, got %q", msg)
	}
	if _, _, msg := cfg.Decide(150); msg != MessageBlockHard {
		t.Fatalf("expected hard message at 150, got %q", msg)
	}
}

func TestNormalizeEmail(t *testing.T) {
	same := [][2]string{
		{"user+test@gmail.com", "user@gmail.com"},
		{"user.name@gmail.com", "username@gmail.com"},
		{"User.Name+promo@GoogleMail.com", "username@googlemail.com"},
	}
	for _, pair := range same {
		if NormalizeEmail(pair[0]) != NormalizeEmail(pair[1]) {
			t.Fatalf("%q and %q should normalize identically: %q vs %q",
				pair[0], pair[1], NormalizeEmail(pair[0]), NormalizeEmail(pair[1]))
		}
	}
	if got := NormalizeEmail("user+a@outlook.com"); got != "user@outlook.com" {
		t.Fatalf("plus tag not stripped: %q", got)
	}
	if NormalizeEmail("user.name@outlook.com") == NormalizeEmail("username@outlook.com") {
		t.Fatal("non-gmail domains must not dot-fold")
	}
	if !account.IsEmailVariant(NormalizeEmail("usertest@gmail.com"), NormalizeEmail("user+test@gmail.com")) {
		t.Fatal("usertest@gmail.com should be a variant of user+test@gmail.com")
	}
	if account.IsEmailVariant(NormalizeEmail("user@gmail.com"), NormalizeEmail("usertest@gmail.com")) {
		t.Fatal("variant match must not run from shorter stored local parts")
	}
}

func TestUserTestAliasCollapses(t *testing.T) {
	if got := NormalizeEmail("user+test@gmail.com"); got != "user@gmail.com" {
		t.Fatalf("expected user@gmail.com, got %q", got)
	}
}

func TestDisposableFromFreshIPWarns(t *testing.T) {
	s := newTestScorer(nil, fixedVolume(0))
	a, err := s.Assess(context.Background(), "a@mailinator.com", "203.0.113.10", "fp-fresh")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score < 75 || a.Action != ActionWarn {
		t.Fatalf("expected warn with score >= 75, got %d %s", a.Score, a.Action)
	}
	if !hasIndicator(a, "disposable_email") {
		t.Fatalf("missing disposable indicator: %v", a.IndicatorNames())
	}
	if a.Message != "" {
		t.Fatalf("warn carries no message, got %q", a.Message)
	}
}

func TestDisposableMatchesSubdomainsAndExtras(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraDisposableDomains = []string{"Burner.Example"}
	s := NewScorer(cfg, &fakeLookup{}, nil, func() time.Time { return now })

	for _, email := range []string{"x@eu.mailinator.com", "x@burner.example"} {
		a, err := s.Assess(context.Background(), email, "203.0.113.10", "")
		if err != nil {
			t.Fatalf("Assess: %v", err)
		}
		if !hasIndicator(a, "disposable_email") {
			t.Fatalf("%s not flagged disposable", email)
		}
	}
}

func TestIPReuseTwoPriorBlocks(t *testing.T) {
	prior := []account.Account{
		stored("one@real.com", "198.51.100.4", "", 2*24*time.Hour),
		stored("two@real.com", "198.51.100.4", "", 10*24*time.Hour),
	}
	s := newTestScorer(prior, fixedVolume(0))
	a, err := s.Assess(context.Background(), "b@real.com", "198.51.100.4", "")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score < 100 || a.Action != ActionBlock {
		t.Fatalf("expected block with score >= 100, got %d %s", a.Score, a.Action)
	}
	if !hasIndicator(a, "ip_recently_used_2_times") {
		t.Fatalf("missing ip indicator: %v", a.IndicatorNames())
	}
}

func TestIPReuseThreePriorScoresHardBlock(t *testing.T) {
	var prior []account.Account
	for i := 0; i < 3; i++ {
		prior = append(prior, stored("p"+string(rune('a'+i))+"@real.com", "198.51.100.4", "", time.Hour))
	}
	s := newTestScorer(prior, nil)
	a, err := s.Assess(context.Background(), "c@real.com", "198.51.100.4", "")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score < 150 || a.Action != ActionBlock || a.Severity != SeverityCritical {
		t.Fatalf("expected hard block, got %d %s %s", a.Score, a.Action, a.Severity)
	}
}

func TestReuseOutsideCooldownIgnored(t *testing.T) {
	prior := []account.Account{stored("old@real.com", "198.51.100.4", "fp1", 31*24*time.Hour)}
	s := newTestScorer(prior, nil)
	a, err := s.Assess(context.Background(), "new@real.com", "198.51.100.4", "fp1")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 0 || a.Action != ActionAllow {
		t.Fatalf("expected clean allow, got %d %v", a.Score, a.IndicatorNames())
	}
}

func TestReuseCap(t *testing.T) {
	var prior []account.Account
	for i := 0; i < 6; i++ {
		prior = append(prior, stored("d"+string(rune('a'+i))+"@real.com", "", "fp-shared", time.Hour))
	}
	cfg := DefaultConfig()
	cfg.ReuseCap = 2
	s := NewScorer(cfg, &fakeLookup{accounts: prior}, nil, func() time.Time { return now })
	a, err := s.Assess(context.Background(), "e@real.com", "203.0.113.10", "fp-shared")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 60 {
		t.Fatalf("expected capped device score 60, got %d", a.Score)
	}
}

func TestEmailCollisionAndVariants(t *testing.T) {
	prior := []account.Account{
		stored("user@gmail.com", "", "", time.Hour),
		stored("u.ser+x@gmail.com", "", "", time.Hour),
		stored("us.er@gmail.com", "", "", time.Hour),
	}
	s := newTestScorer(prior, nil)
	a, err := s.Assess(context.Background(), "USER@gmail.com", "203.0.113.10", "")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !hasIndicator(a, "email_already_exists") || !hasIndicator(a, "similar_emails_found_2") {
		t.Fatalf("unexpected indicators: %v", a.IndicatorNames())
	}
	if a.Score != 200 {
		t.Fatalf("expected 100 + 2*50 = 200, got %d", a.Score)
	}
}

func TestTaggedAddressMatchesConcatenatedVariant(t *testing.T) {
	s := newTestScorer([]account.Account{stored("usertest@gmail.com", "", "", time.Hour)}, nil)
	a, err := s.Assess(context.Background(), "user+test@gmail.com", "203.0.113.10", "")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !hasIndicator(a, "similar_emails_found_1") {
		t.Fatalf("unexpected indicators: %v", a.IndicatorNames())
	}
	if a.Score != 50 {
		t.Fatalf("expected 50, got %d", a.Score)
	}
}

func TestShortLocalPartMatchesExactly(t *testing.T) {
	s := newTestScorer([]account.Account{stored("ab.c@gmail.com", "", "", time.Hour)}, nil)
	a, err := s.Assess(context.Background(), "ab@gmail.com", "203.0.113.10", "")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 0 {
		t.Fatalf("expected no variant for short local part, got %v", a.IndicatorNames())
	}
}

func TestNetworkIndicators(t *testing.T) {
	s := newTestScorer(nil, nil)
	cases := []struct {
		ip    string
		score int
		name  string
	}{
		{"127.0.0.1", 5, "localhost_ip"},
		{"::1", 5, "localhost_ip"},
		{"10.0.0.8", 30, "suspicious_ip"},
		{"garbage", 30, "suspicious_ip"},
		{"unknown", 30, "suspicious_ip"},
		{"203.0.113.10", 0, ""},
	}
	for _, tc := range cases {
		a, err := s.Assess(context.Background(), "n@real.com", tc.ip, "")
		if err != nil {
			t.Fatalf("Assess(%s): %v", tc.ip, err)
		}
		if a.Score != tc.score {
			t.Fatalf("Assess(%s) score = %d, want %d (%v)", tc.ip, a.Score, tc.score, a.IndicatorNames())
		}
		if tc.name != "" && !hasIndicator(a, tc.name) {
			t.Fatalf("Assess(%s) missing %s", tc.ip, tc.name)
		}
	}
}

func TestVolumeThresholdIsExclusive(t *testing.T) {
	at := newTestScorer(nil, fixedVolume(50))
	a, _ := at.Assess(context.Background(), "v@real.com", "203.0.113.10", "")
	if hasIndicator(a, "high_signup_volume") {
		t.Fatal("volume indicator fired at threshold")
	}
	over := newTestScorer(nil, fixedVolume(51))
	a, _ = over.Assess(context.Background(), "v@real.com", "203.0.113.10", "")
	if !hasIndicator(a, "high_signup_volume") || a.Score != 20 {
		t.Fatalf("expected volume indicator worth 20, got %d %v", a.Score, a.IndicatorNames())
	}
}

func TestScoreMonotonicAsIndicatorsFire(t *testing.T) {
	prior := []account.Account{stored("m@real.com", "198.51.100.9", "fp-m", time.Hour)}
	s := newTestScorer(prior, fixedVolume(100))

	steps := []struct{ email, ip, fp string }{
		{"fresh@real.com", "203.0.113.10", ""},
		{"fresh@mailinator.com", "203.0.113.10", ""},
		{"fresh@mailinator.com", "198.51.100.9", ""},
		{"fresh@mailinator.com", "198.51.100.9", "fp-m"},
	}
	last := -1
	for _, st := range steps {
		a, err := s.Assess(context.Background(), st.email, st.ip, st.fp)
		if err != nil {
			t.Fatalf("Assess: %v", err)
		}
		if a.Score < last {
			t.Fatalf("score decreased from %d to %d", last, a.Score)
		}
		last = a.Score
	}
}

func TestLookupErrorAborts(t *testing.T) {
	boom := errors.New("db down")
	s := NewScorer(DefaultConfig(), &fakeLookup{err: boom}, nil, func() time.Time { return now })
	if _, err := s.Assess(context.Background(), "x@real.com", "203.0.113.10", ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.WarnHighThreshold = cfg.BlockSoftThreshold
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlapping thresholds")
	}
}
