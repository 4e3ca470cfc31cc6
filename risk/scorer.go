package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/fingerprint"
)

// Action is the decision attached to an assessment.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Severity grades an assessment within its action band.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityHigh     Severity = "high"
	SeverityElevated Severity = "elevated"
	SeverityCritical Severity = "critical"
)

const (
	MessageBlockHard = "Account creation is not available for this request."
	MessageBlockSoft = "Too many accounts were created recently. Please try again later."
)

// Indicator is one fired abuse signal.
type Indicator struct {
	Name   string
	Points int
}

// Assessment is the transient result of scoring one signup attempt.
type Assessment struct {
	Indicators []Indicator
	Score      int
	Action     Action
	Severity   Severity
	// Message is the caller-facing text for block decisions. It never
	// names an indicator.
	Message string
}

// IndicatorNames returns the fired indicator names in evaluation order.
func (a Assessment) IndicatorNames() []string {
	names := make([]string, len(a.Indicators))
	for i, ind := range a.Indicators {
		names[i] = ind.Name
	}
	return names
}

// AccountLookup is the read side of account.Repository used for scoring.
type AccountLookup interface {
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	FindEmailVariants(ctx context.Context, normalized string) ([]account.Account, error)
	FindBySignupIP(ctx context.Context, ip string, since time.Time) ([]account.Account, error)
	FindByDeviceFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]account.Account, error)
}

// VolumeCounter reports global successful signups since a point in time.
type VolumeCounter interface {
	CountSuccessfulSince(ctx context.Context, since time.Time) (int, error)
}

// Scorer evaluates signup attempts. It is safe for concurrent use.
type Scorer struct {
	cfg        Config
	accounts   AccountLookup
	volume     VolumeCounter
	disposable denylist
	now        func() time.Time
}

// NewScorer builds a scorer. volume may be nil, which disables the volume
// indicator. now defaults to time.Now.
func NewScorer(cfg Config, accounts AccountLookup, volume VolumeCounter, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{
		cfg:        cfg,
		accounts:   accounts,
		volume:     volume,
		disposable: newDenylist(cfg.ExtraDisposableDomains),
		now:        now,
	}
}

// Assess scores a signup for email arriving from ip with the given device
// fingerprint. Every indicator is evaluated; a lookup failure aborts the
// assessment with an error.
func (s *Scorer) Assess(ctx context.Context, email, ip, deviceFingerprint string) (Assessment, error) {
	var out Assessment
	add := func(name string, points int) {
		out.Indicators = append(out.Indicators, Indicator{Name: name, Points: points})
		out.Score += points
	}

	email = strings.ToLower(strings.TrimSpace(email))
	since := s.now().Add(-s.cfg.CooldownWindow)
	ipInfo := fingerprint.Classify(ip)

	if s.disposable.contains(Domain(email)) {
		add("disposable_email", s.cfg.DisposableEmailWeight)
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		add("email_already_exists", s.cfg.EmailExistsWeight)
	case err != nil && !errors.Is(err, account.ErrNotFound):
		return Assessment{}, fmt.Errorf("risk: email lookup: %w", err)
	}

	variants, err := s.similarEmails(ctx, email)
	if err != nil {
		return Assessment{}, err
	}
	if variants > 0 {
		add(fmt.Sprintf("similar_emails_found_%d", variants), s.cfg.SimilarEmailWeight*variants)
	}

	if ipInfo.Valid {
		prior, err := s.accounts.FindBySignupIP(ctx, ip, since)
		if err != nil {
			return Assessment{}, fmt.Errorf("risk: ip lookup: %w", err)
		}
		if n := s.capReuse(len(prior)); n > 0 {
			add(fmt.Sprintf("ip_recently_used_%d_times", n), s.cfg.IPReuseWeight*n)
		}
	}

	if deviceFingerprint != "" {
		prior, err := s.accounts.FindByDeviceFingerprint(ctx, deviceFingerprint, since)
		if err != nil {
			return Assessment{}, fmt.Errorf("risk: device lookup: %w", err)
		}
		if n := s.capReuse(len(prior)); n > 0 {
			add(fmt.Sprintf("device_recently_used_%d_times", n), s.cfg.DeviceReuseWeight*n)
		}
	}

	if ipInfo.Loopback {
		add("localhost_ip", s.cfg.LoopbackIPWeight)
	}

	if s.volume != nil {
		count, err := s.volume.CountSuccessfulSince(ctx, since)
		if err != nil {
			return Assessment{}, fmt.Errorf("risk: volume lookup: %w", err)
		}
		if count > s.cfg.VolumeThreshold {
			add("high_signup_volume", s.cfg.HighVolumeWeight)
		}
	}

	if ipInfo.Suspicious() {
		add("suspicious_ip", s.cfg.SuspiciousIPWeight)
	}

	out.Action, out.Severity, out.Message = s.cfg.Decide(out.Score)
	return out, nil
}

// similarEmails counts distinct stored addresses, other than email itself,
// whose canonical local part begins with that of email in the same domain.
// Local parts shorter than minVariantPrefix only match exactly.
func (s *Scorer) similarEmails(ctx context.Context, email string) (int, error) {
	normalized := NormalizeEmail(email)
	matches, err := s.accounts.FindEmailVariants(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("risk: alias lookup: %w", err)
	}
	exactOnly := strings.IndexByte(normalized, '@') < minVariantPrefix
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		stored := strings.ToLower(m.Email)
		if stored == email || (exactOnly && m.NormalizedEmail != normalized) {
			continue
		}
		seen[stored] = struct{}{}
	}
	return len(seen), nil
}

const minVariantPrefix = 3

func (s *Scorer) capReuse(n int) int {
	if s.cfg.ReuseCap > 0 && n > s.cfg.ReuseCap {
		return s.cfg.ReuseCap
	}
	return n
}

// Decide maps a score onto an action, severity and caller-facing message.
// Bands are inclusive at their lower bound and evaluated high to low.
func (c Config) Decide(score int) (Action, Severity, string) {
	switch {
	case score >= c.BlockHardThreshold:
		return ActionBlock, SeverityCritical, MessageBlockHard
	case score >= c.BlockSoftThreshold:
		return ActionBlock, SeverityElevated, MessageBlockSoft
	case score >= c.WarnHighThreshold:
		return ActionWarn, SeverityHigh, ""
	case score >= c.WarnLowThreshold:
		return ActionWarn, SeverityLow, ""
	default:
		return ActionAllow, SeverityNone, ""
	}
}
