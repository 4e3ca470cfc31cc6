package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricSignupAllowed, Name: "gogate_signup_allowed_total", Help: "Signups admitted with an allow decision."},
	{ID: goGate.MetricSignupWarned, Name: "gogate_signup_warned_total", Help: "Signups admitted with a warn decision."},
	{ID: goGate.MetricSignupBlocked, Name: "gogate_signup_blocked_total", Help: "Signups refused by risk scoring."},
	{ID: goGate.MetricSignupRateLimited, Name: "gogate_signup_rate_limited_total", Help: "Signups refused by the rate limiter."},
	{ID: goGate.MetricSignupInvalid, Name: "gogate_signup_invalid_total", Help: "Signups rejected by input validation."},
	{ID: goGate.MetricSignupFailure, Name: "gogate_signup_failure_total", Help: "Signups that failed on a backend error."},
	{ID: goGate.MetricVerificationCodeIssued, Name: "gogate_verification_code_issued_total", Help: "Verification codes issued."},
	{ID: goGate.MetricVerificationSuccess, Name: "gogate_verification_success_total", Help: "Successful code verifications."},
	{ID: goGate.MetricVerificationFailure, Name: "gogate_verification_failure_total", Help: "Failed code verifications."},
	{ID: goGate.MetricVerificationExpired, Name: "gogate_verification_expired_total", Help: "Code verifications against an expired code."},
	{ID: goGate.MetricVerificationAttemptsExceeded, Name: "gogate_verification_attempts_exceeded_total", Help: "Code verifications after the attempt budget was spent."},
	{ID: goGate.MetricResendRequest, Name: "gogate_resend_request_total", Help: "Verification code resend requests."},
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful authentications."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Failed authentications."},
	{ID: goGate.MetricLoginLockedRejected, Name: "gogate_login_locked_rejected_total", Help: "Authentications refused because the account is locked."},
	{ID: goGate.MetricAccountLocked, Name: "gogate_account_locked_total", Help: "Account lock transitions."},
	{ID: goGate.MetricPasswordResetRequest, Name: "gogate_password_reset_request_total", Help: "Password reset requests."},
	{ID: goGate.MetricPasswordResetSuccess, Name: "gogate_password_reset_success_total", Help: "Completed password resets."},
	{ID: goGate.MetricPasswordResetFailure, Name: "gogate_password_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: goGate.MetricAccountDeactivated, Name: "gogate_account_deactivated_total", Help: "Deactivated accounts."},
	{ID: goGate.MetricAccountUnlocked, Name: "gogate_account_unlocked_total", Help: "Operator unlocks."},
	{ID: goGate.MetricRateLimitHit, Name: "gogate_rate_limit_hit_total", Help: "Rate-limit checks that denied a request."},
	{ID: goGate.MetricConcurrentUpdateRetry, Name: "gogate_concurrent_update_retry_total", Help: "Account writes retried after a version conflict."},
	{ID: goGate.MetricMailerFailure, Name: "gogate_mailer_failure_total", Help: "Mail deliveries reported as failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricRiskAssessLatency, Name: "gogate_risk_assess_latency_seconds", Help: "Risk assessment latency."},
}

// AuditDroppedName is the counter for events lost to dispatcher backpressure.
const (
	AuditDroppedName = "gogate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the bucket upper bounds in seconds, matching the
// engine's millisecond buckets. The last bucket is +Inf and is not listed.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
