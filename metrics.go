package goGate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricSignupAllowed counts signups admitted with an allow decision.
	MetricSignupAllowed MetricID = iota
	// MetricSignupWarned counts signups admitted with a warn decision.
	MetricSignupWarned
	// MetricSignupBlocked counts signups refused by risk scoring.
	MetricSignupBlocked
	// MetricSignupRateLimited counts signups refused by the rate limiter.
	MetricSignupRateLimited
	// MetricSignupInvalid counts signups rejected by input validation.
	MetricSignupInvalid
	// MetricSignupFailure counts signups that failed on a backend error.
	MetricSignupFailure
	// MetricVerificationCodeIssued counts verification codes issued.
	MetricVerificationCodeIssued
	// MetricVerificationSuccess counts successful code verifications.
	MetricVerificationSuccess
	// MetricVerificationFailure counts failed code verifications.
	MetricVerificationFailure
	// MetricVerificationExpired counts code verifications against an expired code.
	MetricVerificationExpired
	// MetricVerificationAttemptsExceeded counts code verifications after the attempt budget was spent.
	MetricVerificationAttemptsExceeded
	// MetricResendRequest counts resend requests.
	MetricResendRequest
	// MetricLoginSuccess counts successful authentications.
	MetricLoginSuccess
	// MetricLoginFailure counts failed authentications.
	MetricLoginFailure
	// MetricLoginLockedRejected counts authentications refused because the account is locked.
	MetricLoginLockedRejected
	// MetricAccountLocked counts lock transitions.
	MetricAccountLocked
	// MetricPasswordResetRequest counts password reset requests.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts completed password resets.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure counts failed password reset confirmations.
	MetricPasswordResetFailure
	// MetricAccountDeactivated counts deactivated accounts.
	MetricAccountDeactivated
	// MetricAccountUnlocked counts operator unlocks.
	MetricAccountUnlocked
	// MetricRateLimitHit counts rate-limit checks that denied a request.
	MetricRateLimitHit
	// MetricConcurrentUpdateRetry counts account writes retried after a version conflict.
	MetricConcurrentUpdateRetry
	// MetricMailerFailure counts mail deliveries reported as failed.
	MetricMailerFailure
	// MetricRiskAssessLatency buckets risk assessment latency.
	MetricRiskAssessLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters.
//
// Counters sit in cache-line padded slots so concurrent signups on
// different cores do not contend.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a disabled, zero-cost collector when cfg.Enabled is false.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only histogram IDs accept samples.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters, plus histograms when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRiskAssessLatency].buckets[i])
		}
		s.Histograms[MetricRiskAssessLatency] = buckets
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricRiskAssessLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
