package goStudyAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricVerificationRequested counts verification messages handed to the dispatcher.
	MetricVerificationRequested MetricID = iota
	// MetricVerificationThrottled counts verification requests dropped by the channel throttle.
	MetricVerificationThrottled
	// MetricVerificationSuccess counts verification tokens that marked a channel verified.
	MetricVerificationSuccess
	// MetricVerificationFailure counts rejected verification tokens.
	MetricVerificationFailure
	// MetricPasswordResetRequest counts reset messages handed to the dispatcher.
	MetricPasswordResetRequest
	// MetricPasswordResetThrottled counts reset-related requests dropped by the channel throttle.
	MetricPasswordResetThrottled
	// MetricPasswordResetConfirmSuccess counts completed password resets.
	MetricPasswordResetConfirmSuccess
	// MetricPasswordResetConfirmFailure counts rejected password reset completions.
	MetricPasswordResetConfirmFailure
	// MetricAccountExistsNotified counts account-exists messages.
	MetricAccountExistsNotified
	// MetricSignInRequested counts channel sign-in messages handed to the dispatcher.
	MetricSignInRequested
	// MetricSignInThrottled counts channel sign-in requests dropped by the channel throttle.
	MetricSignInThrottled
	// MetricChannelSignInSuccess counts successful sign-ins with an email or phone token.
	MetricChannelSignInSuccess
	// MetricChannelSignInFailure counts rejected email or phone sign-in tokens.
	MetricChannelSignInFailure
	// MetricPasswordSignInSuccess counts successful password sign-ins.
	MetricPasswordSignInSuccess
	// MetricPasswordSignInFailure counts failed password sign-ins.
	MetricPasswordSignInFailure
	// MetricPasswordSignInRateLimited counts password sign-ins refused by the failure limiter.
	MetricPasswordSignInRateLimited
	// MetricReauthSuccess counts successful reauthentications.
	MetricReauthSuccess
	// MetricReauthFailure counts rejected reauthentication tokens.
	MetricReauthFailure
	// MetricSignUpSuccess counts created accounts.
	MetricSignUpSuccess
	// MetricSignUpExisting counts sign-ups that hit an existing account.
	MetricSignUpExisting
	// MetricSignOut counts sign-outs.
	MetricSignOut
	// MetricSessionAssembled counts persisted sessions.
	MetricSessionAssembled
	// MetricConsentRequired counts sessions returned with consent outstanding.
	MetricConsentRequired
	// MetricSessionAssemblyLatency is the latency histogram of session assembly.
	MetricSessionAssemblyLatency
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

// Metrics holds lock-free engine counters. A nil or disabled Metrics
// ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms holds
// per-bucket (non-cumulative) counts in HistogramBounds order.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
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

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only histogram ids are accepted.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSessionAssemblyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histograms when enabled.
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
		if id == MetricSessionAssemblyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSessionAssemblyLatency].buckets[i])
		}
		s.Histograms[MetricSessionAssemblyLatency] = buckets
	}

	return s
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
