package jam

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricJWTIssued counts tokens produced by CreateJWT.
	MetricJWTIssued MetricID = iota
	// MetricJWTVerified counts tokens accepted by VerifyJWT.
	MetricJWTVerified
	// MetricJWTRejected counts tokens rejected for format, algorithm or signature.
	MetricJWTRejected
	// MetricJWTExpired counts verified tokens past their exp claim.
	MetricJWTExpired
	// MetricJWTListed counts tokens rejected by the black or white list.
	MetricJWTListed
	// MetricPASETOIssued counts tokens produced by CreatePASETO.
	MetricPASETOIssued
	// MetricPASETOVerified counts tokens accepted by VerifyPASETO.
	MetricPASETOVerified
	// MetricPASETORejected counts tokens that failed to decode.
	MetricPASETORejected
	// MetricPASETOExpired counts decoded tokens past their exp claim.
	MetricPASETOExpired
	// MetricSessionCreated counts created sessions.
	MetricSessionCreated
	// MetricSessionHit counts successful session reads.
	MetricSessionHit
	// MetricSessionMiss counts reads of unknown or expired sessions.
	MetricSessionMiss
	// MetricSessionUpdated counts session updates.
	MetricSessionUpdated
	// MetricSessionDeleted counts session deletions.
	MetricSessionDeleted
	// MetricSessionReworked counts session ID rotations.
	MetricSessionReworked
	// MetricSessionCleared counts Clear calls.
	MetricSessionCleared
	// MetricOTPSuccess counts accepted OTP codes.
	MetricOTPSuccess
	// MetricOTPFailure counts rejected OTP codes.
	MetricOTPFailure
	// MetricOAuth2Success counts successful token endpoint calls.
	MetricOAuth2Success
	// MetricOAuth2Failure counts failed token endpoint calls.
	MetricOAuth2Failure
	// MetricVerifyLatency is the latency histogram for VerifyJWT and VerifyPASETO.
	MetricVerifyLatency
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

// Metrics holds lock-free counters and one latency histogram. A nil or
// disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets are
// non-cumulative with upper bounds 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms
// and +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics from cfg.
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

// LatencyEnabled reports whether the latency histogram is recorded.
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

// Observe records d in the histogram of id. Only MetricVerifyLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
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

// Snapshot copies every counter. Disabled metrics return empty maps.
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
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
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
