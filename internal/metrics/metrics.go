package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram slot.
type MetricID uint16

const (
	MetricLoginAttempt MetricID = iota
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginInFlight
	MetricInputRejected
	MetricRequestTokenFailure
	MetricValidateLoginFailure
	MetricCreateSessionFailure
	MetricResolveUserFailure
	MetricSessionPersisted
	MetricSessionPersistFailure
	MetricLogout
	MetricLogoutRemoteFailure
	MetricTicketIssued
	MetricTicketRejected
	MetricLoginLatency
	MetricIDCount
)

// HistBucketCount is the number of latency buckets, +Inf included.
const HistBucketCount = 8

const cacheLineSize = 64

// BucketBounds are the upper bounds of the first HistBucketCount-1 buckets.
var BucketBounds = [HistBucketCount - 1]time.Duration{
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

type histogram struct {
	buckets [HistBucketCount]uint64
	sumUS   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and the login latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// Sums holds histogram sums in seconds.
	Sums map[MetricID]float64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only MetricLoginLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricLoginLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[BucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumUS, uint64(d.Microseconds()))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Sums:       map[MetricID]float64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
		Sums:       make(map[MetricID]float64, 1),
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if id == MetricLoginLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[MetricLoginLatency]
		buckets := make([]uint64, HistBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
		s.Sums[MetricLoginLatency] = float64(atomic.LoadUint64(&h.sumUS)) / 1e6
	}

	return s
}

// BucketIndex returns the histogram slot for d.
func BucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return HistBucketCount - 1
}
