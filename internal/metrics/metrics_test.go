package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := New(Config{})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Second)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	s := m.Snapshot()
	if len(s.Counters) != 0 || len(s.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", s)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginAttempt)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginAttempt); got != 16000 {
		t.Fatalf("expected 16000, got %d", got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricLoginLatency, 50*time.Millisecond)
	m.Observe(MetricLoginLatency, 700*time.Millisecond)
	m.Observe(MetricLoginLatency, time.Minute)
	m.Observe(MetricLoginSuccess, time.Second)

	s := m.Snapshot()
	buckets := s.Histograms[MetricLoginLatency]
	if len(buckets) != HistBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[HistBucketCount-1] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if got := s.Sums[MetricLoginLatency]; got < 60.7 || got > 60.8 {
		t.Fatalf("unexpected sum %f", got)
	}
	if _, ok := s.Counters[MetricLoginLatency]; ok {
		t.Fatal("latency id should not appear as a counter")
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := map[time.Duration]int{
		0:                      0,
		100 * time.Millisecond: 0,
		101 * time.Millisecond: 1,
		time.Second:            3,
		10 * time.Second:       6,
		11 * time.Second:       7,
	}
	for d, want := range cases {
		if got := BucketIndex(d); got != want {
			t.Fatalf("BucketIndex(%v) = %d, want %d", d, got, want)
		}
	}
}
