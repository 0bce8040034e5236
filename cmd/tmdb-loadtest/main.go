// Command tmdb-loadtest drives concurrent logins against an in-process fake
// TMDB and measures session lookups on the resulting store. Engine counters
// are read back through the OpenTelemetry exporter.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goTMDB "github.com/MrEthical07/goTMDB"
	otelexport "github.com/MrEthical07/goTMDB/metrics/export/otel"
	"github.com/MrEthical07/goTMDB/tmdb"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type options struct {
	logins      int
	lookups     int
	concurrency int
	latency     time.Duration
	redisAddr   string
	prefix      string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "tmdb-loadtest",
		Short:        "Measure login and session lookup throughput",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.logins, "logins", 5000, "number of logins to run")
	cmd.Flags().IntVar(&opts.lookups, "lookups", 100000, "number of session lookups to run")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.latency, "api-latency", 0, "delay added to each fake TMDB response")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "tmlt", "session key prefix")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.logins <= 0 || opts.lookups <= 0 || opts.concurrency <= 0 {
		return fmt.Errorf("logins, lookups, and concurrency must be > 0")
	}

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var client redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	api := httptest.NewServer(fakeTMDB(opts.latency))
	defer api.Close()

	cfg := goTMDB.DefaultConfig()
	cfg.TMDB.APIKey = "loadtest"
	cfg.TMDB.BaseURL = api.URL
	cfg.Session.RedisPrefix = opts.prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goTMDB.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	handles := make([]string, opts.logins)
	loginStats := runLoginPhase(ctx, engine, handles, opts.concurrency)
	lookupStats := runLookupPhase(ctx, engine, handles, opts.lookups, opts.concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("lookup", lookupStats)

	fmt.Println("---- engine metrics ----")
	return reportMetrics(ctx, os.Stdout, engine)
}

// reportMetrics collects the engine once through the OpenTelemetry exporter
// and prints every non-zero integer point, sorted by name.
func reportMetrics(ctx context.Context, w io.Writer, engine *goTMDB.Engine) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	exp, err := otelexport.NewExporter(provider.Meter("tmdb-loadtest"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	var lines []string
	add := func(name string, points []metricdata.DataPoint[int64]) {
		for _, dp := range points {
			if dp.Value == 0 {
				continue
			}
			label := name
			if le, ok := dp.Attributes.Value(attribute.Key("le")); ok {
				label = fmt.Sprintf("%s{le=%s}", name, le.AsString())
			}
			lines = append(lines, fmt.Sprintf("%s %d", label, dp.Value))
		}
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				add(m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				add(m.Name, data.DataPoints)
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// fakeTMDB answers the handshake endpoints with fixed payloads.
func fakeTMDB(delay time.Duration) http.Handler {
	var next atomic.Int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		switch r.URL.Path {
		case tmdb.EndpointRequestToken, tmdb.EndpointValidateLogin:
			_, _ = w.Write([]byte(`{"success":true,"request_token":"tok"}`))
		case tmdb.EndpointNewSession:
			_, _ = fmt.Fprintf(w, `{"success":true,"session_id":"sess-%d"}`, next.Add(1))
		case tmdb.EndpointAccount:
			_, _ = w.Write([]byte(`{"id":1,"username":"loadtest"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// runLoginPhase logs in len(handles) distinct users and records each handle.
func runLoginPhase(ctx context.Context, engine *goTMDB.Engine, handles []string, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(handles))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(handles) {
					return
				}
				t0 := time.Now()
				sess, err := engine.Login(ctx, fmt.Sprintf("user-%d", i), "pw")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					handles[i] = sess.Handle
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runLookupPhase(ctx context.Context, engine *goTMDB.Engine, handles []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				h := handles[r.Intn(len(handles))]
				t0 := time.Now()
				_, err := engine.SessionByHandle(ctx, h)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
