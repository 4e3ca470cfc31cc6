package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/mailer"
	"github.com/MrEthical07/goGate/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password-1"

func main() {
	var (
		accounts    = flag.Int("accounts", 2000, "number of verified accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (authenticate + signup)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		loginMax    = flag.Int("login-max", 0, "login rate limit per window; 0 disables")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goGate.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit = goGate.RateLimitConfig{
		Login:       goGate.RateLimit{Window: time.Minute, Max: *loginMax},
		RedisPrefix: cfg.RateLimit.RedisPrefix,
	}
	cfg.Metrics.Enabled = true

	quiet := slog.New(slog.DiscardHandler)
	engine, err := goGate.New().
		WithConfig(cfg).
		WithRepository(memory.NewAccounts()).
		WithMailer(mailer.NewLogMailer(quiet)).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	emails := make([]string, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("seed-%d@load.example", i)
		_, err := engine.CreateTrustedAccount(ctx, goGate.TrustedAccountRequest{
			Email:    emails[i],
			Password: loadPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		reqCtx := goGate.WithClientIP(ctx, publicIP(i))
		_, err := engine.Authenticate(reqCtx, emails[r.Intn(len(emails))], loadPassword)
		return err
	})
	signupStats := runPhase(*ops, *concurrency, func(_ *rand.Rand, i int) error {
		_, err := engine.Signup(ctx, goGate.SignupRequest{
			Email:    fmt.Sprintf("new-%d@load.example", i),
			Password: loadPassword,
			IP:       publicIP(i),
		})
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("signup", signupStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("signup allowed=%d blocked=%d rate_limited=%d\n",
		snap.Counters[goGate.MetricSignupAllowed],
		snap.Counters[goGate.MetricSignupBlocked],
		snap.Counters[goGate.MetricSignupRateLimited],
	)
}

// runPhase drives ops calls of fn across concurrency workers and records
// per-call latency.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
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
				t0 := time.Now()
				err := fn(r, i)
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// publicIP spreads load over distinct routable addresses so IP reuse does
// not dominate the risk score.
func publicIP(i int) string {
	return fmt.Sprintf("8.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
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
