package rate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func stores(t *testing.T, clock *testClock) map[string]Store {
	_, rdb := newTestRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(clock.Now),
		"redis":  NewRedisStore(rdb, "", clock.Now),
	}
}

func TestSlidingWindow(t *testing.T) {
	clock := newTestClock()
	for name, store := range stores(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "198.51.100.1:" + name

			for i := 0; i < 3; i++ {
				ok, err := store.CheckAndRecord(ctx, key, time.Minute, 3)
				if err != nil || !ok {
					t.Fatalf("request %d rejected: ok=%v err=%v", i, ok, err)
				}
				clock.Advance(10 * time.Second)
			}
			ok, err := store.CheckAndRecord(ctx, key, time.Minute, 3)
			if err != nil || ok {
				t.Fatalf("fourth request admitted: ok=%v err=%v", ok, err)
			}

			// The first hit ages out at exactly one window after it was made.
			clock.Advance(30 * time.Second)
			ok, err = store.CheckAndRecord(ctx, key, time.Minute, 3)
			if err != nil || !ok {
				t.Fatalf("request after first hit aged out rejected: ok=%v err=%v", ok, err)
			}
			ok, _ = store.CheckAndRecord(ctx, key, time.Minute, 3)
			if ok {
				t.Fatal("window slid too far")
			}
		})
	}
}

func TestRejectedRequestsAreNotRecorded(t *testing.T) {
	clock := newTestClock()
	for name, store := range stores(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "k:" + name
			_, _ = store.CheckAndRecord(ctx, key, time.Minute, 1)
			for i := 0; i < 5; i++ {
				clock.Advance(time.Second)
				_, _ = store.CheckAndRecord(ctx, key, time.Minute, 1)
			}
			clock.Advance(56 * time.Second)
			ok, err := store.CheckAndRecord(ctx, key, time.Minute, 1)
			if err != nil || !ok {
				t.Fatalf("rejections extended the window: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestInvalidWindow(t *testing.T) {
	clock := newTestClock()
	for name, store := range stores(t, clock) {
		if _, err := store.CheckAndRecord(context.Background(), "k", 0, 1); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("%s: expected ErrInvalidWindow, got %v", name, err)
		}
	}
}

func TestLimiterClassesAreIndependent(t *testing.T) {
	clock := newTestClock()
	l := New(NewMemoryStore(clock.Now), map[Class]Limit{
		ClassSignup: {Window: time.Hour, Max: 1},
		ClassResend: {Window: time.Hour, Max: 2},
	})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "203.0.113.5", ClassSignup); !ok {
		t.Fatal("first signup rejected")
	}
	if ok, _ := l.Allow(ctx, "203.0.113.5", ClassSignup); ok {
		t.Fatal("second signup admitted")
	}
	if ok, _ := l.Allow(ctx, "203.0.113.5", ClassResend); !ok {
		t.Fatal("resend shares the signup window")
	}
	if ok, _ := l.Allow(ctx, "203.0.113.6", ClassSignup); !ok {
		t.Fatal("other identity shares the window")
	}
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(ctx, "203.0.113.5", ClassLogin); !ok {
			t.Fatal("unconfigured class limited")
		}
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	if ok, err := l.Allow(context.Background(), "x", ClassSignup); !ok || err != nil {
		t.Fatalf("nil limiter: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreConcurrentCeiling(t *testing.T) {
	store := NewMemoryStore(nil)
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.CheckAndRecord(context.Background(), "hot", time.Hour, 10); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := admitted.Load(); got != 10 {
		t.Fatalf("expected exactly 10 admitted, got %d", got)
	}
}

func TestMemoryStoreSweepsIdleKeys(t *testing.T) {
	clock := newTestClock()
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()
	_, _ = store.CheckAndRecord(ctx, "idle", time.Second, 5)
	clock.Advance(2 * time.Minute)
	_, _ = store.CheckAndRecord(ctx, "busy", time.Hour, 5)
	if got := store.Len(); got != 1 {
		t.Fatalf("expected idle key swept, %d keys remain", got)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(rdb, "", nil)
	mr.Close()
	if _, err := store.CheckAndRecord(context.Background(), "k", time.Minute, 1); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
