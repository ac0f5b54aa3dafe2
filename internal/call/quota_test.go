package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRollingWindow_ExhaustsAndRecovers(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	w := NewRollingWindow(3, time.Hour).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		ok, err := w.Allow(ctx)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
		clock.Advance(10 * time.Minute)
	}

	if ok, _ := w.Allow(ctx); ok {
		t.Fatal("expected fourth request in window to be rejected")
	}
	if rem, _ := w.Remaining(ctx); rem != 0 {
		t.Errorf("Remaining = %d, want 0", rem)
	}

	// first stamp (12:00) leaves the window at 13:00
	clock.Advance(30 * time.Minute)
	if rem, _ := w.Remaining(ctx); rem != 1 {
		t.Errorf("Remaining after prune = %d, want 1", rem)
	}
	if ok, _ := w.Allow(ctx); !ok {
		t.Error("expected request to be allowed after oldest entry expired")
	}
}

func TestRollingWindow_RejectedNotRecorded(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	w := NewRollingWindow(1, time.Minute).WithClock(clock.Now)

	_, _ = w.Allow(ctx)
	for i := 0; i < 5; i++ {
		if ok, _ := w.Allow(ctx); ok {
			t.Fatal("expected rejection")
		}
	}

	clock.Advance(61 * time.Second)
	if rem, _ := w.Remaining(ctx); rem != 1 {
		t.Errorf("Remaining = %d, want 1 (rejections must not consume budget)", rem)
	}
}

func TestRollingWindow_Reset(t *testing.T) {
	ctx := context.Background()
	w := NewRollingWindow(2, time.Hour)
	_, _ = w.Allow(ctx)
	_, _ = w.Allow(ctx)

	if err := w.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if rem, _ := w.Remaining(ctx); rem != 2 {
		t.Errorf("Remaining after reset = %d, want 2", rem)
	}
}

func TestRollingWindow_ConcurrentAllow(t *testing.T) {
	ctx := context.Background()
	w := NewRollingWindow(50, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := w.Allow(ctx); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent requests, want exactly 50", allowed)
	}
}

func TestQuotaRegistry_SharedAccount(t *testing.T) {
	ctx := context.Background()
	reg := NewQuotaRegistry()
	reg.Register("api.data.gov", NewRollingWindow(2, time.Hour))

	fec := reg.Get("api.data.gov")
	congress := reg.Get("api.data.gov")

	_, _ = fec.Allow(ctx)
	_, _ = congress.Allow(ctx)
	if ok, _ := fec.Allow(ctx); ok {
		t.Error("expected shared budget to be exhausted across sources")
	}

	if reg.Get("") != nil || reg.Get("unknown") != nil {
		t.Error("expected unmetered accounts to return nil")
	}

	var nilReg *QuotaRegistry
	if nilReg.Get("api.data.gov") != nil {
		t.Error("nil registry must be unmetered")
	}

	if err := reg.ResetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if rem, _ := fec.Remaining(ctx); rem != 2 {
		t.Errorf("Remaining after ResetAll = %d, want 2", rem)
	}
}

func TestRedisWindow_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = client.Close() }()

	w := NewRedisWindow(client, "corroborate:quota:test", 1, time.Hour)
	ok, err := w.Allow(context.Background())
	if err == nil {
		t.Error("expected Allow to report the redis error")
	}
	if !ok {
		t.Error("expected unreachable redis to fail open")
	}

	if _, err := w.Remaining(context.Background()); err == nil {
		t.Error("expected Remaining to report the redis error")
	}
}
