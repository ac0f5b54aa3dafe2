package call

import (
	"context"
	"testing"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://api.census.gov/data/2022"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.Wait(ctx, "https://api.eia.gov/v2"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	url := "https://api.open.fec.gov/v1"
	if err := limiter.Wait(ctx, url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "https://www.fema.gov/api/open"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// burst 1 is consumed
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("https://api.usaspending.gov") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("https://api.va.gov") {
			t.Fatalf("request %d rejected by unlimited limiter", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)

	if err := limiter.SetHostRate("https://api.data.gov/ed/collegescorecard/v1", 0.1, 1); err != nil {
		t.Fatalf("SetHostRate: %v", err)
	}
	// a faster rate for the same host must not loosen the limit
	if err := limiter.SetHostRate("https://api.data.gov/other", 5, 5); err != nil {
		t.Fatalf("SetHostRate: %v", err)
	}

	if !limiter.Allow("https://api.data.gov/x") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("https://api.data.gov/y") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("https://api.congress.gov/v3") {
		t.Errorf("other host should pass")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("https://api.census.gov/data/2022/acs/acs5")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "api.census.gov" {
		t.Errorf("expected api.census.gov, got %s", host)
	}

	_, err = extractHost("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
