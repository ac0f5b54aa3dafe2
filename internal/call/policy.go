package call

import (
	"time"

	"github.com/policyvoice/corroborate/internal/model"
)

// Policy configures timeouts and retries for one upstream
type Policy struct {
	// Timeout bounds a single attempt, including reading the body.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	// Default: 3
	MaxRetries int

	// BaseBackoff is the delay after the first failed attempt; it doubles per attempt.
	// Default: 2 seconds
	BaseBackoff time.Duration

	// MaxBackoff caps a single backoff delay.
	// Default: 30 seconds
	MaxBackoff time.Duration

	// RateLimitCooldown replaces the backoff after the first 429.
	// Default: 60 seconds
	RateLimitCooldown time.Duration
}

// DefaultPolicy returns the default call policy
func DefaultPolicy() Policy {
	return Policy{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		BaseBackoff:       2 * time.Second,
		MaxBackoff:        30 * time.Second,
		RateLimitCooldown: 60 * time.Second,
	}
}

// PolicyFromConfig builds a policy from retry settings and an optional per-source timeout
func PolicyFromConfig(retry model.RetryConfig, timeout time.Duration) Policy {
	p := Policy{
		Timeout:           timeout,
		MaxRetries:        retry.MaxRetries,
		BaseBackoff:       retry.BaseBackoff,
		MaxBackoff:        retry.MaxBackoff,
		RateLimitCooldown: retry.RateLimitCooldown,
	}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults sets default values for unset fields.
// A negative MaxRetries means no retries.
func (p *Policy) ApplyDefaults() {
	defaults := DefaultPolicy()

	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = defaults.MaxRetries
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = defaults.BaseBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaults.MaxBackoff
	}
	if p.RateLimitCooldown <= 0 {
		p.RateLimitCooldown = defaults.RateLimitCooldown
	}
}

// Backoff returns the delay after failed attempt n (0-based): BaseBackoff × 2^n, capped
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Ceiling returns the worst-case wall-clock time of one call:
// every attempt times out, every backoff is taken and one cooldown replaces a backoff.
func (p Policy) Ceiling() time.Duration {
	total := p.Timeout * time.Duration(1+p.MaxRetries)
	for i := 0; i < p.MaxRetries; i++ {
		total += p.Backoff(i)
	}
	if p.MaxRetries > 0 {
		total += p.RateLimitCooldown
	}
	return total
}
