package call

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Quota is a rolling request budget for one upstream account
type Quota interface {
	// Allow records one request and reports whether it fits in the window.
	// A rejected request is not recorded.
	Allow(ctx context.Context) (bool, error)

	// Remaining returns how many requests fit in the current window
	Remaining(ctx context.Context) (int, error)

	// Reset forgets all recorded requests
	Reset(ctx context.Context) error
}

// RollingWindow is an in-process Quota.
// Timestamps older than the window are pruned before every capacity check.
type RollingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	stamp []time.Time // ascending
}

// NewRollingWindow creates a window allowing limit requests per window
func NewRollingWindow(limit int, window time.Duration) *RollingWindow {
	return &RollingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// WithClock replaces the time source (tests)
func (w *RollingWindow) WithClock(now func() time.Time) *RollingWindow {
	w.now = now
	return w
}

func (w *RollingWindow) Allow(_ context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.stamp) >= w.limit {
		return false, nil
	}
	w.stamp = append(w.stamp, now)
	return true, nil
}

func (w *RollingWindow) Remaining(_ context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(w.now())
	return w.limit - len(w.stamp), nil
}

func (w *RollingWindow) Reset(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stamp = nil
	return nil
}

// prune drops timestamps at or before now-window. Caller holds mu.
func (w *RollingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := sort.Search(len(w.stamp), func(i int) bool {
		return w.stamp[i].After(cutoff)
	})
	if i > 0 {
		w.stamp = append(w.stamp[:0], w.stamp[i:]...)
	}
}

// QuotaRegistry holds one Quota per upstream account so that every adapter
// calling the same account draws from the same budget.
type QuotaRegistry struct {
	mu     sync.RWMutex
	quotas map[string]Quota
}

// NewQuotaRegistry creates an empty registry
func NewQuotaRegistry() *QuotaRegistry {
	return &QuotaRegistry{quotas: make(map[string]Quota)}
}

// Register sets the quota for an account, replacing any previous one
func (r *QuotaRegistry) Register(account string, q Quota) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotas[account] = q
}

// Get returns the quota for an account. Unknown or empty accounts are unmetered (nil).
func (r *QuotaRegistry) Get(account string) Quota {
	if r == nil || account == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.quotas[account]
}

// Accounts returns registered account names, sorted
func (r *QuotaRegistry) Accounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.quotas))
	for name := range r.quotas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetAll resets every registered quota
func (r *QuotaRegistry) ResetAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.quotas {
		if err := q.Reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
