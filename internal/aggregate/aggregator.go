// Package aggregate runs the routed adapters for a story concurrently and
// merges their verdicts.
package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/policyvoice/corroborate/internal/adapters"
	"github.com/policyvoice/corroborate/internal/cache"
	"github.com/policyvoice/corroborate/internal/classify"
	"github.com/policyvoice/corroborate/internal/extract"
	"github.com/policyvoice/corroborate/internal/metrics"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// Options configures an Aggregator
type Options struct {
	Datasets        *cache.Datasets          // nil disables dataset memoization
	AdapterTimeout  time.Duration            // ceiling per adapter fetch, zero: none
	AdapterTimeouts map[string]time.Duration // per-adapter override of AdapterTimeout
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

// Aggregator verifies stories against every routed adapter
type Aggregator struct {
	registry *adapters.Registry
	router   *classify.Router
	weights  score.Weights
	datasets *cache.Datasets
	timeout  time.Duration
	timeouts map[string]time.Duration
	fetches  singleflight.Group
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates an Aggregator
func New(registry *adapters.Registry, router *classify.Router, weights score.Weights, opts Options) *Aggregator {
	a := &Aggregator{
		registry: registry,
		router:   router,
		weights:  weights,
		datasets: opts.Datasets,
		timeout:  opts.AdapterTimeout,
		timeouts: opts.AdapterTimeouts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Route returns the adapters a story would be verified against, with reasons
func (a *Aggregator) Route(story model.Story) []classify.Route {
	return a.router.Explain(extract.Prepare(story))
}

// Verify routes the story, fetches and scores every routed adapter
// concurrently and merges the records in invocation order. It never fails:
// upstream outages degrade to fallback data and adapter faults are recorded
// as skipped adapters.
func (a *Aggregator) Verify(ctx context.Context, story model.Story) model.AggregatedVerification {
	start := a.now()
	working := extract.Prepare(story)
	routed := a.router.Route(working)

	records := make([]model.VerificationRecord, len(routed))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range routed {
		i, name := i, name
		g.Go(func() error {
			records[i] = a.run(gctx, name, working)
			return nil
		})
	}
	_ = g.Wait()

	result := a.weights.Merge(story.ID, routed, records)
	result.CheckedAt = a.now().UTC()

	elapsed := a.now().Sub(start)
	a.metrics.Verifications.WithLabelValues(strconv.FormatBool(result.Verified)).Inc()
	a.metrics.VerificationSeconds.Observe(elapsed.Seconds())
	a.metrics.Confidence.Observe(float64(result.Confidence))

	a.logger.Info("story verified",
		zap.String("story_id", story.ID),
		zap.Strings("routed", routed),
		zap.Strings("fired", result.Fired),
		zap.Int("confidence", result.Confidence),
		zap.Bool("verified", result.Verified),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("elapsed", elapsed),
	)
	return result
}

// run fetches and scores one adapter. Panics become a skipped record.
func (a *Aggregator) run(ctx context.Context, name string, story model.Story) (rec model.VerificationRecord) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("adapter panicked",
				zap.String("adapter", name),
				zap.String("story_id", story.ID),
				zap.Any("panic", r),
			)
			rec = score.Failed(name, fmt.Sprintf("internal error: %v", r))
		}
	}()

	adapter, ok := a.registry.Get(name)
	if !ok {
		return score.Failed(name, "adapter is not registered")
	}
	if !adapter.IsRelevant(story.Text()) {
		return score.NotRelevant(name)
	}

	ds := a.dataset(ctx, adapter, story.Geography())
	return adapter.Score(story, ds)
}

// dataset returns the adapter's dataset for the geography, from the cache
// when possible. Concurrent identical fetches share one upstream call.
func (a *Aggregator) dataset(ctx context.Context, adapter adapters.Adapter, g model.Geography) model.SourceDataset {
	name := adapter.Name()
	if a.datasets != nil {
		if ds, ok := a.datasets.Get(name, g); ok {
			a.metrics.DatasetCache.WithLabelValues("hit").Inc()
			return ds
		}
		a.metrics.DatasetCache.WithLabelValues("miss").Inc()
	}

	v, _, _ := a.fetches.Do(cache.DatasetKey(name, g), func() (any, error) {
		fetchCtx := ctx
		if timeout := a.timeoutFor(name); timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		ds := adapter.Fetch(fetchCtx, g)
		if a.datasets != nil {
			if _, err := a.datasets.Put(ds); err != nil {
				a.logger.Warn("dataset cache write failed", zap.String("adapter", name), zap.Error(err))
			}
		}
		return ds, nil
	})
	return v.(model.SourceDataset)
}

func (a *Aggregator) timeoutFor(name string) time.Duration {
	if t, ok := a.timeouts[name]; ok {
		return t
	}
	return a.timeout
}
