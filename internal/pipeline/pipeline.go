// Package pipeline assembles the verification service from configuration:
// outbound callers, quotas, adapters, routing and the aggregator.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/adapters"
	"github.com/policyvoice/corroborate/internal/aggregate"
	"github.com/policyvoice/corroborate/internal/cache"
	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/classify"
	"github.com/policyvoice/corroborate/internal/fallback"
	"github.com/policyvoice/corroborate/internal/metrics"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/rules"
	"github.com/policyvoice/corroborate/internal/score"
)

// Pipeline is a fully wired verification service
type Pipeline struct {
	config     *model.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	quotas     *call.QuotaRegistry
	adapters   *adapters.Registry
	aggregator *aggregate.Aggregator
	renderer   *Renderer
	redis      *redis.Client
	timeouts   map[string]time.Duration
}

// NewPipeline wires a pipeline from configuration. Only configuration
// errors fail here; missing API keys are logged and served from fallback data.
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &Pipeline{
		config:   cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.New(reg),
		quotas:   call.NewQuotaRegistry(),
		adapters: adapters.NewRegistry(),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		timeouts: make(map[string]time.Duration),
	}

	p.setupQuotas()

	r, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	weights := score.WeightsFromConfig(cfg.Scoring)

	if err := p.registerAdapters(r, weights); err != nil {
		return nil, err
	}
	if missing := p.adapters.Missing(); len(missing) > 0 {
		logger.Info("adapters disabled by configuration", zap.Strings("adapters", missing))
	}

	var datasets *cache.Datasets
	if cfg.Cache.Enabled {
		datasets = cache.NewDatasets(newStore(cfg.Cache), cfg.Cache.TTL)
	}

	p.aggregator = aggregate.New(p.adapters, classify.NewRouter(r, p.adapters), weights, aggregate.Options{
		Datasets:       datasets,
		AdapterTimeout:  cfg.Concurrency.AdapterTimeout,
		AdapterTimeouts: p.timeouts,
		Logger:          logger,
		Metrics:         p.metrics,
	})
	return p, nil
}

func loadRules(path string) (*rules.Rules, error) {
	if path == "" {
		return rules.Default()
	}
	r, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return r, nil
}

func newStore(cfg model.CacheConfig) cache.Cache {
	if cfg.Dir == "" {
		return cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return cache.NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.TTL)
}

// setupQuotas creates one window per account. The redis backend shares
// windows across processes; when redis is unreachable the windows stay
// in-process.
func (p *Pipeline) setupQuotas() {
	cfg := p.config
	if cfg.Quota.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Quota.RedisAddr, DB: cfg.Quota.RedisDB})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			p.logger.Warn("redis unavailable, using in-process quota windows",
				zap.String("addr", cfg.Quota.RedisAddr), zap.Error(err))
			_ = client.Close()
		} else {
			p.redis = client
		}
	}

	for account, q := range cfg.Accounts {
		if q.Limit <= 0 || q.Window <= 0 {
			continue
		}
		if p.redis != nil {
			key := cfg.Quota.KeyPrefix + account
			p.quotas.Register(account, call.NewRedisWindow(p.redis, key, q.Limit, q.Window))
			continue
		}
		p.quotas.Register(account, call.NewRollingWindow(q.Limit, q.Window))
	}
}

func (p *Pipeline) registerAdapters(r *rules.Rules, weights score.Weights) error {
	cfg := p.config
	client := call.NewHTTPClient(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	limiter := call.NewLimiter(cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.BurstSize)
	provider := fallback.NewProvider()

	policy := func(name string) call.Policy {
		timeout := cfg.Source(name).Timeout
		if timeout == 0 {
			timeout = cfg.HTTP.Timeout
		}
		return call.PolicyFromConfig(cfg.Retry, timeout)
	}

	endpoint := func(name string) (adapters.Endpoint, error) {
		src := cfg.Source(name)
		if err := limiter.SetHostRate(src.BaseURL, src.RequestsPerSecond, src.Burst); err != nil {
			return adapters.Endpoint{}, fmt.Errorf("%s: base URL: %w", name, err)
		}
		return adapters.Endpoint{
			Caller: call.New(call.Options{
				Upstream:     name,
				Account:      src.Account,
				Client:       client,
				Policy:       policy(name),
				Limiter:      limiter,
				Quota:        p.quotas.Get(src.Account),
				Logger:       p.logger,
				Metrics:      p.metrics,
				UserAgent:    cfg.HTTP.UserAgent,
				MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
			}),
			BaseURL: src.BaseURL,
			APIKey:  ResolveKey(src),
		}, nil
	}

	// housing reads rent burden from the Census endpoint
	census, err := endpoint(model.AdapterDemographics)
	if err != nil {
		return err
	}

	for _, name := range model.AdapterNames {
		if !cfg.Source(name).Enabled {
			continue
		}
		ep, err := endpoint(name)
		if err != nil {
			return err
		}
		a, err := adapters.New(name, adapters.Deps{
			Endpoint: ep,
			Census:   census,
			Rules:    r,
			Weights:  weights,
			Fallback: provider,
			Logger:   p.logger,
			Metrics:  p.metrics,
		})
		if err != nil {
			return err
		}
		if err := p.adapters.Register(a); err != nil {
			return err
		}
		p.timeouts[name] = fetchBudget(adapters.CallsPerFetch(name), policy(name), policy(model.AdapterDemographics), cfg.Concurrency.AdapterTimeout)
	}
	return nil
}

// fetchBudget is the time one Fetch may take: every sequential call may run
// its full retry sequence. The configured adapter timeout is a floor.
func fetchBudget(calls adapters.FetchCalls, primary, census call.Policy, floor time.Duration) time.Duration {
	budget := time.Duration(calls.Primary)*primary.Ceiling() + time.Duration(calls.Census)*census.Ceiling()
	if budget < floor {
		return floor
	}
	return budget
}

// ResolveKey returns the configured API key, falling back to the source's
// conventional environment variable
func ResolveKey(src model.SourceConfig) string {
	if src.APIKey != "" {
		return src.APIKey
	}
	if src.KeyEnv != "" {
		return os.Getenv(src.KeyEnv)
	}
	return ""
}

// Verify verifies one story. It never fails.
func (p *Pipeline) Verify(ctx context.Context, story model.Story) model.AggregatedVerification {
	return p.aggregator.Verify(ctx, story)
}

// Route explains which adapters a story would be verified against
func (p *Pipeline) Route(story model.Story) []classify.Route {
	return p.aggregator.Route(story)
}

// AdapterInfo describes one adapter for listings
type AdapterInfo struct {
	Name          string `json:"name"`
	Source        string `json:"source"`
	BaseURL       string `json:"baseUrl"`
	Enabled       bool   `json:"enabled"`
	KeyConfigured bool   `json:"keyConfigured"`
	Account       string `json:"account,omitempty"`
}

// Adapters lists every known adapter in registration order
func (p *Pipeline) Adapters() []AdapterInfo {
	out := make([]AdapterInfo, 0, len(model.AdapterNames))
	for _, name := range model.AdapterNames {
		src := p.config.Source(name)
		out = append(out, AdapterInfo{
			Name:          name,
			Source:        fallback.Source(name),
			BaseURL:       src.BaseURL,
			Enabled:       p.adapters.Has(name),
			KeyConfigured: ResolveKey(src) != "",
			Account:       src.Account,
		})
	}
	return out
}

// QuotaStatus is the current state of one account window
type QuotaStatus struct {
	Account   string        `json:"account"`
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	Remaining int           `json:"remaining"`
	Backend   string        `json:"backend"`
}

// Quotas reports the remaining budget per account
func (p *Pipeline) Quotas(ctx context.Context) ([]QuotaStatus, error) {
	backend := "memory"
	if p.redis != nil {
		backend = "redis"
	}

	accounts := p.quotas.Accounts()
	out := make([]QuotaStatus, 0, len(accounts))
	for _, account := range accounts {
		remaining, err := p.quotas.Get(account).Remaining(ctx)
		if err != nil {
			return nil, fmt.Errorf("quota %s: %w", account, err)
		}
		q := p.config.Accounts[account]
		out = append(out, QuotaStatus{
			Account:   account,
			Limit:     q.Limit,
			Window:    q.Window,
			Remaining: remaining,
			Backend:   backend,
		})
	}
	return out, nil
}

// AdapterTimeout returns the fetch timeout applied to one adapter, zero when
// the adapter is not registered
func (p *Pipeline) AdapterTimeout(name string) time.Duration {
	return p.timeouts[name]
}

// Gatherer exposes the pipeline's metrics registry
func (p *Pipeline) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Close releases the redis connection, if any
func (p *Pipeline) Close() error {
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}
