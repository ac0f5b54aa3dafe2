package adapters

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/fallback"
	"github.com/policyvoice/corroborate/internal/geo"
	"github.com/policyvoice/corroborate/internal/metrics"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/rules"
	"github.com/policyvoice/corroborate/internal/score"
)

var errMissingKey = errors.New("API key not configured")

// Endpoint is one upstream an adapter talks to
type Endpoint struct {
	Caller  *call.Caller
	BaseURL string
	APIKey  string
}

func (e Endpoint) url(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Deps are the shared collaborators every adapter is built from
type Deps struct {
	Endpoint
	Census   Endpoint // secondary Census ACS endpoint, used by housing
	Rules    *rules.Rules
	Weights  score.Weights
	Fallback *fallback.Provider
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Base provides the pieces shared by every adapter: relevance, the
// scoring frame and the fallback path
type Base struct {
	name     string
	source   string
	endpoint Endpoint
	rules    *rules.Rules
	weights  score.Weights
	fallback *fallback.Provider
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	signals  map[string]rules.KeywordSet
}

// newBase validates deps and resolves the adapter's named signal sets.
// Missing configuration is an initialization error.
func newBase(name string, d Deps, requiresKey bool, signalNames ...string) (Base, error) {
	if d.Rules == nil {
		return Base{}, fmt.Errorf("%s: rules are required", name)
	}
	if d.Endpoint.Caller == nil {
		return Base{}, fmt.Errorf("%s: caller is required", name)
	}
	if d.Endpoint.BaseURL == "" {
		return Base{}, fmt.Errorf("%s: base URL is required", name)
	}

	b := Base{
		name:     name,
		source:   fallback.Source(name),
		endpoint: d.Endpoint,
		rules:    d.Rules,
		weights:  d.Weights,
		fallback: d.Fallback,
		logger:   d.Logger,
		metrics:  d.Metrics,
		now:      d.Now,
		signals:  make(map[string]rules.KeywordSet, len(signalNames)),
	}
	if b.fallback == nil {
		b.fallback = fallback.NewProvider()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.With(zap.String("adapter", name))
	if b.metrics == nil {
		b.metrics = metrics.New(nil)
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.weights.MaxConfidence == 0 {
		b.weights = score.DefaultWeights()
	}

	var missing []string
	for _, s := range signalNames {
		set, ok := d.Rules.Signal(name, s)
		if !ok {
			missing = append(missing, s)
			continue
		}
		b.signals[s] = set
	}
	if len(missing) > 0 {
		return Base{}, fmt.Errorf("%s: rules missing signal sets %v", name, missing)
	}

	if requiresKey && d.Endpoint.APIKey == "" {
		b.logger.Warn("API key not configured, adapter will serve fallback data")
	}
	return b, nil
}

// Name returns the adapter name
func (b *Base) Name() string { return b.name }

// IsRelevant tests the adapter's relevance keywords against story text
func (b *Base) IsRelevant(text string) bool {
	return b.rules.Relevant(b.name, text)
}

// has reports whether the named signal set matches the text
func (b *Base) has(signal, text string) bool {
	return b.signals[signal].Match(text)
}

// requireKey fails fast without touching the network when no key is configured
func (b *Base) requireKey() error {
	if b.endpoint.APIKey == "" {
		return &call.Failure{Reason: call.ReasonUnauthorized, Upstream: b.name, Err: errMissingKey}
	}
	return nil
}

// state resolves the geography's state or fails with not_found
func (b *Base) state(g model.Geography) (geo.State, error) {
	st, ok := geo.Lookup(g.State)
	if !ok {
		return geo.State{}, &call.Failure{
			Reason:   call.ReasonNotFound,
			Upstream: b.name,
			Err:      fmt.Errorf("unknown state %q", g.State),
		}
	}
	return st, nil
}

// live wraps a freshly fetched payload
func (b *Base) live(g model.Geography, vintage string, payload model.Payload) model.SourceDataset {
	return model.SourceDataset{
		Adapter:    b.name,
		Geography:  g,
		Vintage:    vintage,
		Provenance: b.source,
		FetchedAt:  b.now().UTC(),
		Payload:    payload,
	}
}

// degrade converts a fetch failure into the fallback dataset
func (b *Base) degrade(g model.Geography, err error) model.SourceDataset {
	reason := string(call.ReasonOf(err))
	if reason == "" {
		reason = string(call.ReasonUnknown)
	}
	b.metrics.AdapterFallbacks.WithLabelValues(b.name, reason).Inc()
	b.logger.Warn("upstream unavailable, using fallback dataset",
		zap.String("geography", g.Key()),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return b.fallback.Dataset(b.name, g, reason)
}

// evaluate runs the shared scoring frame: relevance gate, baseline,
// red-flag phrases and dataset consistency, then the adapter's signals
func (b *Base) evaluate(story model.Story, ds model.SourceDataset, signals func(card *score.Card, text string)) model.VerificationRecord {
	text := story.Text()
	if !b.IsRelevant(text) {
		return score.NotRelevant(b.name)
	}
	if ds.Payload == nil || ds.Payload.Kind() != b.name {
		return score.Failed(b.name, "dataset does not belong to this adapter")
	}

	card := score.NewCard(b.weights, b.name, ds)
	card.Flag(b.rules.RedFlags(b.name, text)...)
	for _, issue := range ds.Payload.Check() {
		card.Implausible("Source data is internally inconsistent: " + issue)
	}

	signals(card, text)
	return card.Record()
}

// checkPopulation flags a claimed affected population larger than the area's
func checkPopulation(card *score.Card, story model.Story, area string, population int64) {
	claimed := story.AffectedPopulation()
	card.Metric("claimed_affected_population", claimed)
	if claimed <= 0 || population <= 0 {
		return
	}
	if claimed > population {
		card.Implausible(fmt.Sprintf("Claimed affected population of %s exceeds the total population of %s (%s)",
			formatCount(claimed), area, formatCount(population)))
		return
	}
	card.Corroborate(card.Weights().Minor, fmt.Sprintf("Claimed affected population of %s is within the population of %s (%s)",
		formatCount(claimed), area, formatCount(population)))
}

// mentionsSurname reports whether text names the surname of a "LAST, FIRST"
// roster entry
func mentionsSurname(name, text string) bool {
	last, _, _ := strings.Cut(name, ",")
	last = strings.Trim(strings.TrimSpace(last), "*")
	if len(last) < 3 {
		return false
	}
	set, err := rules.NewKeywordSet([]string{last})
	if err != nil {
		return false
	}
	return set.Match(text)
}

func formatCount(n int64) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func formatDollars(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1f billion", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1f million", v/1e6)
	default:
		return "$" + formatCount(int64(v+0.5))
	}
}
