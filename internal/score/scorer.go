package score

import (
	"fmt"

	"github.com/policyvoice/corroborate/internal/model"
)

// Card accumulates the signals behind one adapter's verdict.
//
// A card starts at the adapter's baseline. Corroborating signals add fixed
// increments, red-flag phrases add flags, and implausible claims clear the
// verified bit. Record clamps the result to [0, MaxConfidence].
//
// A card built from a degraded dataset stays at the neutral confidence:
// fallback values are context, never corroboration.
type Card struct {
	weights     Weights
	adapter     string
	source      string
	confidence  int
	signals     int
	degraded    bool
	implausible bool
	insights    []model.Insight
	flags       []model.Flag
	metrics     map[string]any
}

// NewCard starts a card for the adapter scoring against the dataset
func NewCard(w Weights, adapter string, ds model.SourceDataset) *Card {
	c := &Card{
		weights:    w,
		adapter:    adapter,
		source:     ds.Provenance,
		confidence: w.BaselineFor(adapter),
		degraded:   ds.Degraded,
		metrics:    make(map[string]any),
	}
	if ds.Vintage != "" {
		c.metrics["vintage"] = ds.Vintage
	}

	if c.degraded {
		c.confidence = w.NeutralConfidence
		msg := fmt.Sprintf("Live data temporarily unavailable; showing %s", ds.Provenance)
		if ds.FailureReason != "" {
			msg = fmt.Sprintf("%s (%s)", msg, ds.FailureReason)
		}
		c.insights = append(c.insights, model.Insight{Type: model.InsightDegraded, Message: msg})
		c.metrics["baseline"] = c.confidence
		c.metrics["formula"] = "neutral confidence (fallback data)"
		return c
	}

	c.metrics["baseline"] = c.confidence
	c.metrics["formula"] = fmt.Sprintf("min(baseline + sum(signal weights), %d)", w.MaxConfidence)
	return c
}

// Weights returns the weights the card scores with
func (c *Card) Weights() Weights { return c.weights }

// Degraded reports whether the card scores against fallback data
func (c *Card) Degraded() bool { return c.degraded }

// Corroborate records a dataset signal that supports the story.
// Negative weights are ignored so confidence never drops as signals are added.
func (c *Card) Corroborate(weight int, message string) {
	if c.degraded {
		return
	}
	if weight > 0 {
		c.confidence += weight
	}
	c.signals++
	c.insights = append(c.insights, model.Insight{Type: model.InsightCorroboration, Message: message})
}

// Note records dataset context that neither supports nor contradicts the story
func (c *Card) Note(message string) {
	if c.degraded {
		return
	}
	c.insights = append(c.insights, model.Insight{Type: model.InsightContext, Message: message})
}

// Flag appends flags raised by the story text
func (c *Card) Flag(flags ...model.Flag) {
	c.flags = append(c.flags, flags...)
}

// Implausible raises a high-severity flag and clears verified.
// Fallback data cannot prove a claim implausible.
func (c *Card) Implausible(message string) {
	if c.degraded {
		return
	}
	c.implausible = true
	c.flags = append(c.flags, model.Flag{
		Severity: model.SeverityHigh,
		Code:     model.FlagDataImplausible,
		Message:  message,
	})
	c.insights = append(c.insights, model.Insight{Type: model.InsightPlausibility, Message: message})
}

// Metric records an input behind the score
func (c *Card) Metric(key string, value any) {
	c.metrics[key] = value
}

// Record finalizes the card
func (c *Card) Record() model.VerificationRecord {
	confidence := Clamp(c.confidence, 0, c.weights.MaxConfidence)

	metrics := make(map[string]any, len(c.metrics)+2)
	for k, v := range c.metrics {
		metrics[k] = v
	}
	metrics["signals"] = c.signals
	metrics["score"] = confidence

	return model.VerificationRecord{
		Adapter:    c.adapter,
		Relevant:   true,
		Verified:   !c.degraded && !c.implausible && confidence >= c.weights.VerifiedThreshold,
		Confidence: confidence,
		Insights:   append([]model.Insight{}, c.insights...),
		Flags:      append([]model.Flag{}, c.flags...),
		Metrics:    metrics,
		DataSource: c.source,
		Degraded:   c.degraded,
	}
}

// NotRelevant is the record for an adapter out of the story's topical scope
func NotRelevant(adapter string) model.VerificationRecord {
	return model.VerificationRecord{
		Adapter: adapter,
		Insights: []model.Insight{{
			Type:    model.InsightNotRelevant,
			Message: fmt.Sprintf("Story text does not mention %s topics", humanize(adapter)),
		}},
		Flags: []model.Flag{},
	}
}

// Failed is the record for an adapter that could not produce a verdict
func Failed(adapter string, reason string) model.VerificationRecord {
	return model.VerificationRecord{
		Adapter: adapter,
		Insights: []model.Insight{{
			Type:    model.InsightDegraded,
			Message: fmt.Sprintf("%s verification skipped: %s", humanize(adapter), reason),
		}},
		Flags:    []model.Flag{},
		Degraded: true,
	}
}

func humanize(adapter string) string {
	out := []byte(adapter)
	for i, b := range out {
		if b == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
