package model

import "time"

// VerificationRecord is one adapter's verdict on a story.
// It is produced by a pure scoring function and never mutated afterwards.
type VerificationRecord struct {
	Adapter    string         `json:"adapter"`
	Relevant   bool           `json:"relevant"`             // false: adapter is out of topical scope
	Verified   bool           `json:"verified"`             // confidence >= threshold and no implausible claim
	Confidence int            `json:"confidence,omitempty"` // 0-100, unset when not relevant
	Insights   []Insight      `json:"insights"`
	Flags      []Flag         `json:"flags"`
	Metrics    map[string]any `json:"metrics,omitempty"` // adapter-specific inputs behind the score
	DataSource string         `json:"dataSource,omitempty"`
	Degraded   bool           `json:"degraded,omitempty"` // scored against fallback data
}

// Insight is an explanatory note attached to a verification
type Insight struct {
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
}

// InsightType classifies insights
type InsightType string

const (
	InsightCorroboration InsightType = "corroboration"     // dataset supports a claim
	InsightContext       InsightType = "context"           // dataset fact worth surfacing
	InsightNotRelevant   InsightType = "not_relevant"      // adapter out of scope for the story
	InsightDegraded      InsightType = "data_unavailable"  // upstream failed, fallback used
	InsightNoAdapters    InsightType = "no_adapters_fired" // nothing could verify the story
	InsightPlausibility  InsightType = "plausibility"      // claimed figures checked against bounds
)

// Flag marks something a reviewer should look at
type Flag struct {
	Severity Severity `json:"severity"`
	Code     FlagCode `json:"code"`
	Message  string   `json:"message"`
}

// Severity of a flag
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether the severity is one of low, medium, high
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// FlagCode classifies flags
type FlagCode string

const (
	FlagRedFlagPhrase   FlagCode = "red_flag_phrase"  // story uses a phrase worth escalating
	FlagDataImplausible FlagCode = "data_implausible" // claim or dataset violates plausibility bounds
)

// AggregatedVerification is the merged verdict returned to the caller
type AggregatedVerification struct {
	StoryID    string                        `json:"storyId"`
	Verified   bool                          `json:"verified"`
	Confidence int                           `json:"confidence"`
	DataSource string                        `json:"dataSource"` // provenance of fired adapters joined by " + "
	Insights   []Insight                     `json:"insights"`
	Flags      []Flag                        `json:"flags"`
	PerAdapter map[string]VerificationRecord `json:"perAdapter"`
	Adapters   []string                      `json:"adapters"` // routed adapters in invocation order
	Fired      []string                      `json:"fired"`    // adapters that contributed to the merge
	Degraded   bool                          `json:"degraded"` // at least one fired adapter used fallback data
	CheckedAt  time.Time                     `json:"checkedAt"`
}

// HasFlag reports whether any flag carries the given code
func (a AggregatedVerification) HasFlag(code FlagCode) bool {
	for _, f := range a.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}
