package score

import (
	"strings"

	"github.com/policyvoice/corroborate/internal/model"
)

// Merge folds per-adapter records into one verdict.
//
// records[i] belongs to routed[i]. Only relevant records fire. Confidence is
// the maximum over fired records, never a sum; verified is inherited from the
// first record holding that maximum. Insights, flags and provenance are
// concatenated in invocation order. With nothing fired the neutral verdict
// is returned.
func (w Weights) Merge(storyID string, routed []string, records []model.VerificationRecord) model.AggregatedVerification {
	out := model.AggregatedVerification{
		StoryID:    storyID,
		Insights:   []model.Insight{},
		Flags:      []model.Flag{},
		PerAdapter: make(map[string]model.VerificationRecord, len(records)),
		Adapters:   append([]string{}, routed...),
		Fired:      []string{},
	}

	best := -1
	var sources []string
	for i, rec := range records {
		name := rec.Adapter
		if i < len(routed) {
			name = routed[i]
		}
		out.PerAdapter[name] = rec

		if !rec.Relevant {
			continue
		}
		out.Fired = append(out.Fired, name)
		out.Insights = append(out.Insights, rec.Insights...)
		out.Flags = append(out.Flags, rec.Flags...)
		if rec.DataSource != "" {
			sources = append(sources, rec.DataSource)
		}
		if rec.Degraded {
			out.Degraded = true
		}
		if best < 0 || rec.Confidence > records[best].Confidence {
			best = i
		}
	}

	if best < 0 {
		neutral := w.Neutral(storyID, routed)
		neutral.PerAdapter = out.PerAdapter
		return neutral
	}

	out.Confidence = Clamp(records[best].Confidence, 0, 100)
	out.Verified = records[best].Verified
	out.DataSource = strings.Join(sources, " + ")
	return out
}

// Neutral is the verdict when no adapter fired
func (w Weights) Neutral(storyID string, routed []string) model.AggregatedVerification {
	message := "No verification data source covers this story's topic; no verification was attempted"
	if len(routed) > 0 {
		message = "None of the routed data sources found the story relevant; no verification was attempted"
	}
	return model.AggregatedVerification{
		StoryID:    storyID,
		Confidence: w.NeutralConfidence,
		DataSource: "none",
		Insights:   []model.Insight{{Type: model.InsightNoAdapters, Message: message}},
		Flags:      []model.Flag{},
		PerAdapter: map[string]model.VerificationRecord{},
		Adapters:   append([]string{}, routed...),
		Fired:      []string{},
	}
}
