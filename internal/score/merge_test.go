package score

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/policyvoice/corroborate/internal/model"
)

func record(adapter string, confidence int, verified bool, source string) model.VerificationRecord {
	return model.VerificationRecord{
		Adapter:    adapter,
		Relevant:   true,
		Verified:   verified,
		Confidence: confidence,
		Insights:   []model.Insight{{Type: model.InsightCorroboration, Message: adapter + " insight"}},
		Flags:      []model.Flag{{Severity: model.SeverityLow, Code: model.FlagRedFlagPhrase, Message: adapter + " flag"}},
		DataSource: source,
	}
}

func TestMerge_MaxNotSum(t *testing.T) {
	w := DefaultWeights()
	routed := []string{model.AdapterEnergy, model.AdapterClimate}
	records := []model.VerificationRecord{
		record(model.AdapterEnergy, 70, true, "EIA"),
		record(model.AdapterClimate, 85, true, "NOAA"),
	}

	got := w.Merge("s1", routed, records)

	if got.Confidence != 85 || !got.Verified {
		t.Errorf("confidence %d verified %v, want 85 true", got.Confidence, got.Verified)
	}
	if got.DataSource != "EIA + NOAA" {
		t.Errorf("data source = %q", got.DataSource)
	}
	wantInsights := []model.Insight{
		{Type: model.InsightCorroboration, Message: "energy insight"},
		{Type: model.InsightCorroboration, Message: "climate insight"},
	}
	if diff := cmp.Diff(wantInsights, got.Insights); diff != "" {
		t.Errorf("insights out of invocation order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(routed, got.Fired); diff != "" {
		t.Errorf("fired mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_TieFirstWins(t *testing.T) {
	w := DefaultWeights()
	routed := []string{model.AdapterHousing, model.AdapterEmergency}
	records := []model.VerificationRecord{
		record(model.AdapterHousing, 75, false, "HUD"),
		record(model.AdapterEmergency, 75, true, "OpenFEMA"),
	}

	got := w.Merge("s1", routed, records)
	if got.Verified {
		t.Error("verified must come from the first record holding the maximum")
	}
}

func TestMerge_NonRelevantExcluded(t *testing.T) {
	w := DefaultWeights()
	routed := []string{model.AdapterSpending, model.AdapterDemographics}
	records := []model.VerificationRecord{
		NotRelevant(model.AdapterSpending),
		record(model.AdapterDemographics, 70, true, "Census ACS"),
	}

	got := w.Merge("s1", routed, records)
	if diff := cmp.Diff([]string{model.AdapterDemographics}, got.Fired); diff != "" {
		t.Errorf("fired mismatch (-want +got):\n%s", diff)
	}
	if len(got.Insights) != 1 {
		t.Errorf("non-relevant insight leaked into merge: %+v", got.Insights)
	}
	if _, ok := got.PerAdapter[model.AdapterSpending]; !ok {
		t.Error("per-adapter map should still carry the non-relevant record")
	}
}

func TestMerge_NothingFired(t *testing.T) {
	w := DefaultWeights()

	for _, routed := range [][]string{nil, {model.AdapterRegulatory}} {
		var records []model.VerificationRecord
		for _, name := range routed {
			records = append(records, NotRelevant(name))
		}
		got := w.Merge("s1", routed, records)
		if got.Confidence != 50 || got.Verified {
			t.Errorf("neutral confidence %d verified %v", got.Confidence, got.Verified)
		}
		if len(got.Insights) != 1 || got.Insights[0].Type != model.InsightNoAdapters {
			t.Errorf("insights = %+v, want exactly one no_adapters_fired", got.Insights)
		}
		if len(got.PerAdapter) != len(routed) {
			t.Errorf("per-adapter = %d records, want %d", len(got.PerAdapter), len(routed))
		}
	}
}

func TestMerge_DegradedMarksVerdict(t *testing.T) {
	w := DefaultWeights()
	fallback := record(model.AdapterEmergency, 50, false, "OpenFEMA (fallback)")
	fallback.Degraded = true

	got := w.Merge("s1", []string{model.AdapterEmergency}, []model.VerificationRecord{fallback})
	if !got.Degraded || got.Confidence != 50 || got.DataSource != "OpenFEMA (fallback)" {
		t.Errorf("got degraded %v confidence %d source %q", got.Degraded, got.Confidence, got.DataSource)
	}
}
