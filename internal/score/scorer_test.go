package score

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/policyvoice/corroborate/internal/model"
)

func liveDataset(adapter string) model.SourceDataset {
	return model.SourceDataset{
		Adapter:    adapter,
		Geography:  model.Geography{State: "TX"},
		Vintage:    "2023",
		Provenance: "HUD FMR + Census ACS 5-year",
	}
}

func TestCard_Baseline(t *testing.T) {
	w := DefaultWeights()

	rec := NewCard(w, model.AdapterHousing, liveDataset(model.AdapterHousing)).Record()
	if rec.Confidence != 60 {
		t.Errorf("housing baseline = %d, want 60", rec.Confidence)
	}
	if !rec.Verified {
		t.Error("baseline at threshold should verify")
	}

	rec = NewCard(w, model.AdapterEnergy, liveDataset(model.AdapterEnergy)).Record()
	if rec.Confidence != 65 {
		t.Errorf("default baseline = %d, want 65", rec.Confidence)
	}
	if rec.DataSource != "HUD FMR + Census ACS 5-year" {
		t.Errorf("data source = %q", rec.DataSource)
	}
}

func TestCard_MonotonicAndClamped(t *testing.T) {
	w := DefaultWeights()
	card := NewCard(w, model.AdapterEmergency, liveDataset(model.AdapterEmergency))

	prev := card.Record().Confidence
	for i := 0; i < 10; i++ {
		card.Corroborate(w.Strong, "signal")
		got := card.Record().Confidence
		if got < prev {
			t.Fatalf("confidence dropped from %d to %d after signal %d", prev, got, i+1)
		}
		if got < 0 || got > 95 {
			t.Fatalf("confidence %d outside [0, 95]", got)
		}
		prev = got
	}
	if prev != 95 {
		t.Errorf("confidence = %d, want clamp at 95", prev)
	}

	card.Corroborate(-40, "negative weights are ignored")
	if got := card.Record().Confidence; got != 95 {
		t.Errorf("negative weight lowered confidence to %d", got)
	}
}

func TestCard_Implausible(t *testing.T) {
	w := DefaultWeights()
	card := NewCard(w, model.AdapterDemographics, liveDataset(model.AdapterDemographics))
	card.Corroborate(w.Strong, "poverty matches")
	card.Implausible("Claimed 50,000 affected exceeds population 5,000")

	rec := card.Record()
	if rec.Verified {
		t.Error("implausible claim must clear verified")
	}
	if rec.Confidence != 80 {
		t.Errorf("confidence = %d, want 80", rec.Confidence)
	}
	want := []model.Flag{{
		Severity: model.SeverityHigh,
		Code:     model.FlagDataImplausible,
		Message:  "Claimed 50,000 affected exceeds population 5,000",
	}}
	if diff := cmp.Diff(want, rec.Flags); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestCard_Degraded(t *testing.T) {
	w := DefaultWeights()
	ds := liveDataset(model.AdapterHousing)
	ds.Degraded = true
	ds.Provenance = "HUD FMR (fallback)"
	ds.FailureReason = "timeout"

	card := NewCard(w, model.AdapterHousing, ds)
	card.Corroborate(w.Strong, "ignored")
	card.Note("ignored")
	card.Implausible("ignored")
	card.Flag(model.Flag{Severity: model.SeverityMedium, Code: model.FlagRedFlagPhrase, Message: "kept"})

	rec := card.Record()
	if rec.Confidence != 50 || rec.Verified || !rec.Degraded {
		t.Errorf("degraded record = confidence %d verified %v degraded %v", rec.Confidence, rec.Verified, rec.Degraded)
	}
	if len(rec.Insights) != 1 || rec.Insights[0].Type != model.InsightDegraded {
		t.Errorf("insights = %+v, want one data_unavailable insight", rec.Insights)
	}
	if len(rec.Flags) != 1 || rec.Flags[0].Message != "kept" {
		t.Errorf("flags = %+v", rec.Flags)
	}
}

func TestCard_RecordIsSnapshot(t *testing.T) {
	card := NewCard(DefaultWeights(), model.AdapterCrime, liveDataset(model.AdapterCrime))
	first := card.Record()
	card.Corroborate(15, "later")
	card.Metric("reporting_rate", 41.0)

	if len(first.Insights) != 0 {
		t.Errorf("earlier record changed: %+v", first.Insights)
	}
	if _, ok := first.Metrics["reporting_rate"]; ok {
		t.Error("earlier record metrics changed")
	}
}

func TestPercentAndRatio(t *testing.T) {
	tests := []struct {
		reported, unreported float64
		want                 float64
	}{
		{41, 59, 41},
		{0, 0, 0},
		{10, 0, 100},
		{0, 10, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.reported, tt.unreported); got != tt.want {
			t.Errorf("Percent(%v, %v) = %v, want %v", tt.reported, tt.unreported, got, tt.want)
		}
	}
	if got := Ratio(5, 0); got != 0 {
		t.Errorf("Ratio with zero total = %v", got)
	}
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(model.ScoringConfig{Strong: 20, MaxConfidence: 150})
	if w.Strong != 20 || w.Baseline != 65 || w.NeutralConfidence != 50 {
		t.Errorf("weights = %+v", w)
	}
	if w.MaxConfidence != 100 {
		t.Errorf("max confidence = %d, want capped at 100", w.MaxConfidence)
	}
	if w.BaselineFor(model.AdapterHousing) != 65 {
		t.Errorf("no override configured, got %d", w.BaselineFor(model.AdapterHousing))
	}
}

func TestNotRelevant(t *testing.T) {
	rec := NotRelevant(model.AdapterCampaignFinance)
	if rec.Relevant || rec.Confidence != 0 {
		t.Errorf("not relevant record = %+v", rec)
	}
	if len(rec.Insights) != 1 || rec.Insights[0].Type != model.InsightNotRelevant {
		t.Errorf("insights = %+v", rec.Insights)
	}
	if rec.Insights[0].Message != "Story text does not mention campaign finance topics" {
		t.Errorf("message = %q", rec.Insights[0].Message)
	}
}
