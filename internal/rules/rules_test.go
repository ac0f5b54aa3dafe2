package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/policyvoice/corroborate/internal/model"
)

func TestKeywordSet_Match(t *testing.T) {
	set := MustKeywordSet("rent", "evict*", "cost burden*", "don't report", "cover-up")

	tests := []struct {
		text string
		want bool
	}{
		{"My RENT went up again", true},
		{"we were evicted last week", true},
		{"eviction notices", true},
		{"the current situation", false},  // "rent" inside "current"
		{"parent teacher meeting", false}, // "rent" inside "parent"
		{"a severe cost\n  burden for families", true},
		{"people don’t report it", true}, // curly apostrophe
		{"it was a cover-up", true},
		{"cover up the truth", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := set.Match(tt.text); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestKeywordSet_Find(t *testing.T) {
	set := MustKeywordSet("flood*", "hurricane*", "fema")
	got := set.Find("FEMA never came after the hurricane flooded our street")
	want := []string{"flood*", "hurricane*", "fema"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}

	var empty KeywordSet
	if empty.Match("anything") || empty.Find("anything") != nil || !empty.Empty() {
		t.Error("zero KeywordSet should match nothing")
	}
}

func TestNewKeywordSet_Invalid(t *testing.T) {
	for _, terms := range [][]string{{""}, {"*"}, {"fl*od"}} {
		if _, err := NewKeywordSet(terms); err == nil {
			t.Errorf("NewKeywordSet(%q) expected error", terms)
		}
	}
}

func TestDefault_Valid(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("embedded rules invalid: %v", err)
	}

	for _, name := range model.AdapterNames {
		if r.relevance[name].Empty() {
			t.Errorf("adapter %s has no relevance keywords", name)
		}
	}

	if diff := cmp.Diff([]string{"energy", "climate"}, r.Route(model.PolicyEnvironment)); diff != "" {
		t.Errorf("environment route mismatch (-want +got):\n%s", diff)
	}
	if got := r.Route(model.PolicyHealthcare); len(got) != 0 {
		t.Errorf("healthcare should route to no adapters, got %v", got)
	}
}

func TestRoute_ReturnsCopy(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	got := r.Route(model.PolicyElections)
	got[0] = "mutated"
	if r.Route(model.PolicyElections)[0] != model.AdapterCampaignFinance {
		t.Error("Route must not expose internal slices")
	}
}

func TestRedFlags(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	flags := r.RedFlags(model.AdapterEmergency, "Our claim was denied after months of delays. The denial letter was vague.")
	want := []model.Flag{
		{Severity: model.SeverityMedium, Code: model.FlagRedFlagPhrase, Message: "Story reports delays in disaster assistance"},
		{Severity: model.SeverityHigh, Code: model.FlagRedFlagPhrase, Message: "Story reports denied disaster assistance"},
	}
	if diff := cmp.Diff(want, flags); diff != "" {
		t.Errorf("RedFlags mismatch (-want +got):\n%s", diff)
	}

	if got := r.RedFlags(model.AdapterHousing, "rent went up"); len(got) != 0 {
		t.Errorf("expected no housing flags, got %v", got)
	}
}

func TestIncidentsAndAgencies(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	incidents := r.Incidents("The hurricane brought a storm surge and then flash flooding")
	if diff := cmp.Diff([]string{"Flood", "Hurricane"}, incidents); diff != "" {
		t.Errorf("Incidents mismatch (-want +got):\n%s", diff)
	}

	agencies := r.Agencies("HUD and the EPA both sent letters")
	want := []string{"Department of Housing and Urban Development", "Environmental Protection Agency"}
	if diff := cmp.Diff(want, agencies); diff != "" {
		t.Errorf("Agencies mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Rejects(t *testing.T) {
	bad := `
routes:
  housing: [housing, housing]
  astrology: [housing]
  energy: [solar_panels]
triggers:
  - adapter: weather
    keywords: []
relevance:
  housing: [rent]
red_flags:
  housing:
    - {phrase: "mold", severity: critical, message: "x"}
`
	_, err := Parse([]byte(bad))
	if err == nil {
		t.Fatal("expected validation error")
	}

	for _, fragment := range []string{
		`duplicate adapter "housing"`,
		`unknown policy area "astrology"`,
		`unknown adapter "solar_panels"`,
		`unknown adapter "weather"`,
		`no keywords`,
		`no keywords for adapter "energy"`,
		`invalid severity "critical"`,
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error missing %q:\n%v", fragment, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, embedded, 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.Relevant(model.AdapterHousing, "our landlord raised the rent") {
		t.Error("expected housing relevance from loaded file")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate_TriggerKeywordsMustBeRelevant(t *testing.T) {
	data := `
triggers:
  - adapter: housing
    keywords: [evict*, blizzard, foreclos*]
relevance:
  housing: [evict*, foreclosure]
`
	_, err := Parse([]byte(data))
	if err == nil {
		t.Fatal("expected validation error")
	}

	for _, fragment := range []string{
		`keyword "blizzard" is not in relevance.housing`,
		`keyword "foreclos*" is not in relevance.housing`,
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error missing %q:\n%v", fragment, err)
		}
	}
	if strings.Contains(err.Error(), `"evict*"`) {
		t.Errorf("evict* is covered and should not be reported:\n%v", err)
	}
}

func TestDefault_TriggeredStoriesAreRelevant(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	stories := []string{
		"A blizzard buried our town for a week",
		"The tsunami warning came too late",
		"A landslide closed the only road out",
		"Mudslides after the fire took our street",
		"The ice storm knocked out everything",
		"A forest fire forced us out",
		"Tropical storms hit us twice this year",
	}
	for _, text := range stories {
		triggered := false
		for _, tr := range r.Triggers() {
			if tr.Adapter == model.AdapterEmergency && tr.Keywords.Match(text) {
				triggered = true
			}
		}
		if !triggered {
			t.Errorf("%q: expected emergency trigger", text)
			continue
		}
		if !r.Relevant(model.AdapterEmergency, text) {
			t.Errorf("%q: routed to emergency but not relevant", text)
		}
	}
}
