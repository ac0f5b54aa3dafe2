package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/rules"
)

type catalog map[string]bool

func (c catalog) Has(name string) bool { return c[name] }

func testRouter(t *testing.T, c Catalog) *Router {
	t.Helper()
	r, err := rules.Default()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return NewRouter(r, c)
}

func TestRoute(t *testing.T) {
	router := testRouter(t, nil)

	tests := []struct {
		name  string
		story model.Story
		want  []string
	}{
		{
			name:  "housing",
			story: model.Story{PolicyArea: model.PolicyHousing, Body: "My rent doubled."},
			want:  []string{"housing"},
		},
		{
			name:  "environment keeps table order",
			story: model.Story{PolicyArea: model.PolicyEnvironment, Body: "Smoke everywhere."},
			want:  []string{"energy", "climate"},
		},
		{
			name:  "disaster trigger appends emergency",
			story: model.Story{PolicyArea: model.PolicyHousing, Headline: "Flooded out", Body: "The flood took our apartment."},
			want:  []string{"housing", "emergency"},
		},
		{
			name:  "trigger alone",
			story: model.Story{PolicyArea: model.PolicyHealthcare, Body: "After the hurricane the clinic closed."},
			want:  []string{"emergency"},
		},
		{
			name:  "unknown policy area routes as other",
			story: model.Story{PolicyArea: "gardening", Body: "The tomatoes are late."},
			want:  []string{},
		},
		{
			name:  "free-text policy area is normalized",
			story: model.Story{PolicyArea: "Higher Education", Body: "Tuition rose."},
			want:  []string{"higher_education"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := router.Route(tt.story)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Route() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoute_Idempotent(t *testing.T) {
	router := testRouter(t, nil)
	story := model.Story{PolicyArea: model.PolicyInfrastructure, Body: "The tornado tore the bridge apart."}

	first := router.Route(story)
	second := router.Route(story)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Route is not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"infrastructure", "climate", "emergency"}, first); diff != "" {
		t.Errorf("Route() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoute_FiltersUnregistered(t *testing.T) {
	router := testRouter(t, catalog{"climate": true})
	story := model.Story{PolicyArea: model.PolicyEnvironment, Body: "Wildfire smoke again."}

	if diff := cmp.Diff([]string{"climate"}, router.Route(story)); diff != "" {
		t.Errorf("Route() mismatch (-want +got):\n%s", diff)
	}
}

func TestExplain(t *testing.T) {
	router := testRouter(t, nil)
	story := model.Story{
		PolicyArea: model.PolicyHousing,
		Body:       "FEMA never came after the hurricane flooded our street.",
	}

	want := []Route{
		{Adapter: "housing", Origin: OriginPolicyArea, Reason: "policy area housing"},
		{Adapter: "emergency", Origin: OriginTrigger, Reason: "disaster vocabulary", Keywords: []string{"flood*", "hurricane*", "fema"}},
	}
	got := router.Explain(story)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Explain() mismatch (-want +got):\n%s", diff)
	}
	if s := got[1].String(); s != "emergency (disaster vocabulary: flood*, hurricane*, fema)" {
		t.Errorf("String() = %q", s)
	}
}
