package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/fallback"
	"github.com/policyvoice/corroborate/internal/metrics"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/rules"
	"github.com/policyvoice/corroborate/internal/score"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func testRules(t *testing.T) *rules.Rules {
	t.Helper()
	r, err := rules.Default()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return r
}

func testEndpoint(baseURL, key string) Endpoint {
	return Endpoint{
		Caller: call.New(call.Options{
			Upstream: "test",
			Client:   &http.Client{},
			Policy:   call.Policy{Timeout: 2 * time.Second, MaxRetries: -1},
			Sleep:    func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		}),
		BaseURL: baseURL,
		APIKey:  key,
	}
}

func testDeps(t *testing.T, baseURL, key string) Deps {
	t.Helper()
	return Deps{
		Endpoint: testEndpoint(baseURL, key),
		Census:   testEndpoint(baseURL, ""),
		Rules:    testRules(t),
		Weights:  score.DefaultWeights(),
		Fallback: fallback.NewProvider().WithClock(func() time.Time { return testNow }),
		Metrics:  metrics.New(nil),
		Now:      func() time.Time { return testNow },
	}
}

// fakeUpstream serves canned responses by path and counts requests
type fakeUpstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T, routes map[string]http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func hasInsight(rec model.VerificationRecord, typ model.InsightType, substr string) bool {
	for _, in := range rec.Insights {
		if in.Type == typ && strings.Contains(in.Message, substr) {
			return true
		}
	}
	return false
}

func hasFlag(rec model.VerificationRecord, code model.FlagCode) bool {
	for _, f := range rec.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

func mustAdapter(t *testing.T, name string, d Deps) Adapter {
	t.Helper()
	a, err := New(name, d)
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	return a
}

// broadStory is relevant to every adapter and makes no quantitative claims
func broadStory() model.Story {
	return model.Story{
		ID:       "broad",
		Headline: "Residents say electric bills, summer heat and rent keep rising",
		Body: "The bridge closed after the disaster and crime is up. Campaign donors fund Congress " +
			"while college tuition climbs, veterans wait, federal funding was cut and a new regulation landed.",
		PolicyArea: model.PolicyOther,
		Location:   model.Location{State: "TX"},
	}
}

func TestRegistry(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	reg := NewRegistry()

	for _, name := range []string{model.AdapterHousing, model.AdapterEnergy} {
		if err := reg.Register(mustAdapter(t, name, deps)); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}
	if err := reg.Register(mustAdapter(t, model.AdapterHousing, deps)); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	if diff := cmp.Diff([]string{"housing", "energy"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if reg.Len() != 2 || !reg.Has("energy") || reg.Has("crime") {
		t.Errorf("unexpected registry state: len=%d names=%v", reg.Len(), reg.Names())
	}
	if _, ok := reg.Get("housing"); !ok {
		t.Error("Get(housing) not found")
	}
	if got := len(reg.Missing()); got != len(model.AdapterNames)-2 {
		t.Errorf("Missing() = %d names, want %d", got, len(model.AdapterNames)-2)
	}
}

func TestNew_AllAdapters(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	for _, name := range model.AdapterNames {
		a := mustAdapter(t, name, deps)
		if a.Name() != name {
			t.Errorf("New(%s).Name() = %s", name, a.Name())
		}
	}
	if _, err := New("weather", deps); err == nil {
		t.Error("expected unknown adapter to fail")
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")

	noRules := deps
	noRules.Rules = nil
	if _, err := NewDemographics(noRules); err == nil {
		t.Error("expected missing rules to fail")
	}

	noURL := deps
	noURL.Endpoint.BaseURL = ""
	if _, err := NewEnergy(noURL); err == nil {
		t.Error("expected missing base URL to fail")
	}

	noCensus := deps
	noCensus.Census = Endpoint{}
	if _, err := NewHousing(noCensus); err == nil {
		t.Error("expected housing without census endpoint to fail")
	}
}

func TestHousing_TexasRentBurden(t *testing.T) {
	up := newUpstream(t, map[string]http.HandlerFunc{
		"/fmr/statedata/TX": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer hud-token" {
				t.Errorf("Authorization = %q", got)
			}
			jsonBody(`{"data":{"year":"2025","counties":[{"Two-Bedroom":1400},{"Two-Bedroom":1200}],"metroareas":[]}}`)(w, r)
		},
		"/2022/acs/acs5": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("for"); got != "state:48" {
				t.Errorf("for = %q, want state:48", got)
			}
			jsonBody(`[["NAME","B25064_001E","B25071_001E","B01003_001E","B25003_003E","state"],
				["Texas","1350","42.0","29145505","3800000","48"]]`)(w, r)
		},
	})

	a, err := NewHousing(testDeps(t, up.URL, "hud-token"))
	if err != nil {
		t.Fatal(err)
	}
	ds := a.Fetch(context.Background(), model.Geography{State: "TX"})
	if ds.Degraded {
		t.Fatalf("unexpected fallback: %s", ds.FailureReason)
	}

	want := &model.HousingData{
		Year:              2025,
		FairMarketRent2BR: 1300,
		MedianGrossRent:   1350,
		RentBurdenRatio:   42,
		Population:        29145505,
		RenterHouseholds:  3800000,
	}
	if diff := cmp.Diff(want, ds.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	story := model.Story{
		ID:         "tx-rent",
		Headline:   "Rent is eating my paycheck",
		Body:       "My rent went up again and now it takes 42% of my income. Housing in Austin is unaffordable.",
		PolicyArea: model.PolicyHousing,
		Location:   model.Location{State: "TX", City: "Austin"},
	}
	rec := a.Score(story, ds)
	if !rec.Relevant || !rec.Verified {
		t.Fatalf("expected relevant verified record, got %+v", rec)
	}
	if rec.Confidence < 75 {
		t.Errorf("confidence = %d, want >= 75", rec.Confidence)
	}
	if rec.Confidence != 85 {
		t.Errorf("confidence = %d, want 85 (60 + strong + moderate)", rec.Confidence)
	}
	if !hasInsight(rec, model.InsightCorroboration, "rent burden ratio") {
		t.Errorf("missing rent burden insight: %+v", rec.Insights)
	}
}

func TestDemographics_ImplausiblePopulation(t *testing.T) {
	up := newUpstream(t, map[string]http.HandlerFunc{
		"/2022/acs/acs5": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("for"); got != "zip code tabulation area:78701" {
				t.Errorf("for = %q", got)
			}
			jsonBody(`[["NAME","B01003_001E","B11001_001E","B19013_001E","B17001_002E","B17001_001E","B01002_001E","zip code tabulation area"],
				["ZCTA5 78701","5000","2900","98000","600","4900","33.1","78701"]]`)(w, r)
		},
	})

	a, err := NewDemographics(testDeps(t, up.URL, ""))
	if err != nil {
		t.Fatal(err)
	}
	ds := a.Fetch(context.Background(), model.Geography{State: "TX", ZIP: "78701"})
	if ds.Degraded {
		t.Fatalf("unexpected fallback: %s", ds.FailureReason)
	}
	d := ds.Payload.(*model.DemographicsData)
	if d.Population != 5000 || d.Area != "ZIP 78701" || d.PovertyRate != 12.2 {
		t.Errorf("unexpected payload: %+v", d)
	}

	story := model.Story{
		ID:         "zip-claim",
		Body:       "About 50,000 residents of my neighborhood lost their jobs.",
		PolicyArea: model.PolicyEconomy,
		Location:   model.Location{State: "TX", ZIP: "78701"},
		Impact:     &model.Impact{AffectedPopulation: 50000},
	}
	rec := a.Score(story, ds)
	if rec.Verified {
		t.Error("implausible claim must not verify")
	}
	var found bool
	for _, f := range rec.Flags {
		if f.Code == model.FlagDataImplausible && f.Severity == model.SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("expected high data_implausible flag, got %+v", rec.Flags)
	}
	if !hasInsight(rec, model.InsightPlausibility, "exceeds the total population") {
		t.Errorf("missing plausibility insight: %+v", rec.Insights)
	}
}

func TestFetch_MissingKeyDegradesWithoutRequest(t *testing.T) {
	up := newUpstream(t, nil)
	for _, name := range []string{model.AdapterEnergy, model.AdapterClimate, model.AdapterHousing,
		model.AdapterLegislative, model.AdapterHigherEducation, model.AdapterVeterans} {
		a := mustAdapter(t, name, testDeps(t, up.URL, ""))
		ds := a.Fetch(context.Background(), model.Geography{State: "TX"})
		if !ds.Degraded || ds.FailureReason != string(call.ReasonUnauthorized) {
			t.Errorf("%s: degraded=%v reason=%q, want unauthorized fallback", name, ds.Degraded, ds.FailureReason)
		}
		if !strings.HasSuffix(ds.Provenance, fallback.Marker) {
			t.Errorf("%s: provenance %q lacks fallback marker", name, ds.Provenance)
		}
	}
	if n := up.hits.Load(); n != 0 {
		t.Errorf("upstream received %d requests, want 0", n)
	}
}

func TestFetch_UnknownStateDegrades(t *testing.T) {
	up := newUpstream(t, nil)
	a := mustAdapter(t, model.AdapterDemographics, testDeps(t, up.URL, ""))

	ds := a.Fetch(context.Background(), model.Geography{State: "ZZ"})
	if !ds.Degraded || ds.FailureReason != string(call.ReasonNotFound) {
		t.Errorf("degraded=%v reason=%q, want not_found fallback", ds.Degraded, ds.FailureReason)
	}
	if ds.Payload == nil || ds.Payload.Kind() != model.AdapterDemographics {
		t.Errorf("fallback payload = %#v", ds.Payload)
	}
	if n := up.hits.Load(); n != 0 {
		t.Errorf("upstream received %d requests, want 0", n)
	}
}

func TestFetch_UpstreamFailureCountsFallback(t *testing.T) {
	up := newUpstream(t, map[string]http.HandlerFunc{
		"/2022/acs/acs5": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	deps := testDeps(t, up.URL, "")
	a := mustAdapter(t, model.AdapterDemographics, deps)

	ds := a.Fetch(context.Background(), model.Geography{State: "OH"})
	if !ds.Degraded || ds.FailureReason != string(call.ReasonUnknown) {
		t.Errorf("degraded=%v reason=%q", ds.Degraded, ds.FailureReason)
	}
	if got := testutil.ToFloat64(deps.Metrics.AdapterFallbacks.WithLabelValues(model.AdapterDemographics, "unknown_error")); got != 1 {
		t.Errorf("fallback counter = %v, want 1", got)
	}
	if !ds.FetchedAt.Equal(testNow) {
		t.Errorf("FetchedAt = %v, want %v", ds.FetchedAt, testNow)
	}
}

func TestScore_FallbackPayloadsArePlausible(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	provider := fallback.NewProvider()
	story := broadStory()

	for _, name := range model.AdapterNames {
		a := mustAdapter(t, name, deps)
		for _, state := range []string{"CA", "TX", "OH", "WY", "PR"} {
			ds := provider.Dataset(name, model.Geography{State: state}, "test")
			ds.Degraded = false
			ds.FailureReason = ""

			rec := a.Score(story, ds)
			if !rec.Relevant {
				t.Errorf("%s/%s: broad story not relevant", name, state)
				continue
			}
			if hasFlag(rec, model.FlagDataImplausible) {
				t.Errorf("%s/%s: fallback payload flagged implausible: %+v", name, state, rec.Flags)
			}
		}
	}
}

func TestScore_DegradedIsNeutral(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	a := mustAdapter(t, model.AdapterHousing, deps)
	ds := deps.Fallback.Dataset(model.AdapterHousing, model.Geography{State: "TX"}, "timeout")

	story := model.Story{Body: "Rent is unaffordable and evictions are everywhere.", Location: model.Location{State: "TX"}}
	rec := a.Score(story, ds)
	if rec.Confidence != 50 || rec.Verified || !rec.Degraded {
		t.Errorf("degraded record = %+v, want neutral unverified", rec)
	}
	if !hasInsight(rec, model.InsightDegraded, "(timeout)") {
		t.Errorf("missing data_unavailable insight: %+v", rec.Insights)
	}
	if hasInsight(rec, model.InsightCorroboration, "") {
		t.Errorf("fallback data must not corroborate: %+v", rec.Insights)
	}
}

func TestScore_NotRelevantAndMismatch(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	a := mustAdapter(t, model.AdapterHousing, deps)

	ds := deps.Fallback.Dataset(model.AdapterHousing, model.Geography{State: "TX"}, "")
	rec := a.Score(model.Story{Body: "The school board met on Tuesday."}, ds)
	if rec.Relevant || rec.Confidence != 0 {
		t.Errorf("expected not-relevant record, got %+v", rec)
	}

	energy := deps.Fallback.Dataset(model.AdapterEnergy, model.Geography{State: "TX"}, "")
	rec = a.Score(model.Story{Body: "My rent doubled."}, energy)
	if rec.Relevant || !rec.Degraded {
		t.Errorf("expected failed record for mismatched dataset, got %+v", rec)
	}
}

func TestScore_IsPure(t *testing.T) {
	deps := testDeps(t, "http://127.0.0.1:1", "key")
	a := mustAdapter(t, model.AdapterHousing, deps)

	ds := deps.Fallback.Dataset(model.AdapterHousing, model.Geography{State: "CA"}, "")
	ds.Degraded = false
	story := model.Story{
		ID:       "pure",
		Body:     "Rent is unaffordable; we were evicted from our apartment.",
		Location: model.Location{State: "CA"},
		Impact:   &model.Impact{AffectedPopulation: 300},
	}

	before, err := json.Marshal(ds)
	if err != nil {
		t.Fatal(err)
	}
	first := a.Score(story, ds)
	second := a.Score(story, ds)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Score is not deterministic (-first +second):\n%s", diff)
	}
	after, _ := json.Marshal(ds)
	if string(before) != string(after) {
		t.Errorf("Score mutated the dataset:\nbefore %s\nafter  %s", before, after)
	}
	if story.Impact.AffectedPopulation != 300 {
		t.Error("Score mutated the story")
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatCount(0), "0"},
		{formatCount(999), "999"},
		{formatCount(1000), "1,000"},
		{formatCount(29145505), "29,145,505"},
		{formatCount(-12500), "-12,500"},
		{formatDollars(1350), "$1,350"},
		{formatDollars(2.5e6), "$2.5 million"},
		{formatDollars(4.2e9), "$4.2 billion"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
