package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// fewFacilities is the facility count below which access claims are credible
const fewFacilities = 40

// Veterans verifies VA access and wait-time claims against the VA Facilities
// API
type Veterans struct {
	Base
}

// NewVeterans creates the veterans adapter
func NewVeterans(d Deps) (*Veterans, error) {
	base, err := newBase(model.AdapterVeterans, d, true, "va", "wait", "benefits", "access")
	if err != nil {
		return nil, err
	}
	return &Veterans{Base: base}, nil
}

type vaFacilitiesResponse struct {
	Data []struct {
		Attributes struct {
			Name         string `json:"name"`
			FacilityType string `json:"facilityType"` // va_health_facility, va_benefits_facility, vet_center, va_cemetery
			WaitTimes    struct {
				Health []struct {
					Service string `json:"service"`
					New     number `json:"new"`
				} `json:"health"`
			} `json:"waitTimes"`
		} `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Pagination struct {
			TotalEntries int `json:"totalEntries"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Fetch counts the state's facilities by type and averages new-patient
// primary care wait times
func (a *Veterans) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	q := url.Values{}
	q.Set("state", st.Code)
	q.Set("per_page", "1000")
	header := http.Header{}
	header.Set("apikey", a.endpoint.APIKey)

	var resp vaFacilitiesResponse
	req := call.Request{URL: a.endpoint.url("facilities"), Query: q, Header: header}
	if err := a.endpoint.Caller.DoJSON(ctx, req, &resp); err != nil {
		return a.degrade(g, err)
	}
	if len(resp.Data) == 0 {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no facilities in %s", st.Code)})
	}

	data := &model.VeteransData{Facilities: max(resp.Meta.Pagination.TotalEntries, len(resp.Data))}
	var wait mean
	for _, f := range resp.Data {
		switch f.Attributes.FacilityType {
		case "va_health_facility":
			data.HealthFacilities++
		case "va_benefits_facility":
			data.BenefitsOffices++
		case "vet_center":
			data.VetCenters++
		}
		for _, w := range f.Attributes.WaitTimes.Health {
			if w.Service == "PrimaryCare" {
				wait.add(w.New)
			}
		}
	}
	data.AvgWaitDays = round1(wait.value())

	return a.live(g, "VA Facilities v1", data)
}

// Score checks access, wait and benefits claims
func (a *Veterans) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.VeteransData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("facilities", d.Facilities)
		card.Metric("health_facilities", d.HealthFacilities)
		card.Metric("avg_wait_days", d.AvgWaitDays)

		if a.has("va", text) && d.Facilities > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("VA operates %d facilities in %s, %d of them health facilities",
				d.Facilities, state, d.HealthFacilities))
		}

		if a.has("wait", text) && d.AvgWaitDays >= 20 {
			card.Corroborate(w.Strong, fmt.Sprintf("New patients wait %.1f days on average for VA primary care in %s",
				d.AvgWaitDays, state))
		}

		if a.has("benefits", text) && d.BenefitsOffices > 0 {
			card.Corroborate(w.Minor, fmt.Sprintf("%s has %d VA benefits offices", state, d.BenefitsOffices))
		}

		if a.has("access", text) && d.Facilities < fewFacilities {
			card.Corroborate(w.Moderate, fmt.Sprintf("Only %d VA facilities serve all of %s", d.Facilities, state))
		}
	})
}
