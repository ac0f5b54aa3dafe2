package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// Scorecard field paths
const (
	fieldNetPrice = "latest.cost.avg_net_price.overall"
	fieldTuition  = "latest.cost.tuition.in_state"
	fieldDebt     = "latest.aid.median_debt.completers.overall"
	fieldPell     = "latest.aid.pell_grant_rate"
)

// scorecardYear is the data year of the "latest" Scorecard fields
const scorecardYear = 2022

// HigherEducation verifies college cost and debt claims against the College
// Scorecard
type HigherEducation struct {
	Base
}

// NewHigherEducation creates the higher education adapter
func NewHigherEducation(d Deps) (*HigherEducation, error) {
	base, err := newBase(model.AdapterHigherEducation, d, true, "debt", "tuition", "pell", "first_gen")
	if err != nil {
		return nil, err
	}
	return &HigherEducation{Base: base}, nil
}

type scorecardResponse struct {
	Metadata struct {
		Total int `json:"total"`
	} `json:"metadata"`
	Results []map[string]number `json:"results"`
}

// mean averages a field over the schools reporting it
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v number) {
	if v > 0 {
		m.sum += float64(v)
		m.n++
	}
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Fetch averages cost, debt and Pell share across the state's degree-granting
// institutions
func (a *HigherEducation) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	q := url.Values{}
	q.Set("api_key", a.endpoint.APIKey)
	q.Set("school.state", st.Code)
	q.Set("school.degrees_awarded.predominant__range", "1..4")
	q.Set("fields", strings.Join([]string{fieldNetPrice, fieldTuition, fieldDebt, fieldPell}, ","))
	q.Set("per_page", "100")

	var resp scorecardResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("schools.json"), q, &resp); err != nil {
		return a.degrade(g, err)
	}
	if len(resp.Results) == 0 {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no institutions in %s", st.Code)})
	}

	var netPrice, tuition, debt, pell mean
	for _, r := range resp.Results {
		netPrice.add(r[fieldNetPrice])
		tuition.add(r[fieldTuition])
		debt.add(r[fieldDebt])
		pell.add(r[fieldPell])
	}

	data := &model.HigherEducationData{
		Year:              scorecardYear,
		Institutions:      max(resp.Metadata.Total, len(resp.Results)),
		AvgNetPrice:       round1(netPrice.value()),
		AvgInStateTuition: round1(tuition.value()),
		MedianDebt:        round1(debt.value()),
		PellGrantRate:     round1(pell.value() * 100),
	}
	return a.live(g, fmt.Sprintf("College Scorecard %d", scorecardYear), data)
}

// Score checks tuition, debt and aid claims
func (a *HigherEducation) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.HigherEducationData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("institutions", d.Institutions)
		card.Metric("avg_net_price", d.AvgNetPrice)
		card.Metric("median_debt", d.MedianDebt)
		card.Metric("pell_grant_rate", d.PellGrantRate)

		if a.has("debt", text) && d.MedianDebt >= 15000 {
			card.Corroborate(w.Strong, fmt.Sprintf("Graduates of %s institutions leave with %s in median debt",
				state, formatDollars(d.MedianDebt)))
		}

		if a.has("tuition", text) && d.AvgNetPrice >= 15000 {
			card.Corroborate(w.Moderate, fmt.Sprintf("The average net price at %s institutions is %s per year (in-state tuition %s)",
				state, formatDollars(d.AvgNetPrice), formatDollars(d.AvgInStateTuition)))
		}

		if a.has("pell", text) && d.PellGrantRate >= 30 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%.1f%% of undergraduates in %s receive Pell grants", d.PellGrantRate, state))
		}

		if a.has("first_gen", text) {
			card.Note(fmt.Sprintf("%.1f%% of undergraduates in %s receive Pell grants", d.PellGrantRate, state))
		}
	})
}
