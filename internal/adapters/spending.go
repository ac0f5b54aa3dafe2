package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

const topAgencies = 5

// Spending verifies federal funding claims against USAspending obligations
type Spending struct {
	Base
}

// NewSpending creates the spending adapter
func NewSpending(d Deps) (*Spending, error) {
	base, err := newBase(model.AdapterSpending, d, false, "federal", "cut", "increase")
	if err != nil {
		return nil, err
	}
	return &Spending{Base: base}, nil
}

type stateProfile struct {
	Name             string `json:"name"`
	Population       number `json:"population"`
	TotalPrimeAmount number `json:"total_prime_amount"`
}

type agencyCategoryRequest struct {
	Filters struct {
		TimePeriod []timePeriod     `json:"time_period"`
		Locations  []locationFilter `json:"place_of_performance_locations"`
	} `json:"filters"`
	Limit int `json:"limit"`
}

type timePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type locationFilter struct {
	Country string `json:"country"`
	State   string `json:"state"`
}

type agencyCategoryResponse struct {
	Results []struct {
		Name   string `json:"name"`
		Amount number `json:"amount"`
	} `json:"results"`
}

// lastFiscalYear returns the most recent complete federal fiscal year.
// Fiscal years run October through September.
func lastFiscalYear(now time.Time) int {
	if now.Month() >= time.October {
		return now.Year()
	}
	return now.Year() - 1
}

func (a *Spending) profile(ctx context.Context, fips string, year int) (stateProfile, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	var p stateProfile
	err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("recipient/state/"+fips+"/"), q, &p)
	return p, err
}

// Fetch retrieves state obligations for the last two complete fiscal years,
// then the top awarding agencies. Agencies are best effort.
func (a *Spending) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	fy := lastFiscalYear(a.now())
	current, err := a.profile(ctx, st.FIPS, fy)
	if err != nil {
		return a.degrade(g, err)
	}
	if current.TotalPrimeAmount <= 0 {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no obligations for %s in FY%d", st.Code, fy)})
	}

	data := &model.SpendingData{
		FiscalYear:       fy,
		TotalObligations: float64(current.TotalPrimeAmount),
		Population:       int64(current.Population),
		TopAgencies:      []model.AgencyAmount{},
	}
	if data.Population > 0 {
		data.PerCapita = round1(data.TotalObligations / float64(data.Population))
	}

	if prior, err := a.profile(ctx, st.FIPS, fy-1); err != nil {
		a.logger.Info("prior year obligations unavailable", zap.Error(err))
	} else if prior.TotalPrimeAmount > 0 {
		data.PriorObligations = float64(prior.TotalPrimeAmount)
		data.ChangePct = round1(score.Ratio(data.TotalObligations-data.PriorObligations, data.PriorObligations))
	}

	if agencies, err := a.agencies(ctx, st.Code, fy); err != nil {
		a.logger.Info("awarding agencies unavailable", zap.Error(err))
	} else {
		data.TopAgencies = capAgencies(agencies, data.TotalObligations)
	}

	return a.live(g, fmt.Sprintf("FY%d", fy), data)
}

func (a *Spending) agencies(ctx context.Context, state string, fy int) ([]model.AgencyAmount, error) {
	var body agencyCategoryRequest
	body.Filters.TimePeriod = []timePeriod{{
		StartDate: fmt.Sprintf("%d-10-01", fy-1),
		EndDate:   fmt.Sprintf("%d-09-30", fy),
	}}
	body.Filters.Locations = []locationFilter{{Country: "USA", State: state}}
	body.Limit = topAgencies

	var resp agencyCategoryResponse
	if err := a.endpoint.Caller.PostJSON(ctx, a.endpoint.url("search/spending_by_category/awarding_agency/"), body, &resp); err != nil {
		return nil, err
	}
	out := make([]model.AgencyAmount, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Amount > 0 {
			out = append(out, model.AgencyAmount{Name: r.Name, Amount: float64(r.Amount)})
		}
	}
	return out, nil
}

// capAgencies keeps agencies in rank order while their sum stays within the
// state total. Award-level and recipient-level totals are computed differently
// upstream and do not always reconcile.
func capAgencies(agencies []model.AgencyAmount, total float64) []model.AgencyAmount {
	out := []model.AgencyAmount{}
	var sum float64
	for _, ag := range agencies {
		if sum+ag.Amount > total {
			break
		}
		sum += ag.Amount
		out = append(out, ag)
	}
	return out
}

// Score checks funding claims against obligations and awarding agencies
func (a *Spending) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.SpendingData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("total_obligations", d.TotalObligations)
		card.Metric("change_pct", d.ChangePct)
		card.Metric("per_capita", d.PerCapita)

		if a.has("federal", text) && d.TotalObligations > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%s received %s in federal obligations in FY%d (%s per resident)",
				state, formatDollars(d.TotalObligations), d.FiscalYear, formatDollars(d.PerCapita)))
		}

		if a.has("cut", text) && d.ChangePct < 0 {
			card.Corroborate(w.Strong, fmt.Sprintf("Federal obligations to %s fell %.1f%% from FY%d to FY%d",
				state, -d.ChangePct, d.FiscalYear-1, d.FiscalYear))
		}
		if a.has("increase", text) && d.ChangePct > 0 {
			card.Corroborate(w.Strong, fmt.Sprintf("Federal obligations to %s rose %.1f%% from FY%d to FY%d",
				state, d.ChangePct, d.FiscalYear-1, d.FiscalYear))
		}

		for _, name := range a.rules.Agencies(text) {
			for _, ag := range d.TopAgencies {
				if ag.Name == name {
					card.Corroborate(w.Minor, fmt.Sprintf("%s is a top awarding agency in %s (%s)", name, state, formatDollars(ag.Amount)))
				}
			}
		}

		if claimed := story.EconomicAmount(); claimed > 0 && d.TotalObligations > 0 && claimed > d.TotalObligations {
			card.Implausible(fmt.Sprintf("Claimed %s exceeds all federal obligations to %s in FY%d (%s)",
				formatDollars(claimed), state, d.FiscalYear, formatDollars(d.TotalObligations)))
		}
	})
}
