package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// demoKey is the rate-limited api.data.gov key accepted without signup
const demoKey = "DEMO_KEY"

const listedCandidates = 10

// CampaignFinance verifies fundraising claims against FEC candidate totals
type CampaignFinance struct {
	Base
}

// NewCampaignFinance creates the campaign finance adapter. Without a key it
// uses DEMO_KEY.
func NewCampaignFinance(d Deps) (*CampaignFinance, error) {
	if d.Endpoint.APIKey == "" {
		d.Endpoint.APIKey = demoKey
	}
	base, err := newBase(model.AdapterCampaignFinance, d, false, "money", "outside")
	if err != nil {
		return nil, err
	}
	return &CampaignFinance{Base: base}, nil
}

type fecTotalsResponse struct {
	Pagination struct {
		Count int `json:"count"`
	} `json:"pagination"`
	Results []struct {
		Name                    string `json:"name"`
		Party                   string `json:"party"`
		OfficeFull              string `json:"office_full"`
		Receipts                number `json:"receipts"`
		Disbursements           number `json:"disbursements"`
		OtherPoliticalCommittee number `json:"other_political_committee_contributions"`
	} `json:"results"`
}

// electionCycle returns the two-year cycle ending in or after year
func electionCycle(year int) int {
	if year%2 == 1 {
		return year + 1
	}
	return year
}

// Fetch retrieves candidate totals for the state's current cycle
func (a *CampaignFinance) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	cycle := electionCycle(a.now().Year())
	q := url.Values{}
	q.Set("api_key", a.endpoint.APIKey)
	q.Set("state", st.Code)
	q.Set("election_year", strconv.Itoa(cycle))
	q.Set("cycle", strconv.Itoa(cycle))
	q.Set("per_page", "100")
	q.Set("sort", "-receipts")

	var resp fecTotalsResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("candidates/totals/"), q, &resp); err != nil {
		return a.degrade(g, err)
	}

	data := &model.CampaignFinanceData{
		Cycle:          cycle,
		CandidateCount: resp.Pagination.Count,
		TopCandidates:  []model.Candidate{},
	}
	if data.CandidateCount < len(resp.Results) {
		data.CandidateCount = len(resp.Results)
	}
	for _, r := range resp.Results {
		data.TotalReceipts += float64(r.Receipts)
		data.TotalDisbursements += float64(r.Disbursements)
		data.PACContributions += float64(r.OtherPoliticalCommittee)
		if len(data.TopCandidates) < listedCandidates {
			data.TopCandidates = append(data.TopCandidates, model.Candidate{
				Name:     r.Name,
				Party:    r.Party,
				Office:   r.OfficeFull,
				Receipts: float64(r.Receipts),
			})
		}
	}
	return a.live(g, fmt.Sprintf("FEC %d cycle", cycle), data)
}

// Score checks fundraising claims against reported totals
func (a *CampaignFinance) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.CampaignFinanceData)
		w := card.Weights()
		state := ds.Geography.State
		pacShare := score.Ratio(d.PACContributions, d.TotalReceipts)

		card.Metric("candidate_count", d.CandidateCount)
		card.Metric("total_receipts", d.TotalReceipts)
		card.Metric("pac_share_pct", round1(pacShare))

		if a.has("money", text) && d.TotalReceipts > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%d candidates in %s raised %s in the %d cycle",
				d.CandidateCount, state, formatDollars(d.TotalReceipts), d.Cycle))
		}

		if a.has("outside", text) && pacShare >= 10 {
			card.Corroborate(w.Strong, fmt.Sprintf("PACs and other committees supplied %.1f%% of candidate receipts in %s",
				pacShare, state))
		}

		for _, c := range d.TopCandidates {
			if mentionsSurname(c.Name, text) {
				card.Corroborate(w.Minor, fmt.Sprintf("%s reported %s in receipts", c.Name, formatDollars(c.Receipts)))
			}
		}
	})
}
