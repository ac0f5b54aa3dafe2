package adapters

import (
	"context"
	"fmt"
	"net/url"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// bridgeDataset is the Socrata resource for National Bridge Inventory
// condition ratings
const bridgeDataset = "ndvw-v4ix"

// Infrastructure verifies bridge and road condition claims against the
// National Bridge Inventory
type Infrastructure struct {
	Base
}

// NewInfrastructure creates the infrastructure adapter
func NewInfrastructure(d Deps) (*Infrastructure, error) {
	base, err := newBase(model.AdapterInfrastructure, d, false, "bridge", "poor_condition", "road")
	if err != nil {
		return nil, err
	}
	return &Infrastructure{Base: base}, nil
}

type bridgeConditionRow struct {
	Condition string `json:"bridge_condition"` // G, F, P
	Bridges   number `json:"bridges"`
	Year      number `json:"year"`
}

// Fetch counts bridges by condition rating for the state
func (a *Infrastructure) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	q := url.Values{}
	q.Set("$select", "bridge_condition, max(year) as year, count(*) as bridges")
	q.Set("$where", fmt.Sprintf("state_code='%s'", st.FIPS))
	q.Set("$group", "bridge_condition")
	if a.endpoint.APIKey != "" {
		q.Set("$$app_token", a.endpoint.APIKey)
	}

	var rows []bridgeConditionRow
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url(bridgeDataset+".json"), q, &rows); err != nil {
		return a.degrade(g, err)
	}
	if len(rows) == 0 {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no bridges for %s", st.Code)})
	}

	data := &model.InfrastructureData{}
	for _, r := range rows {
		n := int(r.Bridges)
		data.TotalBridges += n
		switch r.Condition {
		case "G":
			data.GoodBridges += n
		case "F":
			data.FairBridges += n
		case "P":
			data.PoorBridges += n
		}
		if int(r.Year) > data.Year {
			data.Year = int(r.Year)
		}
	}
	data.PoorPct = round1(score.Ratio(float64(data.PoorBridges), float64(data.TotalBridges)))

	return a.live(g, fmt.Sprintf("NBI %d", data.Year), data)
}

// Score checks bridge and road condition claims
func (a *Infrastructure) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.InfrastructureData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("total_bridges", d.TotalBridges)
		card.Metric("poor_bridges", d.PoorBridges)
		card.Metric("poor_pct", d.PoorPct)

		if a.has("bridge", text) {
			if d.PoorPct >= 5 {
				card.Corroborate(w.Strong, fmt.Sprintf("%.1f%% of %s's %s bridges are rated in poor condition",
					d.PoorPct, state, formatCount(int64(d.TotalBridges))))
			} else {
				card.Note(fmt.Sprintf("%.1f%% of %s's %s bridges are rated in poor condition",
					d.PoorPct, state, formatCount(int64(d.TotalBridges))))
			}
		}

		if a.has("poor_condition", text) && d.PoorBridges > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%s bridges in %s are rated poor and %s fair",
				formatCount(int64(d.PoorBridges)), state, formatCount(int64(d.FairBridges))))
		}

		if a.has("road", text) && d.TotalBridges > 0 {
			card.Note(fmt.Sprintf("Bridge inventory covers %s highway bridges in %s", formatCount(int64(d.TotalBridges)), state))
		}
	})
}
