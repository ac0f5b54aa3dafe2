package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// defaultNationalPrice is used when the national series cannot be fetched
const defaultNationalPrice = 16.0

// Energy verifies electricity price claims against EIA retail sales and
// generation data
type Energy struct {
	Base
}

// NewEnergy creates the energy adapter
func NewEnergy(d Deps) (*Energy, error) {
	base, err := newBase(model.AdapterEnergy, d, true, "price", "increase", "renewable", "outage")
	if err != nil {
		return nil, err
	}
	return &Energy{Base: base}, nil
}

type eiaResponse struct {
	Response struct {
		Data []eiaRow `json:"data"`
	} `json:"response"`
}

type eiaRow struct {
	Period     string `json:"period"`
	StateID    string `json:"stateid"`
	Location   string `json:"location"`
	FuelTypeID string `json:"fueltypeid"`
	Price      number `json:"price"`
	Generation number `json:"generation"`
}

func (a *Energy) retailQuery(state string) url.Values {
	q := url.Values{}
	q.Set("api_key", a.endpoint.APIKey)
	q.Set("frequency", "annual")
	q.Set("data[0]", "price")
	q.Set("facets[stateid][]", state)
	q.Set("facets[sectorid][]", "RES")
	q.Set("sort[0][column]", "period")
	q.Set("sort[0][direction]", "desc")
	q.Set("length", "2")
	return q
}

// Fetch retrieves the two latest annual residential prices for the state,
// then the national price and renewable generation share. The secondary
// series are best effort.
func (a *Energy) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	var state eiaResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("electricity/retail-sales/data/"), a.retailQuery(st.Code), &state); err != nil {
		return a.degrade(g, err)
	}
	rows := state.Response.Data
	if len(rows) == 0 {
		return a.degrade(g, fmt.Errorf("no retail price rows for %s", st.Code))
	}

	year, _ := strconv.Atoi(rows[0].Period)
	data := &model.EnergyData{
		Year:                  year,
		ResidentialPriceCents: float64(rows[0].Price),
		NationalAvgCents:      defaultNationalPrice,
	}
	if len(rows) > 1 && rows[1].Price > 0 {
		data.PreviousPriceCents = float64(rows[1].Price)
		data.PriceChangePct = round1(score.Ratio(data.ResidentialPriceCents-data.PreviousPriceCents, data.PreviousPriceCents))
	}

	var national eiaResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("electricity/retail-sales/data/"), a.retailQuery("US"), &national); err != nil {
		a.logger.Info("national price unavailable, using default", zap.Error(err))
	} else if len(national.Response.Data) > 0 && national.Response.Data[0].Price > 0 {
		data.NationalAvgCents = float64(national.Response.Data[0].Price)
	}

	if share, err := a.renewableShare(ctx, st.Code, rows[0].Period); err != nil {
		a.logger.Info("renewable share unavailable", zap.Error(err))
	} else {
		data.RenewableSharePct = share
	}

	return a.live(g, rows[0].Period, data)
}

// renewableShare returns renewable generation as a percent of all generation
func (a *Energy) renewableShare(ctx context.Context, state, period string) (float64, error) {
	q := url.Values{}
	q.Set("api_key", a.endpoint.APIKey)
	q.Set("frequency", "annual")
	q.Set("data[0]", "generation")
	q.Set("facets[location][]", state)
	q.Set("facets[sectorid][]", "99")
	q.Add("facets[fueltypeid][]", "ALL")
	q.Add("facets[fueltypeid][]", "AOR")
	q.Set("start", period)
	q.Set("end", period)

	var resp eiaResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("electricity/electric-power-operational-data/data/"), q, &resp); err != nil {
		return 0, err
	}

	var all, renewable float64
	for _, r := range resp.Response.Data {
		switch r.FuelTypeID {
		case "ALL":
			all += float64(r.Generation)
		case "AOR":
			renewable += float64(r.Generation)
		}
	}
	if renewable > all {
		renewable = all
	}
	return round1(score.Ratio(renewable, all)), nil
}

// Score checks price and supply claims
func (a *Energy) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.EnergyData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("residential_price_cents", d.ResidentialPriceCents)
		card.Metric("national_avg_cents", d.NationalAvgCents)
		card.Metric("price_change_pct", d.PriceChangePct)
		card.Metric("renewable_share_pct", d.RenewableSharePct)

		if a.has("price", text) {
			if d.ResidentialPriceCents > d.NationalAvgCents {
				card.Corroborate(w.Strong, fmt.Sprintf("Residential electricity in %s costs %.1f¢/kWh, above the national %.1f¢",
					state, d.ResidentialPriceCents, d.NationalAvgCents))
			} else {
				card.Note(fmt.Sprintf("Residential electricity in %s costs %.1f¢/kWh (national %.1f¢)",
					state, d.ResidentialPriceCents, d.NationalAvgCents))
			}
		}

		if a.has("increase", text) && d.PriceChangePct > 0 {
			weight := w.Moderate
			if d.PriceChangePct >= 5 {
				weight = w.Strong
			}
			card.Corroborate(weight, fmt.Sprintf("Residential prices in %s rose %.1f%% year over year", state, d.PriceChangePct))
		}

		if a.has("renewable", text) && d.RenewableSharePct >= 20 {
			card.Corroborate(w.Minor, fmt.Sprintf("Renewables supply %.1f%% of %s generation", d.RenewableSharePct, state))
		}

		if a.has("outage", text) {
			card.Note("Outage claims are not covered by annual price data")
		}
	})
}
