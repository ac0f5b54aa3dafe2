package adapters

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// affordabilityThreshold is HUD's cost-burden line: rent above 30% of income
const affordabilityThreshold = 30.0

// Housing verifies rent and affordability claims against HUD fair market
// rents and Census ACS rent burden
type Housing struct {
	Base
	census Endpoint
}

// NewHousing creates the housing adapter. d.Census is the ACS endpoint.
func NewHousing(d Deps) (*Housing, error) {
	base, err := newBase(model.AdapterHousing, d, true, "rent", "afford", "eviction", "homeless")
	if err != nil {
		return nil, err
	}
	if d.Census.Caller == nil || d.Census.BaseURL == "" {
		return nil, fmt.Errorf("%s: census endpoint is required", model.AdapterHousing)
	}
	return &Housing{Base: base, census: d.Census}, nil
}

type fmrResponse struct {
	Data struct {
		Year     string `json:"year"`
		Counties []struct {
			TwoBedroom number `json:"Two-Bedroom"`
		} `json:"counties"`
		MetroAreas []struct {
			TwoBedroom number `json:"Two-Bedroom"`
		} `json:"metroareas"`
	} `json:"data"`
}

var housingVars = []string{
	"B25064_001E", // median gross rent
	"B25071_001E", // median gross rent as a percentage of household income
	"B01003_001E", // total population
	"B25003_003E", // renter-occupied housing units
}

// Fetch retrieves state fair market rents, then ACS rent burden for the ZIP
// or state
func (a *Housing) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	var fmr fmrResponse
	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.endpoint.APIKey)
	req := call.Request{URL: a.endpoint.url("fmr/statedata/" + st.Code), Header: header}
	if err := a.endpoint.Caller.DoJSON(ctx, req, &fmr); err != nil {
		return a.degrade(g, err)
	}

	row, _, err := queryACS(ctx, a.census, st, g, housingVars)
	if err != nil {
		return a.degrade(g, err)
	}

	year, _ := strconv.Atoi(fmr.Data.Year)
	data := &model.HousingData{
		Year:              year,
		FairMarketRent2BR: averageTwoBedroom(fmr),
		MedianGrossRent:   censusFloat(row, "B25064_001E"),
		RentBurdenRatio:   censusFloat(row, "B25071_001E"),
		Population:        int64(censusFloat(row, "B01003_001E")),
		RenterHouseholds:  int64(censusFloat(row, "B25003_003E")),
	}
	return a.live(g, fmt.Sprintf("FMR FY%d, ACS 5-year %s", year, acsYear), data)
}

func averageTwoBedroom(fmr fmrResponse) float64 {
	var sum float64
	var n int
	for _, c := range fmr.Data.Counties {
		if c.TwoBedroom > 0 {
			sum += float64(c.TwoBedroom)
			n++
		}
	}
	if n == 0 {
		for _, m := range fmr.Data.MetroAreas {
			if m.TwoBedroom > 0 {
				sum += float64(m.TwoBedroom)
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum / float64(n))
}

// Score checks rent and affordability claims
func (a *Housing) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.HousingData)
		w := card.Weights()
		area := ds.Geography.Key()

		card.Metric("rent_burden_ratio", d.RentBurdenRatio)
		card.Metric("median_gross_rent", d.MedianGrossRent)
		card.Metric("fair_market_rent_2br", d.FairMarketRent2BR)
		card.Metric("population", d.Population)

		checkPopulation(card, story, area, d.Population)

		burdened := d.RentBurdenRatio >= affordabilityThreshold
		if a.has("rent", text) {
			if burdened {
				card.Corroborate(w.Strong, fmt.Sprintf("Median rent burden ratio in %s is %.1f%% of household income, above the %.0f%% affordability threshold",
					area, d.RentBurdenRatio, affordabilityThreshold))
			} else {
				card.Note(fmt.Sprintf("Median rent burden ratio in %s is %.1f%% of household income", area, d.RentBurdenRatio))
			}
		}

		if a.has("afford", text) && burdened {
			card.Corroborate(w.Moderate, fmt.Sprintf("Renters in %s are cost-burdened on average: median gross rent is %s",
				area, formatDollars(d.MedianGrossRent)))
		}

		if a.has("eviction", text) && d.RentBurdenRatio >= 35 {
			card.Corroborate(w.Minor, fmt.Sprintf("Severe rent burden (%.1f%%) is associated with elevated eviction risk", d.RentBurdenRatio))
		}

		if a.has("homeless", text) && d.RenterHouseholds > 0 {
			card.Note(fmt.Sprintf("%s has %s renter households", area, formatCount(d.RenterHouseholds)))
		}

		if claimed := story.EconomicAmount(); claimed > 0 && d.FairMarketRent2BR > 0 {
			if claimed >= d.FairMarketRent2BR*0.5 && claimed <= d.FairMarketRent2BR*2 {
				card.Corroborate(w.Minor, fmt.Sprintf("Claimed %s is consistent with the two-bedroom fair market rent of %s",
					formatDollars(claimed), formatDollars(d.FairMarketRent2BR)))
			}
		}
	})
}
