package adapters

import (
	"context"
	"fmt"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// National reference values used in insight text
const (
	nationalPovertyRate  = 11.5
	nationalMedianIncome = 74_755
)

// Demographics verifies population, income and poverty claims against the
// Census American Community Survey
type Demographics struct {
	Base
}

// NewDemographics creates the demographics adapter
func NewDemographics(d Deps) (*Demographics, error) {
	base, err := newBase(model.AdapterDemographics, d, false, "poverty", "income", "elderly", "growth")
	if err != nil {
		return nil, err
	}
	return &Demographics{Base: base}, nil
}

var demographicsVars = []string{
	"B01003_001E", // total population
	"B11001_001E", // households
	"B19013_001E", // median household income
	"B17001_002E", // income below poverty level
	"B17001_001E", // poverty status universe
	"B01002_001E", // median age
}

// Fetch retrieves ACS estimates for the ZIP, or the state without one
func (a *Demographics) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	row, area, err := queryACS(ctx, a.endpoint, st, g, demographicsVars)
	if err != nil {
		return a.degrade(g, err)
	}

	data := &model.DemographicsData{
		Area:                  area,
		Population:            int64(censusFloat(row, "B01003_001E")),
		Households:            int64(censusFloat(row, "B11001_001E")),
		MedianHouseholdIncome: censusFloat(row, "B19013_001E"),
		PovertyRate:           round1(score.Ratio(censusFloat(row, "B17001_002E"), censusFloat(row, "B17001_001E"))),
		MedianAge:             censusFloat(row, "B01002_001E"),
	}
	return a.live(g, "ACS 5-year "+acsYear, data)
}

// Score checks the story against population and income context
func (a *Demographics) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.DemographicsData)
		w := card.Weights()

		card.Metric("population", d.Population)
		card.Metric("poverty_rate", d.PovertyRate)
		card.Metric("median_household_income", d.MedianHouseholdIncome)
		card.Metric("median_age", d.MedianAge)

		checkPopulation(card, story, d.Area, d.Population)

		if a.has("poverty", text) {
			switch {
			case d.PovertyRate >= 15:
				card.Corroborate(w.Strong, fmt.Sprintf("Poverty rate in %s is %.1f%%, well above the national %.1f%%", d.Area, d.PovertyRate, nationalPovertyRate))
			case d.PovertyRate >= nationalPovertyRate:
				card.Corroborate(w.Moderate, fmt.Sprintf("Poverty rate in %s is %.1f%%, above the national %.1f%%", d.Area, d.PovertyRate, nationalPovertyRate))
			default:
				card.Note(fmt.Sprintf("Poverty rate in %s is %.1f%%, below the national %.1f%%", d.Area, d.PovertyRate, nationalPovertyRate))
			}
		}

		if a.has("income", text) && d.MedianHouseholdIncome > 0 {
			if d.MedianHouseholdIncome < nationalMedianIncome {
				card.Corroborate(w.Moderate, fmt.Sprintf("Median household income in %s is %s, below the national median of %s",
					d.Area, formatDollars(d.MedianHouseholdIncome), formatDollars(nationalMedianIncome)))
			} else {
				card.Note(fmt.Sprintf("Median household income in %s is %s", d.Area, formatDollars(d.MedianHouseholdIncome)))
			}
		}

		if a.has("elderly", text) && d.MedianAge >= 40 {
			card.Corroborate(w.Moderate, fmt.Sprintf("Median age in %s is %.1f, older than the national 38.9", d.Area, d.MedianAge))
		}

		if a.has("growth", text) && d.Population > 0 {
			card.Note(fmt.Sprintf("%s has %s residents in %d households", d.Area, formatCount(d.Population), d.Households))
		}
	})
}
