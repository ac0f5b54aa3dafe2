package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/geo"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// NCVS public-use datasets on the OJP Socrata portal
const (
	personalVictimization  = "gcuy-rt5g"
	householdVictimization = "gkck-euys"
)

const (
	ageTwelvePlusShare   = 0.86 // share of population aged 12 and over
	personsPerHousehold  = 2.5
	reportedToPolice     = "1"
	notReportedToPolice  = "2"
	ncvsPublicationDelay = 2 // NCVS microdata trails the calendar by two years
)

// ncvsRegions are the NCVS region codes
var ncvsRegions = map[geo.Region]string{
	geo.Northeast: "1",
	geo.Midwest:   "2",
	geo.South:     "3",
	geo.West:      "4",
}

// Crime verifies victimization and reporting claims against the National
// Crime Victimization Survey. NCVS publishes by census region, not state.
type Crime struct {
	Base
}

// NewCrime creates the crime adapter
func NewCrime(d Deps) (*Crime, error) {
	base, err := newBase(model.AdapterCrime, d, false, "unreported", "violent", "property", "police")
	if err != nil {
		return nil, err
	}
	return &Crime{Base: base}, nil
}

type ncvsRow struct {
	Notify         string `json:"notify"`
	Victimizations number `json:"victimizations"`
}

// victimizations returns weighted reported and unreported counts
func (a *Crime) victimizations(ctx context.Context, dataset, region string, year int) (reported, unreported float64, err error) {
	q := url.Values{}
	q.Set("$select", "notify, sum(wgtviccy) as victimizations")
	q.Set("$where", fmt.Sprintf("year='%d' AND region='%s'", year, region))
	q.Set("$group", "notify")
	if a.endpoint.APIKey != "" {
		q.Set("$$app_token", a.endpoint.APIKey)
	}

	var rows []ncvsRow
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url(dataset+".json"), q, &rows); err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Notify {
		case reportedToPolice:
			reported += float64(r.Victimizations)
		case notReportedToPolice:
			unreported += float64(r.Victimizations)
		}
	}
	return reported, unreported, nil
}

// Fetch retrieves personal and household victimizations for the state's
// census region
func (a *Crime) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	code, ok := ncvsRegions[st.Region]
	if !ok {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("NCVS does not cover %s", st.Name)})
	}

	year := a.now().Year() - ncvsPublicationDelay
	personalReported, personalUnreported, err := a.victimizations(ctx, personalVictimization, code, year)
	if err != nil {
		return a.degrade(g, err)
	}
	householdReported, householdUnreported, err := a.victimizations(ctx, householdVictimization, code, year)
	if err != nil {
		return a.degrade(g, err)
	}

	reported := int64(personalReported + householdReported + 0.5)
	unreported := int64(personalUnreported + householdUnreported + 0.5)
	if reported+unreported == 0 {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no victimizations for %s in %d", st.Region, year)})
	}

	population := float64(geo.RegionPopulation(st.Region))
	data := &model.CrimeData{
		Year:          year,
		Region:        string(st.Region),
		Reported:      reported,
		Unreported:    unreported,
		ReportingRate: round1(score.Percent(float64(reported), float64(unreported))),
		ViolentRate:   round1(ratePerThousand(personalReported+personalUnreported, population*ageTwelvePlusShare)),
		PropertyRate:  round1(ratePerThousand(householdReported+householdUnreported, population/personsPerHousehold)),
	}
	return a.live(g, "NCVS "+strconv.Itoa(year), data)
}

func ratePerThousand(count, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return count / base * 1000
}

// Score checks crime and reporting claims against regional rates
func (a *Crime) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.CrimeData)
		w := card.Weights()

		card.Metric("region", d.Region)
		card.Metric("reporting_rate", d.ReportingRate)
		card.Metric("violent_rate", d.ViolentRate)
		card.Metric("property_rate", d.PropertyRate)

		if a.has("unreported", text) && d.ReportingRate < 50 {
			card.Corroborate(w.Strong, fmt.Sprintf("Only %.1f%% of victimizations in the %s were reported to police in %d",
				d.ReportingRate, d.Region, d.Year))
		}

		if a.has("violent", text) && d.ViolentRate > 20 {
			card.Corroborate(w.Moderate, fmt.Sprintf("The %s recorded %.1f violent victimizations per 1,000 residents age 12+",
				d.Region, d.ViolentRate))
		}

		if a.has("property", text) && d.PropertyRate > 90 {
			card.Corroborate(w.Moderate, fmt.Sprintf("The %s recorded %.1f property victimizations per 1,000 households",
				d.Region, d.PropertyRate))
		}

		if a.has("police", text) {
			card.Note(fmt.Sprintf("%.1f%% of victimizations in the %s were reported to police", d.ReportingRate, d.Region))
		}
	})
}
