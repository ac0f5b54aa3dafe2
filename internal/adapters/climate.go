package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

// Climate verifies heat, drought and rainfall claims against NOAA NCEI
// annual summaries and 1981-2010 normals
type Climate struct {
	Base
}

// NewClimate creates the climate adapter
func NewClimate(d Deps) (*Climate, error) {
	base, err := newBase(model.AdapterClimate, d, true, "heat", "drought", "wet", "warming")
	if err != nil {
		return nil, err
	}
	return &Climate{Base: base}, nil
}

type cdoResponse struct {
	Results []struct {
		Date     string  `json:"date"`
		DataType string  `json:"datatype"`
		Station  string  `json:"station"`
		Value    float64 `json:"value"`
	} `json:"results"`
}

// means averages each datatype across stations
func (r cdoResponse) means() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, res := range r.Results {
		sums[res.DataType] += res.Value
		counts[res.DataType]++
	}
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

func (a *Climate) query(ctx context.Context, q url.Values) (cdoResponse, error) {
	header := http.Header{}
	header.Set("token", a.endpoint.APIKey)
	req := call.Request{URL: a.endpoint.url("data"), Query: q, Header: header}

	var resp cdoResponse
	err := a.endpoint.Caller.DoJSON(ctx, req, &resp)
	return resp, err
}

// Fetch retrieves last year's global summary for the state, then the annual
// normals for comparison. Normals are best effort.
func (a *Climate) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	year := a.now().Year() - 1
	q := url.Values{}
	q.Set("datasetid", "GSOY")
	q.Set("locationid", "FIPS:"+st.FIPS)
	q.Add("datatypeid", "TAVG")
	q.Add("datatypeid", "PRCP")
	q.Add("datatypeid", "DX90")
	q.Set("startdate", fmt.Sprintf("%d-01-01", year))
	q.Set("enddate", fmt.Sprintf("%d-12-31", year))
	q.Set("units", "standard")
	q.Set("limit", "1000")

	summary, err := a.query(ctx, q)
	if err != nil {
		return a.degrade(g, err)
	}
	means := summary.means()
	if _, ok := means["TAVG"]; !ok {
		return a.degrade(g, &call.Failure{Reason: call.ReasonNotFound, Upstream: a.name, Err: fmt.Errorf("no TAVG observations for %s in %d", st.Code, year)})
	}

	data := &model.ClimateData{
		Year:           year,
		AvgTempF:       round1(means["TAVG"]),
		AnnualPrecipIn: round1(means["PRCP"]),
		HeatDays:       int(means["DX90"] + 0.5),
	}

	nq := url.Values{}
	nq.Set("datasetid", "NORMAL_ANN")
	nq.Set("locationid", "FIPS:"+st.FIPS)
	nq.Add("datatypeid", "ANN-TAVG-NORMAL")
	nq.Add("datatypeid", "ANN-PRCP-NORMAL")
	nq.Set("startdate", "2010-01-01")
	nq.Set("enddate", "2010-12-31")
	nq.Set("units", "standard")
	nq.Set("limit", "1000")

	if normals, err := a.query(ctx, nq); err != nil {
		a.logger.Info("climate normals unavailable", zap.Error(err))
	} else {
		nm := normals.means()
		data.NormalTempF = round1(nm["ANN-TAVG-NORMAL"])
		data.NormalPrecipIn = round1(nm["ANN-PRCP-NORMAL"])
		if data.NormalTempF != 0 {
			data.TempAnomalyF = round1(data.AvgTempF - data.NormalTempF)
		}
		if data.NormalPrecipIn > 0 {
			data.PrecipAnomalyPct = round1(score.Ratio(data.AnnualPrecipIn-data.NormalPrecipIn, data.NormalPrecipIn))
		}
	}

	return a.live(g, strconv.Itoa(year), data)
}

// Score checks temperature and precipitation claims
func (a *Climate) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.ClimateData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("avg_temp_f", d.AvgTempF)
		card.Metric("temp_anomaly_f", d.TempAnomalyF)
		card.Metric("precip_anomaly_pct", d.PrecipAnomalyPct)
		card.Metric("heat_days", d.HeatDays)

		if a.has("heat", text) {
			if d.TempAnomalyF > 0 {
				weight := w.Moderate
				if d.TempAnomalyF >= 1 {
					weight = w.Strong
				}
				card.Corroborate(weight, fmt.Sprintf("%s averaged %.1f°F in %d, %.1f°F above normal", state, d.AvgTempF, d.Year, d.TempAnomalyF))
			}
			if d.HeatDays >= 60 {
				card.Corroborate(w.Moderate, fmt.Sprintf("Stations in %s averaged %d days at or above 90°F in %d", state, d.HeatDays, d.Year))
			}
		}

		if a.has("drought", text) && d.PrecipAnomalyPct <= -5 {
			card.Corroborate(w.Strong, fmt.Sprintf("Precipitation in %s was %.1f%% below normal in %d", state, -d.PrecipAnomalyPct, d.Year))
		}

		if a.has("wet", text) && d.PrecipAnomalyPct >= 5 {
			card.Corroborate(w.Strong, fmt.Sprintf("Precipitation in %s was %.1f%% above normal in %d", state, d.PrecipAnomalyPct, d.Year))
		}

		if a.has("warming", text) && d.TempAnomalyF > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%d was warmer than the 1981-2010 normal in %s", d.Year, state))
		}
	})
}
