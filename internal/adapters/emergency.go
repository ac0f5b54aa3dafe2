package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

const (
	maxDeclarations    = 1000
	listedDeclarations = 10
	recentYears        = 5
)

// Emergency verifies disaster claims against OpenFEMA declaration history
type Emergency struct {
	Base
}

// NewEmergency creates the emergency adapter
func NewEmergency(d Deps) (*Emergency, error) {
	base, err := newBase(model.AdapterEmergency, d, false, "fema", "aid", "recurring")
	if err != nil {
		return nil, err
	}
	return &Emergency{Base: base}, nil
}

type femaDeclarationsResponse struct {
	Declarations []struct {
		DisasterNumber   int    `json:"disasterNumber"`
		DeclarationType  string `json:"declarationType"`
		IncidentType     string `json:"incidentType"`
		DeclarationTitle string `json:"declarationTitle"`
		DeclarationDate  string `json:"declarationDate"`
	} `json:"DisasterDeclarationsSummaries"`
}

type femaSummariesResponse struct {
	Summaries []struct {
		DisasterNumber         int    `json:"disasterNumber"`
		TotalAmountIhpApproved number `json:"totalAmountIhpApproved"`
	} `json:"FemaWebDisasterSummaries"`
}

// Fetch retrieves the state's declaration history, then approved individual
// assistance for the most recent disasters. Assistance totals are best effort.
func (a *Emergency) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("state eq '%s'", st.Code))
	q.Set("$orderby", "declarationDate desc")
	q.Set("$select", "disasterNumber,declarationType,incidentType,declarationTitle,declarationDate")
	q.Set("$top", fmt.Sprint(maxDeclarations))

	var resp femaDeclarationsResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("v2/DisasterDeclarationsSummaries"), q, &resp); err != nil {
		return a.degrade(g, err)
	}

	// summaries repeat per designated county; keep one row per disaster
	seen := make(map[int]bool)
	data := &model.EmergencyData{
		Declarations:   []model.Declaration{},
		IncidentCounts: make(map[string]int),
	}
	cutoff := a.now().AddDate(-recentYears, 0, 0)
	for _, d := range resp.Declarations {
		if seen[d.DisasterNumber] {
			continue
		}
		seen[d.DisasterNumber] = true

		data.TotalDeclarations++
		data.IncidentCounts[d.IncidentType]++
		declared, err := time.Parse(time.RFC3339, d.DeclarationDate)
		if err == nil && declared.After(cutoff) {
			data.RecentDeclarations++
		}
		if len(data.Declarations) < listedDeclarations {
			data.Declarations = append(data.Declarations, model.Declaration{
				Number:       d.DisasterNumber,
				Type:         d.DeclarationType,
				IncidentType: d.IncidentType,
				Title:        d.DeclarationTitle,
				DeclaredOn:   dateOnly(d.DeclarationDate),
			})
		}
	}

	if ihp, err := a.approvedAssistance(ctx, data.Declarations); err != nil {
		a.logger.Info("individual assistance totals unavailable", zap.Error(err))
	} else {
		data.IHPApproved = ihp
	}

	return a.live(g, "OpenFEMA v2", data)
}

func (a *Emergency) approvedAssistance(ctx context.Context, decls []model.Declaration) (float64, error) {
	if len(decls) == 0 {
		return 0, nil
	}
	clauses := make([]string, len(decls))
	for i, d := range decls {
		clauses[i] = fmt.Sprintf("disasterNumber eq %d", d.Number)
	}
	q := url.Values{}
	q.Set("$filter", strings.Join(clauses, " or "))
	q.Set("$select", "disasterNumber,totalAmountIhpApproved")

	var resp femaSummariesResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("v1/FemaWebDisasterSummaries"), q, &resp); err != nil {
		return 0, err
	}
	var total float64
	for _, s := range resp.Summaries {
		if s.TotalAmountIhpApproved > 0 {
			total += float64(s.TotalAmountIhpApproved)
		}
	}
	return total, nil
}

func dateOnly(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// Score checks disaster claims against declaration history
func (a *Emergency) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.EmergencyData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("total_declarations", d.TotalDeclarations)
		card.Metric("recent_declarations", d.RecentDeclarations)
		card.Metric("ihp_approved", d.IHPApproved)

		var matched []string
		for _, incident := range a.rules.Incidents(text) {
			if d.HasIncident(incident) {
				matched = append(matched, incident)
				card.Corroborate(w.Minor, fmt.Sprintf("%s has %d federal %s declaration(s) on record",
					state, d.IncidentCounts[incident], strings.ToLower(incident)))
			}
		}
		card.Metric("matched_incidents", matched)

		if a.has("fema", text) && d.TotalDeclarations > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("FEMA has issued %d disaster declarations for %s", d.TotalDeclarations, state))
		}

		if a.has("aid", text) && d.IHPApproved > 0 {
			card.Corroborate(w.Minor, fmt.Sprintf("%s in individual assistance approved for recent %s disasters", formatDollars(d.IHPApproved), state))
		}

		if a.has("recurring", text) && d.RecentDeclarations >= 3 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%s had %d declarations in the last %d years", state, d.RecentDeclarations, recentYears))
		}
	})
}
