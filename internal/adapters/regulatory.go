package adapters

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

const (
	regulatoryWindowDays = 365
	listedDocuments      = 20
)

// Regulatory verifies rulemaking claims against the Federal Register
type Regulatory struct {
	Base
}

// NewRegulatory creates the regulatory adapter
func NewRegulatory(d Deps) (*Regulatory, error) {
	base, err := newBase(model.AdapterRegulatory, d, false, "rule", "proposed", "burden")
	if err != nil {
		return nil, err
	}
	return &Regulatory{Base: base}, nil
}

type federalRegisterResponse struct {
	Count   int `json:"count"`
	Results []struct {
		DocumentNumber  string `json:"document_number"`
		Title           string `json:"title"`
		Type            string `json:"type"`
		PublicationDate string `json:"publication_date"`
		Agencies        []struct {
			Name string `json:"name"`
		} `json:"agencies"`
	} `json:"results"`
}

// Fetch retrieves the past year's Federal Register documents mentioning the
// state and counts them by type
func (a *Regulatory) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}

	since := a.now().AddDate(0, 0, -regulatoryWindowDays).Format("2006-01-02")
	q := url.Values{}
	q.Set("conditions[term]", st.Name)
	q.Set("conditions[publication_date][gte]", since)
	q.Set("order", "newest")
	q.Set("per_page", "1000")
	for _, f := range []string{"document_number", "title", "type", "publication_date", "agencies"} {
		q.Add("fields[]", f)
	}

	var resp federalRegisterResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("documents.json"), q, &resp); err != nil {
		return a.degrade(g, err)
	}

	data := &model.RegulatoryData{
		TotalCount: max(resp.Count, len(resp.Results)),
		Agencies:   []string{},
		Documents:  []model.RegDocument{},
	}
	agencyCounts := make(map[string]int)
	for _, r := range resp.Results {
		switch r.Type {
		case "Rule":
			data.RuleCount++
		case "Proposed Rule":
			data.ProposedRuleCount++
		case "Notice":
			data.NoticeCount++
		}
		names := make([]string, 0, len(r.Agencies))
		for _, ag := range r.Agencies {
			if ag.Name == "" {
				continue
			}
			names = append(names, ag.Name)
			agencyCounts[ag.Name]++
		}
		if len(data.Documents) < listedDocuments {
			data.Documents = append(data.Documents, model.RegDocument{
				DocumentNumber:  r.DocumentNumber,
				Title:           r.Title,
				Type:            r.Type,
				Agencies:        names,
				PublicationDate: r.PublicationDate,
			})
		}
	}
	data.Agencies = rankAgencies(agencyCounts)

	return a.live(g, "Federal Register since "+since, data)
}

// rankAgencies orders agencies by document count, then name
func rankAgencies(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for name := range counts {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Score checks rulemaking claims against recent Federal Register activity
func (a *Regulatory) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.RegulatoryData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("total_count", d.TotalCount)
		card.Metric("rule_count", d.RuleCount)
		card.Metric("proposed_rule_count", d.ProposedRuleCount)

		if a.has("rule", text) && d.RuleCount > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%d final rules mentioning %s were published in the past year", d.RuleCount, state))
		}

		if a.has("proposed", text) && d.ProposedRuleCount > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%d proposed rules mentioning %s were published in the past year", d.ProposedRuleCount, state))
		}

		active := make(map[string]bool, len(d.Agencies))
		for _, name := range d.Agencies {
			active[name] = true
		}
		for _, name := range a.rules.Agencies(text) {
			if active[name] {
				card.Corroborate(w.Minor, fmt.Sprintf("%s published Federal Register documents mentioning %s", name, state))
			}
		}

		if a.has("burden", text) {
			card.Note(fmt.Sprintf("%d Federal Register documents mentioned %s in the past year", d.TotalCount, state))
		}
	})
}
