package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/score"
)

const recentBills = 50

// billRef matches bill citations such as "H.R. 1234", "HR1234" or "S. 56"
var billRef = regexp.MustCompile(`\b(H\.?\s?R|H\.?\s?Res|S\.?\s?Res|H\.?\s?J\.?\s?Res|S\.?\s?J\.?\s?Res|S)\.?\s?(\d{1,5})\b`)

// Legislative verifies claims about members of Congress and bills against
// Congress.gov
type Legislative struct {
	Base
}

// NewLegislative creates the legislative adapter
func NewLegislative(d Deps) (*Legislative, error) {
	base, err := newBase(model.AdapterLegislative, d, true, "bill", "member", "vote")
	if err != nil {
		return nil, err
	}
	return &Legislative{Base: base}, nil
}

type congressMembersResponse struct {
	Members []struct {
		Name      string `json:"name"` // "Last, First"
		PartyName string `json:"partyName"`
		District  number `json:"district"`
		Terms     struct {
			Item []struct {
				Chamber   string `json:"chamber"`
				StartYear int    `json:"startYear"`
			} `json:"item"`
		} `json:"terms"`
	} `json:"members"`
}

type congressBillsResponse struct {
	Bills []struct {
		Congress     int    `json:"congress"`
		Number       string `json:"number"`
		Type         string `json:"type"`
		Title        string `json:"title"`
		LatestAction struct {
			ActionDate string `json:"actionDate"`
			Text       string `json:"text"`
		} `json:"latestAction"`
	} `json:"bills"`
}

// currentCongress returns the Congress in session during year
func currentCongress(year int) int {
	return (year-1789)/2 + 1
}

func (a *Legislative) query() url.Values {
	q := url.Values{}
	q.Set("api_key", a.endpoint.APIKey)
	q.Set("format", "json")
	return q
}

// Fetch retrieves the state's sitting delegation, then recently updated
// bills. Bills are best effort.
func (a *Legislative) Fetch(ctx context.Context, g model.Geography) model.SourceDataset {
	st, err := a.state(g)
	if err != nil {
		return a.degrade(g, err)
	}
	if err := a.requireKey(); err != nil {
		return a.degrade(g, err)
	}

	mq := a.query()
	mq.Set("currentMember", "true")
	mq.Set("limit", "250")

	var members congressMembersResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("member/"+st.Code), mq, &members); err != nil {
		return a.degrade(g, err)
	}

	data := &model.LegislativeData{
		Congress: currentCongress(a.now().Year()),
		Members:  []model.Member{},
		Bills:    []model.Bill{},
	}
	for _, m := range members.Members {
		chamber := "House"
		if terms := m.Terms.Item; len(terms) > 0 && terms[len(terms)-1].Chamber == "Senate" {
			chamber = "Senate"
		}
		data.Members = append(data.Members, model.Member{
			Name:     m.Name,
			Party:    m.PartyName,
			Chamber:  chamber,
			District: int(m.District),
		})
	}

	bq := a.query()
	bq.Set("sort", "updateDate desc")
	bq.Set("limit", fmt.Sprint(recentBills))

	var bills congressBillsResponse
	if err := a.endpoint.Caller.GetJSON(ctx, a.endpoint.url("bill"), bq, &bills); err != nil {
		a.logger.Info("recent bills unavailable", zap.Error(err))
	} else {
		for _, b := range bills.Bills {
			data.Bills = append(data.Bills, model.Bill{
				Number:       strings.ToUpper(b.Type) + " " + b.Number,
				Title:        b.Title,
				LatestAction: b.LatestAction.Text,
				ActionDate:   b.LatestAction.ActionDate,
			})
		}
	}

	return a.live(g, fmt.Sprintf("%dth Congress", data.Congress), data)
}

// citedBills returns normalized bill numbers cited in text, e.g. "HR 1234"
func citedBills(text string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range billRef.FindAllStringSubmatch(text, -1) {
		kind := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(m[1]))
		out[kind+" "+m[2]] = true
	}
	return out
}

// Score checks claims about the delegation and cited bills
func (a *Legislative) Score(story model.Story, ds model.SourceDataset) model.VerificationRecord {
	return a.evaluate(story, ds, func(card *score.Card, text string) {
		d := ds.Payload.(*model.LegislativeData)
		w := card.Weights()
		state := ds.Geography.State

		card.Metric("congress", d.Congress)
		card.Metric("members", len(d.Members))
		card.Metric("bills", len(d.Bills))

		if a.has("member", text) && len(d.Members) > 0 {
			card.Corroborate(w.Moderate, fmt.Sprintf("%s is represented by %d sitting members of the %dth Congress",
				state, len(d.Members), d.Congress))
		}

		for _, m := range d.Members {
			if !mentionsSurname(m.Name, text) {
				continue
			}
			card.Corroborate(w.Strong, fmt.Sprintf("%s (%s) is a sitting %s member from %s", m.Name, m.Party, m.Chamber, state))
			break
		}

		matched := false
		if cited := citedBills(text); len(cited) > 0 {
			for _, b := range d.Bills {
				if cited[b.Number] {
					card.Corroborate(w.Strong, fmt.Sprintf("%s (%s) latest action %s: %s", b.Number, b.Title, b.ActionDate, b.LatestAction))
					matched = true
					break
				}
			}
		}
		if !matched && a.has("bill", text) && len(d.Bills) > 0 {
			card.Note(fmt.Sprintf("%d bills saw recent action in the %dth Congress", len(d.Bills), d.Congress))
		}

		if a.has("vote", text) {
			card.Note("Roll-call votes are not checked; membership and bill activity only")
		}
	})
}
