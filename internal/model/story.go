package model

import "strings"

// Story is a citizen-submitted account of policy impact.
// It is produced upstream and never mutated during verification.
type Story struct {
	ID           string        `json:"id"`
	Headline     string        `json:"headline"`
	Body         string        `json:"body"`
	PolicyArea   PolicyArea    `json:"policyArea"`
	Location     Location      `json:"location"`
	Demographics *Demographics `json:"demographics,omitempty"`
	Impact       *Impact       `json:"impact,omitempty"`
}

// Location is where the story took place
type Location struct {
	ZIP      string `json:"zip,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	County   string `json:"county,omitempty"`
	District string `json:"district,omitempty"`
}

// Demographics is optional self-reported context about the storyteller
type Demographics struct {
	AgeRange  string `json:"ageRange,omitempty"`
	Income    string `json:"income,omitempty"`
	Household int    `json:"household,omitempty"`
	Veteran   bool   `json:"veteran,omitempty"`
}

// Impact holds the quantitative claims a story makes
type Impact struct {
	AffectedPopulation int64   `json:"affectedPopulation,omitempty"`
	EconomicAmount     float64 `json:"economicAmount,omitempty"`
	Timeframe          string  `json:"timeframe,omitempty"`
}

// Text returns the headline and body joined for keyword matching
func (s Story) Text() string {
	if s.Headline == "" {
		return s.Body
	}
	if s.Body == "" {
		return s.Headline
	}
	return s.Headline + "\n" + s.Body
}

// Geography returns the fetch key for adapters
func (s Story) Geography() Geography {
	return Geography{
		State:  strings.ToUpper(strings.TrimSpace(s.Location.State)),
		ZIP:    strings.TrimSpace(s.Location.ZIP),
		County: strings.TrimSpace(s.Location.County),
	}
}

// AffectedPopulation returns the claimed affected population, or 0 if none was claimed
func (s Story) AffectedPopulation() int64 {
	if s.Impact == nil {
		return 0
	}
	return s.Impact.AffectedPopulation
}

// EconomicAmount returns the claimed dollar amount, or 0 if none was claimed
func (s Story) EconomicAmount() float64 {
	if s.Impact == nil {
		return 0
	}
	return s.Impact.EconomicAmount
}

// Geography is the location key adapters fetch datasets for
type Geography struct {
	State  string `json:"state"`
	ZIP    string `json:"zip,omitempty"`
	County string `json:"county,omitempty"`
}

// Key returns a stable key for caching and logging (e.g. "TX" or "TX/78701")
func (g Geography) Key() string {
	if g.ZIP == "" {
		return g.State
	}
	return g.State + "/" + g.ZIP
}

// PolicyArea is the declared category of a story
type PolicyArea string

const (
	PolicyHousing         PolicyArea = "housing"
	PolicyEnergy          PolicyArea = "energy"
	PolicyEnvironment     PolicyArea = "environment"
	PolicyInfrastructure  PolicyArea = "infrastructure"
	PolicyEducation       PolicyArea = "education"
	PolicyHigherEducation PolicyArea = "higher_education"
	PolicyHealthcare      PolicyArea = "healthcare"
	PolicyEmployment      PolicyArea = "employment"
	PolicyImmigration     PolicyArea = "immigration"
	PolicyJustice         PolicyArea = "justice"
	PolicyPublicSafety    PolicyArea = "public_safety"
	PolicyEconomy         PolicyArea = "economy"
	PolicyElections       PolicyArea = "elections"
	PolicyVeterans        PolicyArea = "veterans"
	PolicyRegulation      PolicyArea = "regulation"
	PolicyOther           PolicyArea = "other"
)

// PolicyAreas lists the closed category set in display order
var PolicyAreas = []PolicyArea{
	PolicyHousing, PolicyEnergy, PolicyEnvironment, PolicyInfrastructure,
	PolicyEducation, PolicyHigherEducation, PolicyHealthcare, PolicyEmployment,
	PolicyImmigration, PolicyJustice, PolicyPublicSafety, PolicyEconomy,
	PolicyElections, PolicyVeterans, PolicyRegulation, PolicyOther,
}

// ParsePolicyArea maps free text onto the closed set; unknown values become "other"
func ParsePolicyArea(s string) PolicyArea {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, area := range PolicyAreas {
		if string(area) == normalized {
			return area
		}
	}
	return PolicyOther
}

// Valid reports whether the area is part of the closed set
func (p PolicyArea) Valid() bool {
	for _, area := range PolicyAreas {
		if area == p {
			return true
		}
	}
	return false
}
