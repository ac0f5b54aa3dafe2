// Package fallback provides deterministic substitute datasets used when an
// adapter's upstream ultimately fails. Values are per state archetype, not
// per exact location, and are always marked degraded.
package fallback

import (
	"fmt"
	"time"

	"github.com/policyvoice/corroborate/internal/geo"
	"github.com/policyvoice/corroborate/internal/model"
)

// Marker is appended to the provenance of every fallback dataset
const Marker = "(fallback)"

var sources = map[string]string{
	model.AdapterDemographics:    "Census ACS 5-year",
	model.AdapterEnergy:          "EIA retail electricity sales",
	model.AdapterClimate:         "NOAA NCEI climate data",
	model.AdapterHousing:         "HUD fair market rents + Census ACS",
	model.AdapterInfrastructure:  "National Bridge Inventory",
	model.AdapterEmergency:       "OpenFEMA disaster declarations",
	model.AdapterCrime:           "BJS National Crime Victimization Survey",
	model.AdapterCampaignFinance: "OpenFEC",
	model.AdapterLegislative:     "Congress.gov",
	model.AdapterHigherEducation: "College Scorecard",
	model.AdapterVeterans:        "VA Facilities",
	model.AdapterSpending:        "USAspending",
	model.AdapterRegulatory:      "Federal Register",
}

// Source returns the display name of an adapter's upstream
func Source(adapter string) string {
	if s, ok := sources[adapter]; ok {
		return s
	}
	return adapter
}

// Provenance returns the degraded provenance string for an adapter
func Provenance(adapter string) string {
	return Source(adapter) + " " + Marker
}

// Provider builds fallback datasets
type Provider struct {
	now func() time.Time
}

// NewProvider creates a provider
func NewProvider() *Provider {
	return &Provider{now: time.Now}
}

// WithClock overrides the fetch timestamp clock
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Dataset returns the fallback dataset for an adapter and geography,
// carrying the failure reason that caused the substitution
func (p *Provider) Dataset(adapter string, g model.Geography, reason string) model.SourceDataset {
	payload, _ := Payload(adapter, g) // nil for unknown adapters

	return model.SourceDataset{
		Adapter:       adapter,
		Geography:     g,
		Vintage:       string(geo.ArchetypeOf(g.State)) + " archetype",
		Provenance:    Provenance(adapter),
		Degraded:      true,
		FailureReason: reason,
		FetchedAt:     p.now().UTC(),
		Payload:       payload,
	}
}

// Payload returns a fresh archetype payload for the adapter and geography
func Payload(adapter string, g model.Geography) (model.Payload, error) {
	build, ok := builders[adapter]
	if !ok {
		return nil, fmt.Errorf("no fallback for adapter %q", adapter)
	}
	return build(geo.ArchetypeOf(g.State), g), nil
}
