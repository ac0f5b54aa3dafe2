package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Adapter names. They double as dataset kinds for the payload union.
const (
	AdapterDemographics    = "demographics"
	AdapterEnergy          = "energy"
	AdapterClimate         = "climate"
	AdapterHousing         = "housing"
	AdapterInfrastructure  = "infrastructure"
	AdapterEmergency       = "emergency"
	AdapterCrime           = "crime"
	AdapterCampaignFinance = "campaign_finance"
	AdapterLegislative     = "legislative"
	AdapterHigherEducation = "higher_education"
	AdapterVeterans        = "veterans"
	AdapterSpending        = "spending"
	AdapterRegulatory      = "regulatory"
)

// AdapterNames lists every adapter in registration order
var AdapterNames = []string{
	AdapterDemographics, AdapterEnergy, AdapterClimate, AdapterHousing,
	AdapterInfrastructure, AdapterEmergency, AdapterCrime, AdapterCampaignFinance,
	AdapterLegislative, AdapterHigherEducation, AdapterVeterans, AdapterSpending,
	AdapterRegulatory,
}

// KnownAdapter reports whether name is a built-in adapter
func KnownAdapter(name string) bool {
	_, ok := payloadFactories[name]
	return ok
}

// SourceDataset is the normalized output of one adapter's fetch step
type SourceDataset struct {
	Adapter       string    `json:"adapter"`
	Geography     Geography `json:"geography"`
	Vintage       string    `json:"vintage"`    // data year or release marker
	Provenance    string    `json:"provenance"` // upstream source, or "<source> (fallback)"
	Degraded      bool      `json:"degraded"`   // true when Payload is archetype fallback data
	FailureReason string    `json:"failureReason,omitempty"`
	FetchedAt     time.Time `json:"fetchedAt"`
	Payload       Payload   `json:"-"`
}

// Payload is the adapter-specific part of a dataset.
// Each adapter defines exactly one concrete payload type.
type Payload interface {
	// Kind returns the adapter name this payload belongs to
	Kind() string

	// Check reports internal inconsistencies (percentages out of range,
	// parts exceeding totals). An empty result means the data is plausible.
	Check() []string
}

var payloadFactories = map[string]func() Payload{
	AdapterDemographics:    func() Payload { return &DemographicsData{} },
	AdapterEnergy:          func() Payload { return &EnergyData{} },
	AdapterClimate:         func() Payload { return &ClimateData{} },
	AdapterHousing:         func() Payload { return &HousingData{} },
	AdapterInfrastructure:  func() Payload { return &InfrastructureData{} },
	AdapterEmergency:       func() Payload { return &EmergencyData{} },
	AdapterCrime:           func() Payload { return &CrimeData{} },
	AdapterCampaignFinance: func() Payload { return &CampaignFinanceData{} },
	AdapterLegislative:     func() Payload { return &LegislativeData{} },
	AdapterHigherEducation: func() Payload { return &HigherEducationData{} },
	AdapterVeterans:        func() Payload { return &VeteransData{} },
	AdapterSpending:        func() Payload { return &SpendingData{} },
	AdapterRegulatory:      func() Payload { return &RegulatoryData{} },
}

// NewPayload returns an empty payload for the given kind
func NewPayload(kind string) (Payload, error) {
	factory, ok := payloadFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dataset kind: %q", kind)
	}
	return factory(), nil
}

type datasetJSON struct {
	Adapter       string          `json:"adapter"`
	Geography     Geography       `json:"geography"`
	Vintage       string          `json:"vintage"`
	Provenance    string          `json:"provenance"`
	Degraded      bool            `json:"degraded"`
	FailureReason string          `json:"failureReason,omitempty"`
	FetchedAt     time.Time       `json:"fetchedAt"`
	Kind          string          `json:"kind,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the payload alongside its kind tag
func (d SourceDataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{
		Adapter:       d.Adapter,
		Geography:     d.Geography,
		Vintage:       d.Vintage,
		Provenance:    d.Provenance,
		Degraded:      d.Degraded,
		FailureReason: d.FailureReason,
		FetchedAt:     d.FetchedAt,
	}
	if d.Payload != nil {
		raw, err := json.Marshal(d.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", d.Payload.Kind(), err)
		}
		out.Kind = d.Payload.Kind()
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload using its kind tag
func (d *SourceDataset) UnmarshalJSON(data []byte) error {
	var in datasetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*d = SourceDataset{
		Adapter:       in.Adapter,
		Geography:     in.Geography,
		Vintage:       in.Vintage,
		Provenance:    in.Provenance,
		Degraded:      in.Degraded,
		FailureReason: in.FailureReason,
		FetchedAt:     in.FetchedAt,
	}

	if in.Kind == "" {
		return nil
	}

	payload, err := NewPayload(in.Kind)
	if err != nil {
		return err
	}
	if len(in.Payload) > 0 {
		if err := json.Unmarshal(in.Payload, payload); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", in.Kind, err)
		}
	}
	d.Payload = payload
	return nil
}
