// Package adapters implements the source verifier adapters: one per external
// dataset, each fetching a normalized dataset for a geography and scoring a
// story against it.
package adapters

import (
	"context"
	"fmt"
	"sort"

	"github.com/policyvoice/corroborate/internal/model"
)

// Adapter fetches and scores one external verification dataset
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// IsRelevant reports whether the story text falls in this adapter's domain
	IsRelevant(text string) bool

	// Fetch returns the dataset for the geography. It never fails: upstream
	// failures return a degraded fallback dataset.
	Fetch(ctx context.Context, g model.Geography) model.SourceDataset

	// Score is a pure function of the story and dataset
	Score(story model.Story, ds model.SourceDataset) model.VerificationRecord
}

// Registry manages adapters in registration order
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make([]Adapter, 0),
		byName:   make(map[string]Adapter),
	}
}

// Register adds an adapter. Names must be unique.
func (r *Registry) Register(adapter Adapter) error {
	name := adapter.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.adapters = append(r.adapters, adapter)
	r.byName[name] = adapter
	return nil
}

// Get returns the adapter with the given name
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Has reports whether an adapter is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns adapter names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	return len(r.adapters)
}

// Missing returns known adapter names that are not registered, sorted
func (r *Registry) Missing() []string {
	var missing []string
	for _, name := range model.AdapterNames {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

var constructors = map[string]func(Deps) (Adapter, error){
	model.AdapterDemographics:    func(d Deps) (Adapter, error) { return NewDemographics(d) },
	model.AdapterEnergy:          func(d Deps) (Adapter, error) { return NewEnergy(d) },
	model.AdapterClimate:         func(d Deps) (Adapter, error) { return NewClimate(d) },
	model.AdapterHousing:         func(d Deps) (Adapter, error) { return NewHousing(d) },
	model.AdapterInfrastructure:  func(d Deps) (Adapter, error) { return NewInfrastructure(d) },
	model.AdapterEmergency:       func(d Deps) (Adapter, error) { return NewEmergency(d) },
	model.AdapterCrime:           func(d Deps) (Adapter, error) { return NewCrime(d) },
	model.AdapterCampaignFinance: func(d Deps) (Adapter, error) { return NewCampaignFinance(d) },
	model.AdapterLegislative:     func(d Deps) (Adapter, error) { return NewLegislative(d) },
	model.AdapterHigherEducation: func(d Deps) (Adapter, error) { return NewHigherEducation(d) },
	model.AdapterVeterans:        func(d Deps) (Adapter, error) { return NewVeterans(d) },
	model.AdapterSpending:        func(d Deps) (Adapter, error) { return NewSpending(d) },
	model.AdapterRegulatory:      func(d Deps) (Adapter, error) { return NewRegulatory(d) },
}

// FetchCalls is the worst-case number of sequential upstream calls one
// Fetch makes on the adapter's own endpoint and on the Census endpoint
type FetchCalls struct {
	Primary int
	Census  int
}

var fetchCalls = map[string]FetchCalls{
	model.AdapterDemographics:    {Primary: 1},
	model.AdapterEnergy:          {Primary: 3}, // state, national, generation mix
	model.AdapterClimate:         {Primary: 2}, // summary, normals
	model.AdapterHousing:         {Primary: 1, Census: 1},
	model.AdapterInfrastructure:  {Primary: 1},
	model.AdapterEmergency:       {Primary: 2}, // declarations, web summaries
	model.AdapterCrime:           {Primary: 2}, // personal, household
	model.AdapterCampaignFinance: {Primary: 1},
	model.AdapterLegislative:     {Primary: 2}, // members, bills
	model.AdapterHigherEducation: {Primary: 1},
	model.AdapterVeterans:        {Primary: 1},
	model.AdapterSpending:        {Primary: 3}, // current, prior, agencies
	model.AdapterRegulatory:      {Primary: 1},
}

// CallsPerFetch returns the call plan of a built-in adapter; unknown
// adapters are assumed to make one call
func CallsPerFetch(name string) FetchCalls {
	if c, ok := fetchCalls[name]; ok {
		return c
	}
	return FetchCalls{Primary: 1}
}

// New constructs a built-in adapter by name
func New(name string, d Deps) (Adapter, error) {
	build, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown adapter: %q", name)
	}
	a, err := build(d)
	if err != nil {
		return nil, err
	}
	return a, nil
}
