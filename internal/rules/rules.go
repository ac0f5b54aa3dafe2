// Package rules holds the declarative keyword configuration used to route
// stories, test adapter relevance and detect scoring signals.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/policyvoice/corroborate/internal/model"
)

//go:embed rules.yaml
var embedded []byte

// File is the YAML shape of a rules file
type File struct {
	Routes        map[string][]string            `yaml:"routes"`
	Triggers      []TriggerSpec                  `yaml:"triggers"`
	Relevance     map[string][]string            `yaml:"relevance"`
	Signals       map[string]map[string][]string `yaml:"signals"`
	RedFlags      map[string][]RedFlagSpec       `yaml:"red_flags"`
	IncidentTerms map[string][]string            `yaml:"incident_terms"`
	Agencies      map[string][]string            `yaml:"agencies"`
}

// TriggerSpec appends Adapter to the route when any keyword matches
type TriggerSpec struct {
	Adapter  string   `yaml:"adapter"`
	Reason   string   `yaml:"reason"`
	Keywords []string `yaml:"keywords"`
}

// RedFlagSpec is a phrase that raises a review flag
type RedFlagSpec struct {
	Phrase   string `yaml:"phrase"`
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
}

// Rules is a validated, compiled rules file. It is read-only after construction.
type Rules struct {
	routes    map[model.PolicyArea][]string
	triggers  []Trigger
	relevance map[string]KeywordSet
	signals   map[string]map[string]KeywordSet
	redFlags  map[string][]redFlag
	incidents []named
	agencies  []named
}

// Trigger is a compiled cross-cutting route trigger
type Trigger struct {
	Adapter  string
	Reason   string
	Keywords KeywordSet
}

type redFlag struct {
	severity model.Severity
	message  string
	set      KeywordSet
}

type named struct {
	name string
	set  KeywordSet
}

// Default returns the embedded rules
func Default() (*Rules, error) {
	return Parse(embedded)
}

// Load reads rules from path, or the embedded rules when path is empty
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes, validates and compiles a rules file
func Parse(data []byte) (*Rules, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.compile()
}

// Validate rejects unknown adapters, policy areas and severities
func (f *File) Validate() error {
	var errs []error

	for area, adapters := range f.Routes {
		if !model.PolicyArea(area).Valid() {
			errs = append(errs, fmt.Errorf("routes: unknown policy area %q", area))
		}
		seen := make(map[string]bool)
		for _, a := range adapters {
			if !model.KnownAdapter(a) {
				errs = append(errs, fmt.Errorf("routes.%s: unknown adapter %q", area, a))
			}
			if seen[a] {
				errs = append(errs, fmt.Errorf("routes.%s: duplicate adapter %q", area, a))
			}
			seen[a] = true
		}
	}

	for i, t := range f.Triggers {
		if !model.KnownAdapter(t.Adapter) {
			errs = append(errs, fmt.Errorf("triggers[%d]: unknown adapter %q", i, t.Adapter))
		}
		if len(t.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("triggers[%d]: no keywords", i))
		}
		errs = append(errs, f.uncoveredTriggerTerms(i, t)...)
	}

	for _, name := range model.AdapterNames {
		if len(f.Relevance[name]) == 0 {
			errs = append(errs, fmt.Errorf("relevance: no keywords for adapter %q", name))
		}
	}
	for name := range f.Relevance {
		if !model.KnownAdapter(name) {
			errs = append(errs, fmt.Errorf("relevance: unknown adapter %q", name))
		}
	}
	for name := range f.Signals {
		if !model.KnownAdapter(name) {
			errs = append(errs, fmt.Errorf("signals: unknown adapter %q", name))
		}
	}

	for name, flags := range f.RedFlags {
		if !model.KnownAdapter(name) {
			errs = append(errs, fmt.Errorf("red_flags: unknown adapter %q", name))
		}
		for i, rf := range flags {
			if !model.Severity(rf.Severity).Valid() {
				errs = append(errs, fmt.Errorf("red_flags.%s[%d]: invalid severity %q", name, i, rf.Severity))
			}
			if rf.Phrase == "" || rf.Message == "" {
				errs = append(errs, fmt.Errorf("red_flags.%s[%d]: phrase and message are required", name, i))
			}
		}
	}

	return errors.Join(errs...)
}

// uncoveredTriggerTerms reports trigger keywords the target adapter's
// relevance set does not match. A story routed by a trigger must be
// relevant to the adapter it was routed to.
func (f *File) uncoveredTriggerTerms(i int, t TriggerSpec) []error {
	terms, ok := f.Relevance[t.Adapter]
	if !ok || len(terms) == 0 {
		return nil
	}
	relevance, err := NewKeywordSet(terms)
	if err != nil {
		return nil // reported by compile
	}

	var errs []error
	for _, kw := range t.Keywords {
		if !coveredBy(kw, relevance) {
			errs = append(errs, fmt.Errorf("triggers[%d]: keyword %q is not in relevance.%s", i, kw, t.Adapter))
		}
	}
	return errs
}

// coveredBy reports whether set matches every text term can match. A prefix
// term is sampled as its stem and one inflection.
func coveredBy(term string, set KeywordSet) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	stem := strings.TrimSpace(strings.TrimSuffix(t, "*"))
	if stem == "" {
		return true // reported by compile
	}
	if !set.Match(stem) {
		return false
	}
	if strings.HasSuffix(t, "*") && !set.Match(stem+"s") {
		return false
	}
	return true
}

func (f *File) compile() (*Rules, error) {
	r := &Rules{
		routes:    make(map[model.PolicyArea][]string, len(f.Routes)),
		relevance: make(map[string]KeywordSet, len(f.Relevance)),
		signals:   make(map[string]map[string]KeywordSet, len(f.Signals)),
		redFlags:  make(map[string][]redFlag, len(f.RedFlags)),
	}

	for area, adapters := range f.Routes {
		r.routes[model.PolicyArea(area)] = append([]string(nil), adapters...)
	}

	for _, t := range f.Triggers {
		set, err := NewKeywordSet(t.Keywords)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", t.Adapter, err)
		}
		r.triggers = append(r.triggers, Trigger{Adapter: t.Adapter, Reason: t.Reason, Keywords: set})
	}

	for name, terms := range f.Relevance {
		set, err := NewKeywordSet(terms)
		if err != nil {
			return nil, fmt.Errorf("relevance %s: %w", name, err)
		}
		r.relevance[name] = set
	}

	for adapter, sets := range f.Signals {
		compiled := make(map[string]KeywordSet, len(sets))
		for name, terms := range sets {
			set, err := NewKeywordSet(terms)
			if err != nil {
				return nil, fmt.Errorf("signal %s.%s: %w", adapter, name, err)
			}
			compiled[name] = set
		}
		r.signals[adapter] = compiled
	}

	for adapter, flags := range f.RedFlags {
		for _, rf := range flags {
			set, err := NewKeywordSet([]string{rf.Phrase})
			if err != nil {
				return nil, fmt.Errorf("red flag %s: %w", adapter, err)
			}
			r.redFlags[adapter] = append(r.redFlags[adapter], redFlag{
				severity: model.Severity(rf.Severity),
				message:  rf.Message,
				set:      set,
			})
		}
	}

	var err error
	if r.incidents, err = compileNamed(f.IncidentTerms); err != nil {
		return nil, fmt.Errorf("incident_terms: %w", err)
	}
	if r.agencies, err = compileNamed(f.Agencies); err != nil {
		return nil, fmt.Errorf("agencies: %w", err)
	}

	return r, nil
}

// compileNamed compiles a name -> terms map into a list sorted by name
func compileNamed(m map[string][]string) ([]named, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]named, 0, len(names))
	for _, name := range names {
		set, err := NewKeywordSet(m[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, named{name: name, set: set})
	}
	return out, nil
}

// Route returns the adapters mapped to a policy area, in invocation order
func (r *Rules) Route(area model.PolicyArea) []string {
	return append([]string(nil), r.routes[area]...)
}

// Triggers returns the cross-cutting triggers in file order
func (r *Rules) Triggers() []Trigger {
	return r.triggers
}

// Relevant reports whether text is topically relevant to adapter
func (r *Rules) Relevant(adapter, text string) bool {
	return r.relevance[adapter].Match(text)
}

// Signal returns a named keyword set for adapter scoring
func (r *Rules) Signal(adapter, name string) (KeywordSet, bool) {
	set, ok := r.signals[adapter][name]
	return set, ok
}

// RedFlags returns the flags raised by phrases in text for adapter.
// Flags sharing a message are reported once.
func (r *Rules) RedFlags(adapter, text string) []model.Flag {
	var flags []model.Flag
	seen := make(map[string]bool)
	for _, rf := range r.redFlags[adapter] {
		if seen[rf.message] || !rf.set.Match(text) {
			continue
		}
		seen[rf.message] = true
		flags = append(flags, model.Flag{
			Severity: rf.severity,
			Code:     model.FlagRedFlagPhrase,
			Message:  rf.message,
		})
	}
	return flags
}

// Incidents returns the FEMA incident types mentioned in text, sorted
func (r *Rules) Incidents(text string) []string {
	return matchNamed(r.incidents, text)
}

// Agencies returns the canonical names of federal agencies mentioned in text, sorted
func (r *Rules) Agencies(text string) []string {
	return matchNamed(r.agencies, text)
}

func matchNamed(list []named, text string) []string {
	var out []string
	for _, n := range list {
		if n.set.Match(text) {
			out = append(out, n.name)
		}
	}
	return out
}
