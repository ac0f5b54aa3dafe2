// Package classify routes a story to the adapters that can verify it.
package classify

import (
	"strings"

	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/rules"
)

// Catalog reports which adapters are available to run
type Catalog interface {
	Has(name string) bool
}

// Origin says why an adapter was routed
type Origin string

const (
	OriginPolicyArea Origin = "policy_area"
	OriginTrigger    Origin = "trigger"
)

// Route is one routed adapter and the reason it was chosen
type Route struct {
	Adapter  string   `json:"adapter"`
	Origin   Origin   `json:"origin"`
	Reason   string   `json:"reason"`
	Keywords []string `json:"keywords,omitempty"` // trigger terms found in the story
}

// Router maps stories to adapters using the route table and cross-cutting
// triggers. It holds no mutable state.
type Router struct {
	rules   *rules.Rules
	catalog Catalog
}

// NewRouter creates a router. A nil catalog allows every built-in adapter.
func NewRouter(r *rules.Rules, catalog Catalog) *Router {
	return &Router{rules: r, catalog: catalog}
}

func (r *Router) available(name string) bool {
	if r.catalog == nil {
		return model.KnownAdapter(name)
	}
	return r.catalog.Has(name)
}

// Route returns the adapters to invoke for the story, in invocation order
func (r *Router) Route(story model.Story) []string {
	routes := r.Explain(story)
	names := make([]string, len(routes))
	for i, rt := range routes {
		names[i] = rt.Adapter
	}
	return names
}

// Explain returns the routed adapters with the reason for each: first the
// policy area's table entry, then triggers whose keywords occur in the text
func (r *Router) Explain(story model.Story) []Route {
	area := model.ParsePolicyArea(string(story.PolicyArea))
	seen := make(map[string]bool)
	routes := []Route{}

	for _, name := range r.rules.Route(area) {
		if seen[name] || !r.available(name) {
			continue
		}
		seen[name] = true
		routes = append(routes, Route{
			Adapter: name,
			Origin:  OriginPolicyArea,
			Reason:  "policy area " + string(area),
		})
	}

	text := story.Text()
	for _, t := range r.rules.Triggers() {
		if seen[t.Adapter] || !r.available(t.Adapter) {
			continue
		}
		found := t.Keywords.Find(text)
		if len(found) == 0 {
			continue
		}
		seen[t.Adapter] = true
		routes = append(routes, Route{
			Adapter:  t.Adapter,
			Origin:   OriginTrigger,
			Reason:   t.Reason,
			Keywords: found,
		})
	}
	return routes
}

// String renders a route for CLI output
func (rt Route) String() string {
	s := rt.Adapter + " (" + rt.Reason
	if len(rt.Keywords) > 0 {
		s += ": " + strings.Join(rt.Keywords, ", ")
	}
	return s + ")"
}
