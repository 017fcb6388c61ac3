package origin

import (
	"fmt"

	"github.com/vyrodovalexey/edgegate/internal/invoke"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Route binds a method and path to an authorizer and an integration.
type Route struct {
	Method      string
	Path        string
	Authorizer  invoke.AuthorizerInvoker
	Integration invoke.IntegrationInvoker
}

// Key returns the route key, for example "GET /hello".
func (r *Route) Key() string {
	return r.Method + " " + r.Path
}

// RouteTable matches requests on exact method and path.
type RouteTable struct {
	routes map[string]*Route
	order  []string
}

// NewRouteTable builds a route table. Every route needs both bindings;
// duplicate keys are rejected.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	if len(routes) == 0 {
		return nil, util.NewProvisioningError("origin.routes", "at least one route is required")
	}

	t := &RouteTable{routes: make(map[string]*Route, len(routes))}
	for i := range routes {
		r := routes[i]
		field := fmt.Sprintf("origin.routes[%d]", i)

		switch {
		case r.Method == "" || r.Path == "":
			return nil, util.NewProvisioningError(field, "method and path are required")
		case r.Authorizer == nil:
			return nil, util.NewProvisioningError(field, fmt.Sprintf("route %s has no authorizer", r.Key()))
		case r.Integration == nil:
			return nil, util.NewProvisioningError(field, fmt.Sprintf("route %s has no integration", r.Key()))
		}

		if _, dup := t.routes[r.Key()]; dup {
			return nil, util.NewProvisioningError(field, fmt.Sprintf("duplicate route %s", r.Key()))
		}
		t.routes[r.Key()] = &r
		t.order = append(t.order, r.Key())
	}

	return t, nil
}

// Match returns the route for method and path.
func (t *RouteTable) Match(method, path string) (*Route, bool) {
	r, ok := t.routes[method+" "+path]
	return r, ok
}

// Routes returns the routes in declaration order.
func (t *RouteTable) Routes() []*Route {
	out := make([]*Route, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.routes[k])
	}
	return out
}
