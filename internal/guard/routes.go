package guard

import (
	"sort"

	"github.com/spec-kit/farmer-dashboard/internal/authstate"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// FallbackPath receives navigations to unknown paths.
const FallbackPath = "/"

// Route binds a client path to the view it shows and its policy.
type Route struct {
	Path   string
	View   string
	Policy Policy
}

// Router resolves navigations against a fixed route table.
type Router struct {
	routes map[string]Route
}

// NewRouter builds a router from routes. Later duplicates win.
func NewRouter(routes ...Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes))}
	for _, route := range routes {
		r.routes[route.Path] = route
	}
	return r
}

// DefaultRouter is the dashboard's route table.
func DefaultRouter() *Router {
	return NewRouter(
		Route{Path: "/", View: "landing", Policy: Landing()},
		Route{Path: "/login", View: "login", Policy: Public()},
		Route{Path: "/signup", View: "signup", Policy: Public()},
		Route{Path: "/farmer/dashboard", View: "farmer-dashboard", Policy: Protected(domain.RoleFarmer)},
		Route{Path: "/farmer/profile", View: "farmer-profile", Policy: Protected(domain.RoleFarmer)},
		Route{Path: "/admin/dashboard", View: "admin-dashboard", Policy: Protected(domain.RoleAdmin)},
	)
}

// Resolve evaluates a navigation. Unknown paths redirect to FallbackPath and
// report ok=false.
func (r *Router) Resolve(path string, state authstate.State) (Route, Decision, bool) {
	route, ok := r.routes[path]
	if !ok {
		return Route{}, RedirectTo(FallbackPath), false
	}
	return route, Evaluate(state, route.Policy), true
}

// Paths lists the registered paths in sorted order.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.routes))
	for p := range r.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
