// Package guard decides whether a client view renders or redirects,
// given the current auth state.
package guard

import (
	"github.com/spec-kit/farmer-dashboard/internal/authstate"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

// Phase classifies an auth state against a role requirement.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseUnauthenticated
	PhaseWrongRole
	PhaseAuthorized
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseWrongRole:
		return "wrong-role"
	case PhaseAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Action is what the view layer should do.
type Action int

const (
	ActionRender Action = iota
	ActionPlaceholder
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionPlaceholder:
		return "placeholder"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Evaluate. Target is set only for redirects.
type Decision struct {
	Action Action
	Target string
}

func Render() Decision { return Decision{Action: ActionRender} }

func Placeholder() Decision { return Decision{Action: ActionPlaceholder} }

func RedirectTo(target string) Decision { return Decision{Action: ActionRedirect, Target: target} }

// Policy parameterizes the single guard.
type Policy struct {
	Name string
	// RequireAuth sends unauthenticated users to the login page.
	RequireAuth bool
	// RedirectAuthenticated sends any logged-in user to their dashboard.
	RedirectAuthenticated bool
	// AllowedRole restricts the view; empty means any role.
	AllowedRole domain.Role
	// WaitForBootstrap renders a placeholder while the store is loading.
	WaitForBootstrap bool
}

// Protected renders only for users with role (any role when empty).
func Protected(role domain.Role) Policy {
	return Policy{Name: "protected", RequireAuth: true, AllowedRole: role, WaitForBootstrap: true}
}

// Public is for login and signup pages.
func Public() Policy {
	return Policy{Name: "public", RedirectAuthenticated: true, WaitForBootstrap: true}
}

// Landing is the home page. It does not wait for bootstrap, so the page stays
// visible while identity resolves and a known user is redirected as soon as
// one is established.
func Landing() Policy {
	return Policy{Name: "landing", RedirectAuthenticated: true}
}

// Classify maps state onto the four guard phases. A user whose role is not a
// known Role counts as unauthenticated.
func Classify(state authstate.State, required domain.Role) Phase {
	if state.Loading {
		return PhaseLoading
	}
	return classifyUser(state.User, required)
}

func classifyUser(user *domain.Identity, required domain.Role) Phase {
	if user == nil || !user.Role.Valid() {
		return PhaseUnauthenticated
	}
	if required != "" && user.Role != required {
		return PhaseWrongRole
	}
	return PhaseAuthorized
}

// Evaluate is the guard: a pure function of state and policy.
func Evaluate(state authstate.State, p Policy) Decision {
	phase := Classify(state, p.AllowedRole)
	if phase == PhaseLoading {
		if p.WaitForBootstrap {
			return Placeholder()
		}
		phase = classifyUser(state.User, p.AllowedRole)
	}

	switch phase {
	case PhaseUnauthenticated:
		if p.RequireAuth {
			return RedirectTo(LoginPath)
		}
		return Render()
	case PhaseWrongRole:
		return toDashboard(state.User)
	default:
		if p.RedirectAuthenticated {
			return toDashboard(state.User)
		}
		return Render()
	}
}

func toDashboard(user *domain.Identity) Decision {
	path, ok := user.Role.DashboardPath()
	if !ok {
		return RedirectTo(LoginPath)
	}
	return RedirectTo(path)
}
