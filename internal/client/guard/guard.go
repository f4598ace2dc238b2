// Package guard decides whether a location may render for a given
// authentication state. Guards are pure and are re-evaluated on every
// navigation and every state change.
package guard

import "github.com/dmitrijs2005/kefi/internal/client/session"

// Location is where the user is trying to go.
type Location struct {
	Path  string
	State session.NavState
}

type Outcome int

const (
	// Suspend renders nothing until the state resolves.
	Suspend Outcome = iota
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Suspend:
		return "suspend"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard evaluation. To and State are set for
// redirects only.
type Decision struct {
	Outcome Outcome
	To      string
	State   session.NavState
}

func suspend() Decision { return Decision{Outcome: Suspend} }
func render() Decision  { return Decision{Outcome: Render} }
func redirect(to string, st session.NavState) Decision {
	return Decision{Outcome: Redirect, To: to, State: st}
}

type Guard interface {
	Evaluate(s session.State, loc Location) Decision
}

// GuestOnly keeps authenticated users away from login and signup pages.
type GuestOnly struct{}

func (GuestOnly) Evaluate(s session.State, loc Location) Decision {
	if s.Loading {
		return suspend()
	}
	if s.IsAuthenticated {
		from := loc.State.From
		if from == "" {
			from = loc.Path
		}
		return redirect(session.PathDashboard, session.NavState{From: from})
	}
	return render()
}

// DefaultProtectedRoutes require a completed profile.
var DefaultProtectedRoutes = []string{session.PathDashboard, session.PathProfile}

// Protected admits authenticated users only. Routes lists the paths that
// additionally require a completed profile.
type Protected struct {
	Routes []string
}

func NewProtected(routes ...string) Protected {
	if len(routes) == 0 {
		routes = DefaultProtectedRoutes
	}
	return Protected{Routes: routes}
}

func (p Protected) Evaluate(s session.State, loc Location) Decision {
	if s.Loading {
		return suspend()
	}
	if !s.IsAuthenticated {
		return redirect(session.PathLogin, session.NavState{From: loc.Path, Error: session.MsgLoginRequired})
	}

	completed := s.ProfileCompleted()
	switch {
	case !completed && loc.Path != session.PathCompleteProfile && p.requiresProfile(loc.Path):
		return redirect(session.PathCompleteProfile, session.NavState{From: loc.Path})
	case completed && loc.Path == session.PathCompleteProfile:
		return redirect(session.PathDashboard, session.NavState{})
	}
	return render()
}

func (p Protected) requiresProfile(path string) bool {
	for _, r := range p.Routes {
		if r == path {
			return true
		}
	}
	return false
}
