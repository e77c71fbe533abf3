// Package guard decides whether a screen may render for the current session.
package guard

import (
	"context"
	"fmt"
	"strings"

	"mace/internal/session"
)

type Outcome int

const (
	Loading Outcome = iota
	Redirect
	Render
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Decision struct {
	Outcome Outcome
	// Target is set for Redirect only.
	Target string
}

// Decide is the pure admission rule for a guarded screen. The requested
// destination is not remembered across a redirect to login.
func Decide(snap session.Snapshot, admin bool) Decision {
	switch {
	case snap.State == session.StateChecking:
		return Decision{Outcome: Loading}
	case !snap.Authenticated():
		return Decision{Outcome: Redirect, Target: session.PathLogin}
	case admin && !snap.Identity.IsAdmin():
		return Decision{Outcome: Redirect, Target: session.PathDashboard}
	default:
		return Decision{Outcome: Render}
	}
}

type Access int

const (
	Public Access = iota
	Protected
	AdminOnly
)

type Route struct {
	Path   string
	Access Access
}

// Routes is the console's screen table.
var Routes = []Route{
	{"/login", Public},
	{"/register", Public},
	{"/privacy", Public},
	{"/terms", Public},
	{"/data-deletion", Public},
	{"/social/callback/twitter", Public},

	{"/", Protected},
	{"/dashboard", Protected},
	{"/create", Protected},
	{"/scheduled", Protected},
	{"/connect", Protected},
	{"/ai-tools", Protected},
	{"/calendar", Protected},
	{"/automations", Protected},
	{"/settings", Protected},

	{"/admin/dashboard", AdminOnly},
	{"/admin/users", AdminOnly},
	{"/admin/logs", AdminOnly},
	{"/admin/automations", AdminOnly},
}

// Lookup finds the route for path. Unknown paths are treated as protected.
func Lookup(path string) Route {
	clean := "/" + strings.Trim(path, "/")
	for _, r := range Routes {
		if r.Path == clean {
			return r
		}
	}
	return Route{Path: clean, Access: Protected}
}

// SessionView is the read side of the session provider.
type SessionView interface {
	Await(ctx context.Context) (session.Snapshot, error)
}

// Guard applies Decide to the live session. It never changes session state.
type Guard struct {
	sess SessionView
	nav  session.Navigator
}

func New(sess SessionView, nav session.Navigator) *Guard {
	return &Guard{sess: sess, nav: nav}
}

// Enter waits out the start-up check, then admits or redirects. It returns
// the final decision and the identity the screen may use.
func (g *Guard) Enter(ctx context.Context, path string) (Decision, *session.Identity, error) {
	route := Lookup(path)
	if route.Access == Public {
		return Decision{Outcome: Render}, nil, nil
	}

	snap, err := g.sess.Await(ctx)
	if err != nil {
		return Decision{Outcome: Loading}, nil, err
	}

	d := Decide(snap, route.Access == AdminOnly)
	if d.Outcome == Redirect {
		g.nav.Navigate(d.Target)
		return d, nil, nil
	}
	if route.Path == "/" {
		// the index screen is the dashboard once admitted
		g.nav.Navigate(session.PathDashboard)
	}
	return d, snap.Identity, nil
}
