package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/kefi/internal/client/guard"
	"github.com/dmitrijs2005/kefi/internal/client/session"
)

// maxRedirects bounds a single navigation so misconfigured guards cannot loop.
const maxRedirects = 8

// Screen renders one page.
type Screen interface {
	Render(w io.Writer, st session.State, loc guard.Location)
}

// ScreenFunc adapts a function to Screen.
type ScreenFunc func(w io.Writer, st session.State, loc guard.Location)

func (f ScreenFunc) Render(w io.Writer, st session.State, loc guard.Location) { f(w, st, loc) }

// StateSource is what the router reads the authentication state from.
type StateSource interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

type route struct {
	guard  guard.Guard
	screen Screen
}

// Router maps paths to guarded screens. It implements session.Navigator.
// Every navigation runs the target's guard; state changes mark the current
// location stale so Revalidate runs its guard again.
type Router struct {
	mu       sync.Mutex
	out      io.Writer
	routes   map[string]route
	source   StateSource
	current  guard.Location
	rendered bool
	stale    bool
	unwatch  func()
}

func NewRouter(out io.Writer) *Router {
	return &Router{out: out, routes: make(map[string]route)}
}

// Handle registers screen at path behind g. A nil guard always renders.
func (r *Router) Handle(path string, g guard.Guard, screen Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = route{guard: g, screen: screen}
}

// Watch makes the router follow src. Call it once, before navigating.
func (r *Router) Watch(src StateSource) {
	r.mu.Lock()
	if r.unwatch != nil {
		r.unwatch()
	}
	r.source = src
	r.mu.Unlock()

	unwatch := src.Subscribe(func(session.State) {
		r.mu.Lock()
		r.stale = true
		r.mu.Unlock()
	})

	r.mu.Lock()
	r.unwatch = unwatch
	r.mu.Unlock()
}

// Stop detaches the router from its state source.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unwatch != nil {
		r.unwatch()
		r.unwatch = nil
	}
}

// Current returns the location last resolved and whether its screen rendered.
func (r *Router) Current() (guard.Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.rendered
}

// Navigate resolves path through guards and renders the resulting screen.
func (r *Router) Navigate(path string, st session.NavState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve(guard.Location{Path: path, State: st})
}

// Revalidate re-runs the current location's guard if the state changed
// since the last navigation.
func (r *Router) Revalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stale || r.current.Path == "" {
		return
	}
	r.stale = false

	rt, ok := r.routes[r.current.Path]
	if !ok {
		return
	}
	d := r.evaluate(rt, r.current)
	switch d.Outcome {
	case guard.Redirect:
		r.resolve(guard.Location{Path: d.To, State: d.State})
	case guard.Render:
		if !r.rendered {
			r.show(rt, r.current)
		}
	case guard.Suspend:
		r.rendered = false
	}
}

func (r *Router) state() session.State {
	if r.source == nil {
		return session.State{}
	}
	return r.source.State()
}

func (r *Router) evaluate(rt route, loc guard.Location) guard.Decision {
	if rt.guard == nil {
		return guard.Decision{Outcome: guard.Render}
	}
	return rt.guard.Evaluate(r.state(), loc)
}

func (r *Router) resolve(loc guard.Location) {
	r.stale = false
	for hop := 0; hop <= maxRedirects; hop++ {
		rt, ok := r.routes[loc.Path]
		if !ok {
			r.current, r.rendered = loc, false
			fmt.Fprintf(r.out, "Page %s not found. Type 'help' for commands.\n", loc.Path)
			return
		}

		d := r.evaluate(rt, loc)
		switch d.Outcome {
		case guard.Suspend:
			r.current, r.rendered = loc, false
			return
		case guard.Render:
			r.show(rt, loc)
			return
		case guard.Redirect:
			loc = guard.Location{Path: d.To, State: d.State}
		}
	}
	fmt.Fprintf(r.out, "Too many redirects while opening %s.\n", loc.Path)
}

func (r *Router) show(rt route, loc guard.Location) {
	r.current, r.rendered = loc, true
	rt.screen.Render(r.out, r.state(), loc)
}
