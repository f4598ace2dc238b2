package cli

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/dmitrijs2005/kefi/internal/client/guard"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/session"
	"github.com/stretchr/testify/assert"
)

// stateBox is a minimal StateSource.
type stateBox struct {
	mu   sync.Mutex
	st   session.State
	subs []func(session.State)
}

func (b *stateBox) State() session.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *stateBox) Subscribe(fn func(session.State)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
	return func() {}
}

func (b *stateBox) set(st session.State) {
	b.mu.Lock()
	b.st = st
	subs := append([]func(session.State){}, b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		s(st)
	}
}

func titled(name string) Screen {
	return ScreenFunc(func(w io.Writer, _ session.State, loc guard.Location) {
		io.WriteString(w, "["+name+"]")
		if loc.State.Error != "" {
			io.WriteString(w, loc.State.Error)
		}
	})
}

func newTestRouter(st session.State) (*Router, *stateBox, *bytes.Buffer) {
	var out bytes.Buffer
	box := &stateBox{st: st}
	r := NewRouter(&out)
	r.Handle(session.PathLogin, guard.GuestOnly{}, titled("login"))
	r.Handle(session.PathDashboard, guard.NewProtected(), titled("dashboard"))
	r.Handle(session.PathCompleteProfile, guard.NewProtected(), titled("complete"))
	r.Watch(box)
	return r, box, &out
}

var (
	member  = session.State{IsAuthenticated: true, User: &models.User{Username: "alice", ProfileCompleted: true}}
	newbie  = session.State{IsAuthenticated: true, User: &models.User{Username: "bob"}}
	booting = session.State{Loading: true}
)

func TestRouter_AnonymousToLoginWithMessage(t *testing.T) {
	r, _, out := newTestRouter(session.State{})
	r.Navigate(session.PathDashboard, session.NavState{})

	loc, rendered := r.Current()
	assert.True(t, rendered)
	assert.Equal(t, session.PathLogin, loc.Path)
	assert.Equal(t, session.PathDashboard, loc.State.From)
	assert.Equal(t, "[login]"+session.MsgLoginRequired, out.String())
}

func TestRouter_ChainsRedirects(t *testing.T) {
	r, _, out := newTestRouter(newbie)
	r.Navigate(session.PathLogin, session.NavState{})

	loc, _ := r.Current()
	assert.Equal(t, session.PathCompleteProfile, loc.Path)
	assert.Equal(t, "[complete]", out.String())
}

func TestRouter_NotFound(t *testing.T) {
	r, _, out := newTestRouter(member)
	r.Navigate("/nowhere", session.NavState{})

	_, rendered := r.Current()
	assert.False(t, rendered)
	assert.Contains(t, out.String(), "Page /nowhere not found")
}

func TestRouter_RedirectLoopIsBounded(t *testing.T) {
	var out bytes.Buffer
	r := NewRouter(&out)
	bounce := guardFunc(func(_ session.State, loc guard.Location) guard.Decision {
		to := "/a"
		if loc.Path == "/a" {
			to = "/b"
		}
		return guard.Decision{Outcome: guard.Redirect, To: to}
	})
	r.Handle("/a", bounce, titled("a"))
	r.Handle("/b", bounce, titled("b"))

	r.Navigate("/a", session.NavState{})
	assert.Contains(t, out.String(), "Too many redirects")
}

type guardFunc func(session.State, guard.Location) guard.Decision

func (f guardFunc) Evaluate(s session.State, loc guard.Location) guard.Decision { return f(s, loc) }

func TestRouter_SuspendThenRenderOnResolve(t *testing.T) {
	r, box, out := newTestRouter(booting)
	r.Navigate(session.PathDashboard, session.NavState{})
	assert.Empty(t, out.String())

	box.set(member)
	r.Revalidate()
	loc, rendered := r.Current()
	assert.True(t, rendered)
	assert.Equal(t, session.PathDashboard, loc.Path)
	assert.Equal(t, "[dashboard]", out.String())

	// No state change: nothing renders again.
	r.Revalidate()
	assert.Equal(t, "[dashboard]", out.String())
}

func TestRouter_RevalidateAfterExpiry(t *testing.T) {
	r, box, out := newTestRouter(member)
	r.Navigate(session.PathDashboard, session.NavState{})
	out.Reset()

	box.set(session.State{})
	r.Revalidate()

	loc, _ := r.Current()
	assert.Equal(t, session.PathLogin, loc.Path)
	assert.Equal(t, "[login]"+session.MsgLoginRequired, out.String())
}

func TestRouter_ProfileCompletionMovesOn(t *testing.T) {
	r, box, out := newTestRouter(newbie)
	r.Navigate(session.PathCompleteProfile, session.NavState{})
	out.Reset()

	done := newbie
	done.User = &models.User{Username: "bob", ProfileCompleted: true}
	box.set(done)
	r.Revalidate()

	loc, _ := r.Current()
	assert.Equal(t, session.PathDashboard, loc.Path)
	assert.Equal(t, "[dashboard]", out.String())
}
