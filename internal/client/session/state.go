// Package session holds the process-wide authentication state and the
// transitions that change it: bootstrap, login, signup, logout, profile
// updates and session expiry.
package session

import "github.com/dmitrijs2005/kefi/internal/client/models"

// Well-known locations the manager navigates to.
const (
	PathLogin           = "/login"
	PathSignup          = "/signup"
	PathForgotPassword  = "/forgot-password"
	PathDashboard       = "/dashboard"
	PathProfile         = "/profile"
	PathCompleteProfile = "/complete-profile"
)

// Messages carried in navigation state.
const (
	MsgLoginRequired  = "Please login to access this page"
	MsgSessionExpired = "Your session has expired. Please login again."
)

// State is a snapshot of the authentication state.
type State struct {
	IsAuthenticated bool
	User            *models.User
	Loading         bool
	Error           string
}

// ProfileCompleted reports whether the current user finished the profile.
func (s State) ProfileCompleted() bool {
	return s.User != nil && s.User.ProfileCompleted
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// NavState travels with a navigation.
type NavState struct {
	From  string
	Error string
}

// Navigator performs navigation requested by the manager.
type Navigator interface {
	Navigate(path string, state NavState)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string, state NavState)

func (f NavigatorFunc) Navigate(path string, state NavState) { f(path, state) }

// landing is where a freshly authenticated user goes.
func landing(u *models.User) string {
	if u != nil && !u.ProfileCompleted {
		return PathCompleteProfile
	}
	return PathDashboard
}
