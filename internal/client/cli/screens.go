package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/kefi/internal/client/guard"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/session"
)

func header(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

// notice prints a message carried by navigation state, e.g. why the user
// was sent to the login page.
func notice(w io.Writer, loc guard.Location) {
	if loc.State.Error != "" {
		fmt.Fprintf(w, "! %s\n", loc.State.Error)
	}
}

func loginScreen(w io.Writer, _ session.State, loc guard.Location) {
	header(w, "Login")
	notice(w, loc)
	fmt.Fprintln(w, "Type 'login' to sign in, 'signup' to create an account or 'forgot' to reset your password.")
}

func signupScreen(w io.Writer, _ session.State, loc guard.Location) {
	header(w, "Sign up")
	notice(w, loc)
	fmt.Fprintln(w, "Type 'signup' to start. A verification code will be sent to your email.")
}

func forgotPasswordScreen(w io.Writer, _ session.State, loc guard.Location) {
	header(w, "Forgot password")
	notice(w, loc)
	fmt.Fprintln(w, "Type 'forgot' to receive a reset code by email.")
}

func dashboardScreen(w io.Writer, st session.State, loc guard.Location) {
	header(w, "Dashboard")
	notice(w, loc)
	fmt.Fprintf(w, "Welcome, %s!\n", displayName(st.User))
	fmt.Fprintln(w, "Type 'profile' to edit your profile, 'whoami' for details or 'logout' to sign out.")
}

func profileScreen(w io.Writer, st session.State, loc guard.Location) {
	header(w, "Profile")
	notice(w, loc)
	printUser(w, st.User)
	fmt.Fprintln(w, "Type 'profile' to edit these details.")
}

func completeProfileScreen(w io.Writer, st session.State, loc guard.Location) {
	header(w, "Complete your profile")
	notice(w, loc)
	fmt.Fprintf(w, "Hi %s, a few more details are needed before you continue.\n", displayName(st.User))
	fmt.Fprintln(w, "Type 'complete' to fill them in.")
}

func displayName(u *models.User) string {
	switch {
	case u == nil:
		return "guest"
	case u.Nickname != nil && *u.Nickname != "":
		return *u.Nickname
	case u.FullName != "":
		return u.FullName
	default:
		return u.Username
	}
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func printUser(w io.Writer, u *models.User) {
	if u == nil {
		fmt.Fprintln(w, "Not signed in.")
		return
	}
	rows := []struct{ k, v string }{
		{"Username", u.Username},
		{"Email", u.Email},
		{"Full name", u.FullName},
		{"Birth date", u.BirthDate},
		{"Gender", u.Gender},
		{"Student", yesNo(u.IsStudent)},
		{"Nickname", orDash(u.Nickname)},
		{"Phone", orDash(u.Phone)},
		{"Country", orDash(u.Country)},
		{"State", orDash(u.State)},
		{"University", yesNo(u.IsUniversity)},
		{"Profile complete", yesNo(u.ProfileCompleted)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-17s %s\n", r.k+":", r.v)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// registerRoutes installs every page behind its guard.
func registerRoutes(r *Router, protected guard.Protected) {
	guest := guard.GuestOnly{}
	r.Handle(session.PathLogin, guest, ScreenFunc(loginScreen))
	r.Handle(session.PathSignup, guest, ScreenFunc(signupScreen))
	r.Handle(session.PathForgotPassword, guest, ScreenFunc(forgotPasswordScreen))
	r.Handle(session.PathDashboard, protected, ScreenFunc(dashboardScreen))
	r.Handle(session.PathProfile, protected, ScreenFunc(profileScreen))
	r.Handle(session.PathCompleteProfile, protected, ScreenFunc(completeProfileScreen))
}
