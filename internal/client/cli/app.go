package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/kefi/internal/client/guard"
	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/session"
	"github.com/dmitrijs2005/kefi/internal/logging"
)

// Session is the part of session.Manager the terminal needs.
type Session interface {
	StateSource
	Bootstrap(ctx context.Context) error
	Login(ctx context.Context, identifier, password string, rememberMe bool) error
	Signup(ctx context.Context, data models.SignupData) error
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, patch models.ProfileUpdate) error
	RefreshProfile(ctx context.Context) error
	ClearError()
}

// Accounts covers the signup and password reset steps that do not change
// the session.
type Accounts interface {
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	ValidateResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type App struct {
	session  Session
	accounts Accounts
	router   *Router
	reader   *bufio.Reader
	out      io.Writer
	logger   logging.Logger
}

// NewApp registers the pages on router and makes it follow sess. The same
// router must be the session's navigator.
func NewApp(sess Session, accounts Accounts, router *Router, in io.Reader, out io.Writer, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	registerRoutes(router, guard.NewProtected())
	router.Watch(sess)
	return &App{
		session:  sess,
		accounts: accounts,
		router:   router,
		reader:   bufio.NewReader(in),
		out:      out,
		logger:   logger,
	}
}

// Run restores the stored session, opens the first page and serves
// commands until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.router.Stop()

	fmt.Fprintln(a.out, "Welcome to Kefi (type 'help' for commands)")
	if err := a.session.Bootstrap(ctx); err != nil {
		a.logger.Warn(ctx, "session bootstrap failed", "error", err)
	}
	a.router.Navigate(session.PathDashboard, session.NavState{})

	runREPL(ctx, a, a.status, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.session.State().IsAuthenticated
}

func (a *App) status() string {
	s := ""
	if u := a.session.State().User; u != nil {
		s = u.Username + " "
	}
	if loc, _ := a.router.Current(); loc.Path != "" {
		s += loc.Path
	}
	if s != "" {
		s = fmt.Sprintf(" (%s)", s)
	}
	return s
}

// open navigates to path and reports whether that page is the one shown.
func (a *App) open(path string) bool {
	a.router.Navigate(path, session.NavState{})
	loc, rendered := a.router.Current()
	return rendered && loc.Path == path
}

func (a *App) Go(path string) {
	a.router.Navigate(path, session.NavState{})
}

func (a *App) Revalidate() {
	a.router.Revalidate()
}

func (a *App) Whoami() {
	printUser(a.out, a.session.State().User)
}
