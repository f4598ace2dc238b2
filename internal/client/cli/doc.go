// Package cli provides the interactive Kefi terminal client.
//
// Pages (login, signup, forgot-password, dashboard, profile,
// complete-profile) are registered on a Router behind the guest-only and
// protected guards. The Router is also the session manager's navigator, so
// every navigation the manager requests runs through the same guards.
//
// Key features:
//   - Login with remember-me, signup with email verification
//   - Password reset with an emailed code
//   - Profile editing where Enter keeps a value and "-" clears it
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, Router and runREPL for details.
package cli
