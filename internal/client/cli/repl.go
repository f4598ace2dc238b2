package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Revalidate()
	Go(path string)
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Forgot(ctx context.Context) error
	EditProfile(ctx context.Context) error
	CompleteProfile(ctx context.Context) error
	Reload(ctx context.Context) error
	Whoami()
	Logout(ctx context.Context) error
}

const (
	guestHelp  = "Available commands: login, signup, forgot, go <path>, whoami, exit"
	memberHelp = "Available commands: profile, complete, reload, go <path>, whoami, logout, exit"
)

// runREPL starts a simple read-eval-print loop for the Kefi client.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Before every prompt the current page's guard
// is re-evaluated, so a session that ended while the user was idle or in the
// middle of a command sends them to the login page. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - login         : sign in (username or email)
//	  - signup        : create an account with email verification
//	  - forgot        : reset the password with an emailed code
//
//	Logged in:
//	  - profile       : edit optional profile fields
//	  - complete      : complete the profile
//	  - reload        : re-fetch the profile
//	  - logout        : sign out
//
//	Always:
//	  - help, go <path>, whoami, exit | quit
//
// Errors returned by command handlers are ignored here; handlers print their
// own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		a.Revalidate()
		fmt.Fprintf(w, "kefi%s> ", statusFn())

		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, memberHelp)
			} else {
				fmt.Fprintln(w, guestHelp)
			}

		case "go":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: go <path>")
				continue
			}
			a.Go(args[0])

		case "login":
			_ = a.Login(ctx)

		case "signup":
			_ = a.Signup(ctx)

		case "forgot":
			_ = a.Forgot(ctx)

		case "profile":
			_ = a.EditProfile(ctx)

		case "complete":
			_ = a.CompleteProfile(ctx)

		case "reload":
			_ = a.Reload(ctx)

		case "whoami":
			a.Whoami()

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
