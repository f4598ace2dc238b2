package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/kefi/internal/flagx"
	"github.com/dmitrijs2005/kefi/internal/timex"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   API base URL
//	-t value    request timeout, seconds ("30") or a duration ("1500ms")
//	-d string   path of the durable session store
//	-p string   password policy (basic, standard, strict)
//	-l string   log level (debug, info, warn, error)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the authentication API")
	timex.Var(fs, &cfg.RequestTimeout, "t", "request timeout, seconds or a duration like 1500ms")
	fs.StringVar(&cfg.StorePath, "d", cfg.StorePath, "path of the durable session store")
	fs.StringVar(&cfg.PasswordPolicy, "p", cfg.PasswordPolicy, "password policy: basic, standard or strict")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
