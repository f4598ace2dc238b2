package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/kefi/internal/flagx"
	"github.com/dmitrijs2005/kefi/internal/timex"
	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvAPIURL         = "KEFI_API_URL"
	EnvRequestTimeout = "KEFI_REQUEST_TIMEOUT"
	EnvStorePath      = "KEFI_STORE_PATH"
	EnvPasswordPolicy = "KEFI_PASSWORD_POLICY"
	EnvLogLevel       = "KEFI_LOG_LEVEL"
	EnvLogFormat      = "KEFI_LOG_FORMAT"
)

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file named by -e or -env (".env" otherwise)
// into the process environment, then overlays Config with the KEFI_*
// variables. Variables already set in the environment win over the file.
// A missing file is ignored; a malformed one panics.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			panic(fmt.Errorf("load %s: %w", path, err))
		}
		if explicit {
			panic(fmt.Errorf("env file %s not found", path))
		}
	}

	overlay(&cfg.APIBaseURL, os.Getenv(EnvAPIURL))
	overlay(&cfg.StorePath, os.Getenv(EnvStorePath))
	overlay(&cfg.PasswordPolicy, os.Getenv(EnvPasswordPolicy))
	overlay(&cfg.LogLevel, os.Getenv(EnvLogLevel))
	overlay(&cfg.LogFormat, os.Getenv(EnvLogFormat))

	if v := os.Getenv(EnvRequestTimeout); v != "" {
		d, err := timex.Parse(v)
		if err != nil {
			panic(fmt.Errorf("%s: %w", EnvRequestTimeout, err))
		}
		cfg.RequestTimeout = d
	}
}
