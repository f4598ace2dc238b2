// Package config loads runtime configuration for the Kefi client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment (see parseEnv): KEFI_* variables, optionally seeded from a
//     dotenv file selected via -e or -env (".env" when present).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the authentication API
//	-t value    request timeout (seconds or a duration)
//	-d string   durable session store path
//	-p string   password policy (basic, standard, strict)
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be
// either strings like "15s" or a number of seconds:
//
//	{
//	  "api_url": "http://localhost:8000/api/auth/",
//	  "request_timeout": "15s",
//	  "store_path": "kefi.db",
//	  "password_policy": "standard",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// Primary API
//
//   - type Config                    : holds the settings listed above
//   - func LoadConfig() *Config      : defaults, JSON, environment, then flags
//   - func (*Config) LoadDefaults()  : sets sensible defaults
//   - func (*Config) Validate() error: rejects settings the client cannot use
package config
