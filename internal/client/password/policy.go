// Package password holds the local password strength rules. Checks run
// before any network call that would carry a new password.
package password

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
)

// Policy describes what a new password must satisfy.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSymbol  bool
	MinEntropyBits float64
}

// Presets. Standard mirrors the backend's own validation.
var (
	Basic    = Policy{MinLength: 8}
	Standard = Policy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireDigit: true}
	Strict   = Policy{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true, RequireSymbol: true, MinEntropyBits: 60}
)

// Named returns the preset called name (basic, standard, strict).
func Named(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic":
		return Basic, nil
	case "", "standard":
		return Standard, nil
	case "strict":
		return Strict, nil
	default:
		return Policy{}, fmt.Errorf("unknown password policy %q", name)
	}
}

// Check returns a WeakPassword error listing every failed rule, or nil.
func (p Policy) Check(pw string) error {
	var failed []string

	if n := len([]rune(pw)); n < p.MinLength {
		failed = append(failed, fmt.Sprintf("Password must be at least %d characters long.", p.MinLength))
	}

	c := classify(pw)
	if p.RequireUpper && !c.upper {
		failed = append(failed, "Password must contain at least one uppercase letter.")
	}
	if p.RequireLower && !c.lower {
		failed = append(failed, "Password must contain at least one lowercase letter.")
	}
	if p.RequireDigit && !c.digit {
		failed = append(failed, "Password must contain at least one digit.")
	}
	if p.RequireSymbol && !c.symbol {
		failed = append(failed, "Password must contain at least one symbol.")
	}
	if p.MinEntropyBits > 0 && Entropy(pw) < p.MinEntropyBits {
		failed = append(failed, "Password is too predictable.")
	}

	if len(failed) == 0 {
		return nil
	}
	return &autherr.Error{
		Kind:    autherr.KindWeakPassword,
		Message: "Password is too weak.",
		Fields:  map[string][]string{"password": failed},
	}
}

// Entropy estimates the password's strength in bits as
// length * log2(size of the character pool it draws from).
func Entropy(pw string) float64 {
	n := len([]rune(pw))
	if n == 0 {
		return 0
	}

	c := classify(pw)
	pool := 0
	if c.lower {
		pool += 26
	}
	if c.upper {
		pool += 26
	}
	if c.digit {
		pool += 10
	}
	if c.symbol {
		pool += 33
	}
	if pool == 0 {
		return 0
	}
	return float64(n) * math.Log2(float64(pool))
}

type classes struct {
	upper, lower, digit, symbol bool
}

func classify(pw string) classes {
	var c classes
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			c.symbol = true
		}
	}
	return c
}
