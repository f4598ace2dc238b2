// Package timex parses timeouts the way operators write them.
package timex

import (
	"encoding/json"
	"errors"
	"flag"
	"strconv"
	"time"
)

// Parse accepts either a Go duration string ("15s", "1m30s") or a whole
// number of seconds ("15").
func Parse(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Duration unmarshals from a Go duration string or a number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
		return nil
	case string:
		parsed, err := Parse(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// flagValue is a flag.Value that writes through to a time.Duration only
// when the flag is actually passed.
type flagValue struct {
	d *time.Duration
}

func (f flagValue) String() string {
	if f.d == nil {
		return ""
	}
	return f.d.String()
}

func (f flagValue) Set(s string) error {
	d, err := Parse(s)
	if err != nil {
		return err
	}
	*f.d = d
	return nil
}

// Var defines a duration flag accepting the same forms as Parse. The
// current value of *p is the default.
func Var(fs *flag.FlagSet, p *time.Duration, name, usage string) {
	fs.Var(flagValue{d: p}, name, usage)
}
