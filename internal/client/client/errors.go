package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
)

// messageKeys are the body keys the backend uses for a top-level message.
var messageKeys = []string{"detail", "error", "message", "non_field_errors"}

// normalize turns a non-2xx response into an *autherr.Error.
func normalize(e endpoint, status int, body []byte, header http.Header) *autherr.Error {
	msg, fields := parseBody(body)

	kind, mapped := e.kinds[status]
	switch {
	case status == http.StatusBadRequest && len(fields) > 0:
		kind = autherr.KindValidation
	case mapped:
		// endpoint-specific kind wins
	case status == http.StatusBadRequest:
		kind = autherr.KindValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = autherr.KindUnauthorized
	case status == http.StatusTooManyRequests:
		kind = autherr.KindRateLimit
	default:
		kind = autherr.KindService
	}

	if msg == "" {
		msg = e.fallback
	}

	ae := &autherr.Error{Kind: kind, Message: msg, Status: status, Fields: fields}
	if kind == autherr.KindRateLimit {
		ae.RetryAfter = parseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return ae
}

// parseBody extracts the top-level message and field errors from a DRF
// style error body. Non-JSON bodies yield nothing.
func parseBody(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &raw) != nil {
		return "", nil
	}

	var msg string
	for _, k := range messageKeys {
		if v, ok := raw[k]; ok {
			if texts := textsOf(v); len(texts) > 0 {
				msg = texts[0]
				break
			}
		}
	}

	var fields map[string][]string
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isMessageKey(k) {
			continue
		}
		texts := textsOf(raw[k])
		if len(texts) == 0 {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		fields[k] = texts
	}

	if msg == "" {
		for _, k := range keys {
			if texts, ok := fields[k]; ok {
				msg = texts[0]
				break
			}
		}
	}
	return msg, fields
}

func isMessageKey(k string) bool {
	for _, m := range messageKeys {
		if k == m {
			return true
		}
	}
	return false
}

// textsOf accepts "text" or ["text", ...].
func textsOf(v json.RawMessage) []string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(v, &list) == nil {
		return list
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// transportError classifies a failure to get any response at all.
func transportError(err error) *autherr.Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return autherr.Wrap(autherr.KindTimeout, "", err)
	}
	return autherr.Wrap(autherr.KindNetwork, "", err)
}
