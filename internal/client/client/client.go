package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/dmitrijs2005/kefi/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// RequestIDHeaderName carries a per-request correlation id.
const RequestIDHeaderName = "X-Request-ID"

// DefaultTimeout bounds a single HTTP exchange when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// TokenStore is the part of the token store the client needs.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	UpdateTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

type APIClient struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	logger  logging.Logger
	timeout time.Duration

	refreshGroup singleflight.Group

	hookMu    sync.RWMutex
	onExpired func(ctx context.Context)
}

type Option func(*APIClient)

func WithHTTPClient(h *http.Client) Option {
	return func(c *APIClient) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *APIClient) { c.logger = l }
}

// New builds a client rooted at baseURL, e.g. "http://localhost:8000/api/auth/".
func New(baseURL string, tokens TokenStore, opts ...Option) (*APIClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &APIClient{
		baseURL: u,
		http:    &http.Client{},
		tokens:  tokens,
		logger:  logging.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnSessionExpired registers fn to run after a failed refresh has cleared
// the stored session. The session manager uses it to drop to anonymous.
func (c *APIClient) OnSessionExpired(fn func(ctx context.Context)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onExpired = fn
}

// endpoint describes one REST call.
type endpoint struct {
	method string
	path   string
	auth   bool
	// noRefresh disables the 401 refresh-and-retry cycle.
	noRefresh bool
	// kinds overrides the default status-to-kind mapping.
	kinds map[int]autherr.Kind
	// fallback is the message used when the body carries none.
	fallback string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do runs e with the interceptor pair: bearer attach, then one
// refresh-and-retry on 401.
func (c *APIClient) do(ctx context.Context, e endpoint, in, out any) error {
	var token string
	if e.auth {
		t, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return autherr.Wrap(autherr.KindService, "Failed to read stored session", err)
		}
		if t == "" {
			return autherr.New(autherr.KindUnauthorized, "No token found")
		}
		token = t
	}

	resp, err := c.send(ctx, e, token, in)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && e.auth && !e.noRefresh {
		fresh, rerr := c.refreshAfter(ctx, token)
		if rerr != nil {
			if ctx.Err() != nil {
				// The caller gave up waiting. The shared refresh keeps
				// running and stores its result, so the session stays.
				return transportError(ctx.Err())
			}
			c.logger.Warn(ctx, "token refresh failed, ending session", "path", e.path, "error", rerr)
			c.expire(ctx)
			return normalize(e, resp.status, resp.body, resp.header)
		}
		if resp, err = c.send(ctx, e, fresh, in); err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status > 299 {
		return normalize(e, resp.status, resp.body, resp.header)
	}

	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return autherr.Wrap(autherr.KindService, "Unexpected response from server", err)
		}
	}
	return nil
}

// send performs a single HTTP exchange bounded by the client timeout.
func (c *APIClient) send(ctx context.Context, e endpoint, token string, in any) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", e.path, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: e.path})
	req, err := http.NewRequestWithContext(ctx, e.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", e.path, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeaderName, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "request failed", "request_id", requestID, "method", e.method, "path", e.path, "error", err)
		return nil, transportError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, transportError(err)
	}

	c.logger.Debug(ctx, "request done",
		"request_id", requestID,
		"method", e.method,
		"path", e.path,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)
	return &response{status: res.StatusCode, header: res.Header, body: data}, nil
}

// refreshAfter returns an access token newer than stale. When another
// request already rotated the token it is reused, otherwise one shared
// refresh call is made. The check runs inside the shared call so a
// rotation that lands just before it cannot start a second refresh.
func (c *APIClient) refreshAfter(ctx context.Context, stale string) (string, error) {
	return c.shared(ctx, func(ctx context.Context) (string, error) {
		current, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return "", autherr.Wrap(autherr.KindService, "Failed to read stored session", err)
		}
		if current != "" && current != stale {
			return current, nil
		}
		return c.refresh(ctx)
	})
}

// Refresh exchanges the stored refresh token for a new access token and
// writes the result back to the token store. Concurrent callers share a
// single request.
func (c *APIClient) Refresh(ctx context.Context) (string, error) {
	return c.shared(ctx, c.refresh)
}

// shared runs fn at most once at a time across all callers. Callers that
// arrive while fn is running wait for its result.
func (c *APIClient) shared(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", transportError(ctx.Err())
	}
}

func (c *APIClient) refresh(ctx context.Context) (string, error) {
	refresh, err := c.tokens.RefreshToken(ctx)
	if err != nil {
		return "", autherr.Wrap(autherr.KindService, "Failed to read stored session", err)
	}
	if refresh == "" {
		return "", autherr.New(autherr.KindUnauthorized, "No refresh token found")
	}

	var out refreshResponse
	e := endpoint{method: http.MethodPost, path: "refresh/", kinds: map[int]autherr.Kind{
		http.StatusBadRequest: autherr.KindUnauthorized,
	}, fallback: "Session expired"}
	if err := c.do(ctx, e, refreshRequest{Refresh: refresh}, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", autherr.New(autherr.KindService, "Refresh response without access token")
	}

	if err := c.tokens.UpdateTokens(ctx, out.Access, out.Refresh); err != nil {
		return "", autherr.Wrap(autherr.KindService, "Failed to store refreshed session", err)
	}
	c.logger.Info(ctx, "access token refreshed", "rotated_refresh", out.Refresh != "")
	return out.Access, nil
}

func (c *APIClient) expire(ctx context.Context) {
	if err := c.tokens.ClearTokens(ctx); err != nil {
		c.logger.Error(ctx, "failed to clear expired session", "error", err)
	}

	c.hookMu.RLock()
	fn := c.onExpired
	c.hookMu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, autherr.ErrUnauthorized)
}
