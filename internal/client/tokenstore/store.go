// Package tokenstore is the single owner of session persistence: where the
// access and refresh tokens live, the remember-me flag and the cached user.
//
// Tokens live in exactly one of two areas: the durable area when the user
// asked to be remembered, the session area otherwise. Writing to one area
// always empties the other.
package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/storage"
)

// Keys used inside both areas.
const (
	KeyAccess     = "access"
	KeyRefresh    = "refresh"
	KeyRememberMe = "rememberMe"
	KeyUser       = "user"
)

type Store struct {
	mu      sync.RWMutex
	durable storage.Area
	session storage.Area
}

func New(durable, session storage.Area) *Store {
	return &Store{durable: durable, session: session}
}

func (s *Store) areaFor(rememberMe bool) (chosen, other storage.Area) {
	if rememberMe {
		return s.durable, s.session
	}
	return s.session, s.durable
}

// active returns the area currently holding an access token, or nil.
// Caller holds s.mu.
func (s *Store) active(ctx context.Context) (storage.Area, error) {
	for _, a := range []storage.Area{s.session, s.durable} {
		v, err := a.Get(ctx, KeyAccess)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return a, nil
		}
	}
	return nil, nil
}

// SetTokens stores a fresh session in the area picked by rememberMe and
// wipes the other area. Any cached user is dropped.
func (s *Store) SetTokens(ctx context.Context, access, refresh string, rememberMe bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chosen, other := s.areaFor(rememberMe)
	items := map[string][]byte{
		KeyAccess:     []byte(access),
		KeyRefresh:    []byte(refresh),
		KeyRememberMe: []byte(strconv.FormatBool(rememberMe)),
	}
	if err := chosen.Replace(ctx, items); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	if err := other.Clear(ctx); err != nil {
		// Roll back so the two areas never both hold tokens.
		_ = chosen.Clear(ctx)
		return fmt.Errorf("clear previous tokens: %w", err)
	}
	return nil
}

// UpdateTokens rotates tokens in the area that already holds them. An
// empty refresh keeps the current one. Without a stored session it is a
// no-op, so a late refresh cannot resurrect a logged-out session.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.active(ctx)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if a == nil {
		return nil
	}
	if err := a.Set(ctx, KeyAccess, []byte(access)); err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if refresh != "" {
		if err := a.Set(ctx, KeyRefresh, []byte(refresh)); err != nil {
			return fmt.Errorf("update tokens: %w", err)
		}
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := s.active(ctx)
	if err != nil || a == nil {
		return nil, err
	}
	return a.Get(ctx, key)
}

// AccessToken returns the stored access token, "" when there is none.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	v, err := s.read(ctx, KeyAccess)
	return string(v), err
}

// RefreshToken returns the stored refresh token, "" when there is none.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	v, err := s.read(ctx, KeyRefresh)
	return string(v), err
}

// RememberMe reports the persisted flag of the current session.
func (s *Store) RememberMe(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, KeyRememberMe)
	if err != nil || len(v) == 0 {
		return false, err
	}
	b, _ := strconv.ParseBool(string(v))
	return b, nil
}

// SetUser caches u next to the tokens. Without a session it does nothing.
func (s *Store) SetUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.active(ctx)
	if err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	if a == nil {
		return nil
	}
	if u == nil {
		return a.Delete(ctx, KeyUser)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	return a.Set(ctx, KeyUser, b)
}

// User returns the cached user. A missing or unreadable entry yields nil.
func (s *Store) User(ctx context.Context) (*models.User, error) {
	v, err := s.read(ctx, KeyUser)
	if err != nil || len(v) == 0 {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

// ClearTokens empties both areas. Calling it again is harmless.
func (s *Store) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errS := s.session.Clear(ctx)
	errD := s.durable.Clear(ctx)
	if errS != nil {
		return fmt.Errorf("clear session tokens: %w", errS)
	}
	if errD != nil {
		return fmt.Errorf("clear durable tokens: %w", errD)
	}
	return nil
}
