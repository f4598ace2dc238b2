package tokenstore

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/kefi/internal/client/models"
	"github.com/dmitrijs2005/kefi/internal/client/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *storage.SQLiteArea, *storage.MemoryArea) {
	t.Helper()
	durable, err := storage.OpenDurable(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = durable.Close() })
	session := storage.NewMemoryArea()
	return New(durable, session), durable, session
}

func holdsAccess(t *testing.T, a storage.Area) bool {
	t.Helper()
	v, err := a.Get(context.Background(), KeyAccess)
	require.NoError(t, err)
	return len(v) > 0
}

func TestSetTokens_RememberMeSelectsArea(t *testing.T) {
	ctx := context.Background()
	s, durable, session := newStore(t)

	require.NoError(t, s.SetTokens(ctx, "a1", "r1", true))
	assert.True(t, holdsAccess(t, durable))
	assert.False(t, holdsAccess(t, session))

	remember, err := s.RememberMe(ctx)
	require.NoError(t, err)
	assert.True(t, remember)

	require.NoError(t, s.SetTokens(ctx, "a2", "r2", false))
	assert.False(t, holdsAccess(t, durable))
	assert.True(t, holdsAccess(t, session))

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", access)

	remember, err = s.RememberMe(ctx)
	require.NoError(t, err)
	assert.False(t, remember)
}

func TestSetTokens_AtMostOneAreaHoldsTokens(t *testing.T) {
	ctx := context.Background()
	s, durable, session := newStore(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0:
			require.NoError(t, s.ClearTokens(ctx))
		case 1:
			require.NoError(t, s.UpdateTokens(ctx, fmt.Sprintf("u%d", i), ""))
		default:
			require.NoError(t, s.SetTokens(ctx, fmt.Sprintf("a%d", i), fmt.Sprintf("r%d", i), rng.Intn(2) == 0))
		}
		require.False(t, holdsAccess(t, durable) && holdsAccess(t, session), "step %d: both areas hold tokens", i)
	}
}

func TestClearTokens_ThenGetReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _, session := newStore(t)

	require.NoError(t, s.SetTokens(ctx, "a1", "r1", false))
	require.NoError(t, s.SetUser(ctx, &models.User{Username: "alice"}))
	require.NoError(t, s.ClearTokens(ctx))
	require.NoError(t, s.ClearTokens(ctx))

	access, err := s.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)

	refresh, err := s.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, refresh)

	u, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, session.Snapshot())
}

func TestUpdateTokens_KeepsAreaAndOptionalRefresh(t *testing.T) {
	ctx := context.Background()
	s, durable, session := newStore(t)

	require.NoError(t, s.SetTokens(ctx, "a1", "r1", true))
	require.NoError(t, s.UpdateTokens(ctx, "a2", ""))

	assert.True(t, holdsAccess(t, durable))
	assert.False(t, holdsAccess(t, session))

	access, _ := s.AccessToken(ctx)
	refresh, _ := s.RefreshToken(ctx)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)

	require.NoError(t, s.UpdateTokens(ctx, "a3", "r3"))
	refresh, _ = s.RefreshToken(ctx)
	assert.Equal(t, "r3", refresh)
}

func TestUpdateTokens_NoSessionIsNoop(t *testing.T) {
	ctx := context.Background()
	s, durable, session := newStore(t)

	require.NoError(t, s.UpdateTokens(ctx, "late", "late"))
	assert.False(t, holdsAccess(t, durable))
	assert.False(t, holdsAccess(t, session))
}

func TestUser_CachedNextToTokens(t *testing.T) {
	ctx := context.Background()
	s, _, session := newStore(t)

	require.NoError(t, s.SetUser(ctx, &models.User{Username: "ghost"}))
	u, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u, "no session, nothing cached")

	require.NoError(t, s.SetTokens(ctx, "a1", "r1", false))
	require.NoError(t, s.SetUser(ctx, &models.User{ID: 1, Username: "alice", ProfileCompleted: true}))

	u, err = s.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.ProfileCompleted)

	require.NoError(t, session.Set(ctx, KeyUser, []byte("{broken")))
	u, err = s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.SetUser(ctx, nil))
	v, _ := session.Get(ctx, KeyUser)
	assert.Nil(t, v)
}

func TestSetTokens_DropsCachedUser(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	require.NoError(t, s.SetTokens(ctx, "a1", "r1", false))
	require.NoError(t, s.SetUser(ctx, &models.User{Username: "alice"}))
	require.NoError(t, s.SetTokens(ctx, "b1", "s1", false))

	u, err := s.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}
