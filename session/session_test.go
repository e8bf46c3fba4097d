package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/models"
)

func newStore(t *testing.T) (*AppSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewAppSessionStore(rdb, time.Hour, clock.NewFake(time.Unix(1_700_000_000, 0))), mr
}

func TestSessionLifecycle(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a", 7, "10.0.0.1"))
	as, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint(7), as.UserID)
	assert.Equal(t, int64(1_700_000_000+3600), as.ExpiresAt)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.Create(ctx, "b", 7, ""))
	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeAllForUser(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a", 7, ""))
	require.NoError(t, s.Create(ctx, "b", 7, ""))
	require.NoError(t, s.Create(ctx, "c", 8, ""))

	require.NoError(t, s.RevokeAllForUser(ctx, 7))
	for _, sid := range []string{"a", "b"} {
		_, err := s.Get(ctx, sid)
		assert.ErrorIs(t, err, ErrSessionNotFound, sid)
	}
	_, err := s.Get(ctx, "c")
	assert.NoError(t, err)

	// Nothing registered is fine.
	assert.NoError(t, s.RevokeAllForUser(ctx, 99))
}

func TestTokensRoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Now())
	tokens := NewTokens("secret", time.Hour, clk)

	raw, exp, err := tokens.Issue(7, "sid-1", models.RoleSecurityGuard)
	require.NoError(t, err)
	assert.True(t, exp.Equal(clk.Now().Add(time.Hour)))

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, models.RoleSecurityGuard, claims.Role)

	_, err = NewTokens("other", time.Hour, clk).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clk.Advance(2 * time.Hour)
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { BcryptCost = bcrypt.DefaultCost })

	h, err := HashPassword("rahasia123")
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia123", h)
	assert.True(t, CheckPassword(h, "rahasia123"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "rahasia123"))
}
