package auth

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
)

func TestSessionTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessions()
	sess := NewSession(store, "")

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.False(t, sess.Authenticated(ctx))

	// Clearing a session that was never stored is a no-op.
	require.NoError(t, sess.SetToken(ctx, ""))
	assert.Empty(t, sess.ID)

	require.NoError(t, sess.SetToken(ctx, "tok-1"))
	_, err = uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.True(t, sess.Authenticated(ctx))
	assert.Equal(t, 1, store.Len())

	id := sess.ID
	require.NoError(t, sess.SetToken(ctx, "tok-2"))
	assert.Equal(t, id, sess.ID)

	reloaded := NewSession(store, id)
	token, err = reloaded.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	require.NoError(t, reloaded.SetToken(ctx, ""))
	assert.Equal(t, 0, store.Len())
	assert.False(t, sess.Authenticated(ctx))
}

func TestSessionBacksAPIClient(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(NewMemorySessions(), "")
	client := apiclient.New("http://api.invalid", nil).WithTokens(sess)

	require.NoError(t, client.SetToken(ctx, "abc"))
	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestSealedSessions(t *testing.T) {
	ctx := context.Background()
	inner := NewMemorySessions()
	sealed, err := NewSealedSessions(inner, []byte("a long enough secret"))
	require.NoError(t, err)

	require.NoError(t, sealed.SaveToken(ctx, "sid", "bearer-token"))

	raw, err := inner.Token(ctx, "sid")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotContains(t, raw, "bearer-token")

	token, err := sealed.Token(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", token)

	// Two seals of the same token differ by nonce.
	require.NoError(t, sealed.SaveToken(ctx, "sid2", "bearer-token"))
	raw2, _ := inner.Token(ctx, "sid2")
	assert.NotEqual(t, raw, raw2)

	token, err = sealed.Token(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, sealed.Delete(ctx, "sid"))
	assert.Equal(t, 1, inner.Len())
}

func TestSealedSessionsRejectsForeignValues(t *testing.T) {
	ctx := context.Background()
	inner := NewMemorySessions()
	a, err := NewSealedSessions(inner, []byte("secret-a"))
	require.NoError(t, err)
	b, err := NewSealedSessions(inner, []byte("secret-b"))
	require.NoError(t, err)

	require.NoError(t, a.SaveToken(ctx, "sid", "tok"))
	_, err = b.Token(ctx, "sid")
	assert.ErrorIs(t, err, ErrSealedToken)

	raw, _ := inner.Token(ctx, "sid")
	flipped := []byte(raw)
	if flipped[10] == 'A' {
		flipped[10] = 'B'
	} else {
		flipped[10] = 'A'
	}
	require.NoError(t, inner.SaveToken(ctx, "sid", string(flipped)))
	_, err = a.Token(ctx, "sid")
	assert.ErrorIs(t, err, ErrSealedToken)

	require.NoError(t, inner.SaveToken(ctx, "sid", "plain-token"))
	_, err = a.Token(ctx, "sid")
	assert.ErrorIs(t, err, ErrSealedToken)

	_, err = NewSealedSessions(inner, nil)
	assert.Error(t, err)
}

// Runs against a real server when TEST_REDIS_ADDR is set.
func TestRedisSessions(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	store := NewRedisSessions(rdb)
	sid := "test-" + strings.ReplaceAll(uuid.NewString(), "-", "")

	token, err := store.Token(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SaveToken(ctx, sid, "tok"))
	token, err = store.Token(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	field, err := rdb.HGet(ctx, "session:"+sid, apiclient.TokenKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "tok", field)
	ttl, err := rdb.TTL(ctx, "session:"+sid).Result()
	require.NoError(t, err)
	assert.InDelta(t, SessionTTL.Seconds(), ttl.Seconds(), (time.Minute).Seconds())

	require.NoError(t, store.Delete(ctx, sid))
	token, err = store.Token(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, token)
}
