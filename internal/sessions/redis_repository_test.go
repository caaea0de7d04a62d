package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		Token:     "t1",
		Sub:       "visitor-1",
		Method:    "anonymous",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(5 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("test:session:t1"))

	got, err := repo.GetByToken(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.Sub, got.Sub)
	require.Equal(t, "anonymous", got.Method)

	require.NoError(t, repo.DeleteByToken(ctx, "t1"))
	got2, err := repo.GetByToken(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")

	ctx := context.Background()
	s := &Session{
		Token:     "t2",
		Sub:       "visitor-2",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(1 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("session:t2"))

	got, err := repo.GetByToken(ctx, "t2")
	require.NoError(t, err)
	require.NotNil(t, got)

	// advance miniredis clock past TTL
	m.FastForward(2 * time.Second)

	got2, err := repo.GetByToken(ctx, "t2")
	require.NoError(t, err)
	require.Nil(t, got2)
}
