package dedupecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfunnel/disposition/internal/dedupecache"
)

func newTestCache(t *testing.T) *dedupecache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return dedupecache.New(client, time.Hour)
}

func TestSeen_FalseBeforeMark(t *testing.T) {
	c := newTestCache(t)
	seen, err := c.Seen(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMark_MakesSubsequentSeenTrue(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Mark(context.Background(), "a@acme.com", "client1"))

	seen, err := c.Seen(context.Background(), "a@acme.com", "client1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMark_IsScopedPerClient(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Mark(context.Background(), "a@acme.com", "client1"))

	seen, err := c.Seen(context.Background(), "a@acme.com", "client2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestFilterUnseen_DropsMarkedEmails(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Mark(context.Background(), "a@acme.com", "client1"))

	unseen, err := c.FilterUnseen(context.Background(), []string{"a@acme.com", "b@acme.com"}, "client1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b@acme.com"}, unseen)
}
