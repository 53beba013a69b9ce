package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSubscriptionStoreAddListRemove(t *testing.T) {
	rdb := setupTestRedis(t)
	s := NewPushSubscriptionStore(rdb)
	now := time.Now().Unix()

	require.NoError(t, s.Add(t.Context(), "token-a", now))
	require.NoError(t, s.Add(t.Context(), "token-b", now))

	subs, err := s.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, s.Remove(t.Context(), "token-a"))
	subs, err = s.List(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "token-b", subs[0].Token)
}
