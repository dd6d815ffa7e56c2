package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_RoundTripAndExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	sess := s.Session("abc")
	require.NoError(t, sess.Set(ctx, "loc", map[string]string{"city": "Tripoli"}))

	var got map[string]string
	ok, err := sess.Get(ctx, "loc", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tripoli", got["city"])

	ok, err = s.Session("other").Get(ctx, "loc", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Minute)
	ok, err = sess.Get(ctx, "loc", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestSessions_DecodeError(t *testing.T) {
	s := NewSessions(0)
	ctx := context.Background()
	require.NoError(t, s.Session("a").Set(ctx, "n", "text"))

	var n int
	ok, err := s.Session("a").Get(ctx, "n", &n)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSessions_EncodeError(t *testing.T) {
	err := NewSessions(time.Minute).Session("a").Set(context.Background(), "ch", make(chan int))
	assert.Error(t, err)
}
