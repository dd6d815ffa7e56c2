package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/config"
)

type fakeClient struct {
	hashes  map[string]map[string]string
	expires map[string]time.Duration
	err     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{hashes: map[string]map[string]string{}, expires: map[string]time.Duration{}}
}

func (c *fakeClient) HGet(_ context.Context, key, field string) *goredis.StringCmd {
	if c.err != nil {
		return goredis.NewStringResult("", c.err)
	}
	v, ok := c.hashes[key][field]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (c *fakeClient) HSet(_ context.Context, key string, values ...interface{}) *goredis.IntCmd {
	if c.err != nil {
		return goredis.NewIntResult(0, c.err)
	}
	h, ok := c.hashes[key]
	if !ok {
		h = map[string]string{}
		c.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = string(values[i+1].([]byte))
	}
	return goredis.NewIntResult(int64(len(values)/2), nil)
}

func (c *fakeClient) Expire(_ context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	c.expires[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func TestSessions_RoundTrip(t *testing.T) {
	client := newFakeClient()
	store := NewSessions(client, "mstore:session", time.Hour).Session("abc")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "chosen_shipping_methods", []string{"flat_rate:1"}))
	assert.Contains(t, client.hashes, "mstore:session:abc")
	assert.Equal(t, time.Hour, client.expires["mstore:session:abc"])

	var got []string
	ok, err := store.Get(ctx, "chosen_shipping_methods", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"flat_rate:1"}, got)
}

func TestSessions_MissingKey(t *testing.T) {
	store := NewSessions(newFakeClient(), "", 0).Session("abc")
	var got string
	ok, err := store.Get(context.Background(), "user_location", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessions_ClientError(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("connection refused")
	store := NewSessions(client, "p", time.Minute).Session("abc")

	var got string
	_, err := store.Get(context.Background(), "k", &got)
	assert.ErrorIs(t, err, client.err)
	assert.ErrorIs(t, store.Set(context.Background(), "k", "v"), client.err)
}

func TestSessions_KeyWithoutPrefix(t *testing.T) {
	client := newFakeClient()
	require.NoError(t, NewSessions(client, "", 0).Session("abc").Set(context.Background(), "k", 1))
	assert.Contains(t, client.hashes, "abc")
	assert.Empty(t, client.expires)
}

func TestNewClient(t *testing.T) {
	c := NewClient(config.SessionConfig{RedisAddr: "localhost:6379", RedisDB: 2})
	defer c.Close()
	assert.Equal(t, 2, c.Options().DB)
}
