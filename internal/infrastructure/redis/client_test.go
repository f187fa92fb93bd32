package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SelectsDatabase(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, "redis://"+s.Addr()+"/3")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "idem:k", "v", 0).Err())

	s.Select(3)
	assert.True(t, s.Exists("idem:k"))
	s.Select(0)
	assert.False(t, s.Exists("idem:k"))
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(context.Background(), "://bad-url")
	require.ErrorContains(t, err, "parse redis URL")

	s := miniredis.RunT(t)
	url := "redis://" + s.Addr()
	s.Close()

	_, err = NewClient(context.Background(), url)
	require.ErrorContains(t, err, "ping")
}

func TestPing_ReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, "redis://"+s.Addr())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, Ping(ctx, client))

	s.SetError("LOADING dataset in memory")
	assert.Error(t, Ping(ctx, client))
}
