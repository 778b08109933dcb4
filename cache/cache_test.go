package cache

import (
	"context"
	"testing"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *DB) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db, err := New(context.Background(), config.ConnectionConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return mr, db
}

func TestNew_Disabled(t *testing.T) {
	db, err := New(context.Background(), config.ConnectionConfig{})
	assert.NoError(t, err)
	assert.Nil(t, db)
}

func TestNew_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), config.ConnectionConfig{Addr: addr})
	assert.ErrorContains(t, err, "could not connect to cache")
}

func TestPresence(t *testing.T) {
	mr, db := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, db.Add(ctx, "client_1"))
	require.NoError(t, db.Add(ctx, "client_2"))
	assert.True(t, mr.Exists(ClientsKey))

	clients, err := db.Clients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
	assert.NotEmpty(t, clients["client_1"])

	require.NoError(t, db.Remove(ctx, "client_1"))
	clients, err = db.Clients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"client_2"}, keys(clients))

	require.NoError(t, db.Reset(ctx))
	assert.False(t, mr.Exists(ClientsKey))
	require.NoError(t, db.Ping(ctx))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
