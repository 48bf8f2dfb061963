package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts, err := Options(" 127.0.0.1:6379 ")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = Options("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = Options("")
	assert.Error(t, err)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	_, err = New(context.Background(), mr.Addr())
	assert.ErrorContains(t, err, "platform/cache: ping")
}
