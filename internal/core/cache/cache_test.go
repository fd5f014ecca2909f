package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type payload struct {
	N int `json:"n"`
}

func TestNewWithoutAddrIsNil(t *testing.T) {
	require.Nil(t, New("", "", 0))
}

func TestNilCacheLoadsThrough(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	calls := 0
	for i := 0; i < 3; i++ {
		v, err := GetOrLoadJSON(c, ctx, "k", time.Second, func(context.Context) (*payload, error) {
			calls++
			return &payload{N: calls}, nil
		})
		require.NoError(t, err)
		require.Equal(t, calls, v.N)
	}
	require.Equal(t, 3, calls)

	boom := errors.New("boom")
	_, err := c.GetOrLoad(ctx, "k", time.Second, func(context.Context) ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Close())
}
