package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMockAdmitBatch(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMock(zap.New(core))

	require.NoError(t, m.AdmitBatch(context.Background(), []string{"a", "b", "c"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "mock: batch added to ledger", entry.Message)
	require.EqualValues(t, 3, entry.ContextMap()["size"])
}

func TestMockRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewMock(nil).AdmitBatch(ctx, []string{"a"}), context.Canceled)
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	var got []string
	var a Admitter = Func(func(_ context.Context, c []string) error {
		got = c
		return boom
	})
	require.ErrorIs(t, a.AdmitBatch(context.Background(), []string{"x"}), boom)
	require.Equal(t, []string{"x"}, got)
}
