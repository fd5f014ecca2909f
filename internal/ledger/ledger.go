// Package ledger models the group-membership anchor that admits identity
// commitments in batches. No real contract is called: Mock stands in for the
// batchAddMembers transaction and always succeeds.
package ledger

import (
	"context"

	"go.uber.org/zap"
)

// Admitter admits a batch of identity commitments in one logical transaction.
type Admitter interface {
	AdmitBatch(ctx context.Context, commitments []string) error
}

// Func adapts a plain function to Admitter.
type Func func(ctx context.Context, commitments []string) error

func (f Func) AdmitBatch(ctx context.Context, commitments []string) error { return f(ctx, commitments) }

type Mock struct {
	Log *zap.Logger
}

func NewMock(l *zap.Logger) *Mock {
	if l == nil {
		l = zap.NewNop()
	}
	return &Mock{Log: l}
}

func (m *Mock) AdmitBatch(ctx context.Context, commitments []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Log.Info("mock: batch added to ledger", zap.Int("size", len(commitments)))
	return nil
}
