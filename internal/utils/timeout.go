package utils

import (
	"context"
	"time"
)

const (
	DefaultDBTimeout = 5 * time.Second
	// DefaultTxTimeout bounds a whole transaction, row locks included.
	DefaultTxTimeout = 10 * time.Second
)

func WithDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultDBTimeout)
}

// WithTxTimeout is used for read-modify-write transactions that may wait on a
// row lock held by a concurrent request for the same order.
func WithTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTxTimeout)
}
